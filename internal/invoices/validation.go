package invoices

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a create request before anything is persisted.
func (in CreateInvoiceInput) Validate() error {
	in.ClientName = strings.TrimSpace(in.ClientName)
	if in.Items != nil {
		in.Items = append(make([]ItemInput, 0, len(in.Items)), in.Items...)
	}
	for i := range in.Items {
		in.Items[i].Description = strings.TrimSpace(in.Items[i].Description)
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	fields := make(httpx.FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return &httpx.ValidationError{Fields: fields}
}

// fieldPath turns "CreateInvoiceInput.Items[0].Quantity" into "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "Items" {
			return "at least one item is required"
		}
		return "is required"
	case "min":
		return "at least one item is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	case "email":
		return "must be a valid email address"
	}
	return "is invalid"
}
