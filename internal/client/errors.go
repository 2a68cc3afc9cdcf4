package client

import (
	"fmt"
	"net/http"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status int
	Title  string
	Detail string
	Fields httpx.FieldErrors
}

func (e *APIError) Error() string {
	msg := e.Title
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("api %d: %s", e.Status, msg)
}

// Unwrap maps the status to the matching sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return httpx.ErrValidation
	case http.StatusUnauthorized:
		return httpx.ErrUnauthorized
	case http.StatusForbidden:
		return httpx.ErrForbidden
	case http.StatusNotFound:
		return httpx.ErrNotFound
	case http.StatusConflict:
		return httpx.ErrConflict
	}
	return nil
}
