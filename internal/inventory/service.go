package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListItems(ctx context.Context, accountID string) ([]Item, error)
	GetItem(ctx context.Context, accountID, id string) (*Item, error)
	DeleteItem(ctx context.Context, accountID, id string) error
}

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	allowNeg bool
	now      func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
	Now                func() time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{repo: repo, allowNeg: cfg.AllowNegativeStock, now: cfg.Now}
}

// List returns the account's items matching q, ordered by name.
func (s *Service) List(ctx context.Context, accountID, q string) ([]Item, error) {
	items, err := s.repo.ListItems(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return Search(items, q), nil
}

// Summary totals the items matching q.
func (s *Service) Summary(ctx context.Context, accountID, q string) (Summary, error) {
	items, err := s.List(ctx, accountID, q)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(items), nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, accountID, id string) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrItemNotFound
	}
	return s.repo.GetItem(ctx, accountID, id)
}

// Create adds an item.
func (s *Service) Create(ctx context.Context, accountID string, input ItemInput) (*Item, error) {
	input = normalize(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	item := Item{
		ID:          uuid.NewString(),
		Name:        input.Name,
		SKU:         input.SKU,
		Price:       input.Price,
		Stock:       input.Stock,
		Category:    input.Category,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertItem(ctx, accountID, item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Update replaces the editable fields of an item.
func (s *Service) Update(ctx context.Context, accountID, id string, input ItemInput) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrItemNotFound
	}
	input = normalize(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var out Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, accountID, id)
		if err != nil {
			return err
		}
		item.Name = input.Name
		item.SKU = input.SKU
		item.Price = input.Price
		item.Stock = input.Stock
		item.Category = input.Category
		item.Description = input.Description
		item.UpdatedAt = s.now().UTC()
		if err := tx.UpdateItem(ctx, accountID, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Adjust moves stock by input.Qty under a row lock.
func (s *Service) Adjust(ctx context.Context, accountID, id string, input AdjustmentInput) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrItemNotFound
	}
	if math.Abs(input.Qty) < 1e-9 {
		return nil, ErrInvalidQuantity
	}
	var out Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, accountID, id)
		if err != nil {
			return err
		}
		next := item.Stock + input.Qty
		if next < 0 && !s.allowNeg {
			return fmt.Errorf("%w: have %v, need %v", ErrInsufficientStock, item.Stock, -input.Qty)
		}
		item.Stock = next
		item.UpdatedAt = s.now().UTC()
		if err := tx.UpdateItem(ctx, accountID, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrItemNotFound
	}
	return s.repo.DeleteItem(ctx, accountID, id)
}

func normalize(in ItemInput) ItemInput {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

func validateInput(in ItemInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	fields := make(httpx.FieldErrors, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = "is required"
		case "gte":
			fields[name] = "must not be negative"
		default:
			fields[name] = "is invalid"
		}
	}
	return &httpx.ValidationError{Fields: fields}
}
