package deliveries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// RepositoryPort abstracts delivery persistence.
type RepositoryPort interface {
	ListDeliveries(ctx context.Context, accountID string) ([]Delivery, error)
	GetDelivery(ctx context.Context, accountID, id string) (*Delivery, error)
	InsertDelivery(ctx context.Context, accountID string, d Delivery) error
	UpdateStatus(ctx context.Context, accountID, id string, from, to Status, at time.Time) error
}

// Service coordinates deliveries.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewService builds Service. A nil now defaults to time.Now.
func NewService(repo RepositoryPort, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// List returns the account's deliveries, optionally filtered by status.
func (s *Service) List(ctx context.Context, accountID string, status Status) ([]Delivery, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	all, err := s.repo.ListDeliveries(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	out := make([]Delivery, 0, len(all))
	for _, d := range all {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

// Get returns one delivery.
func (s *Service) Get(ctx context.Context, accountID, id string) (*Delivery, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDeliveryNotFound
	}
	return s.repo.GetDelivery(ctx, accountID, id)
}

// Create registers a pending delivery.
func (s *Service) Create(ctx context.Context, accountID string, input DeliveryInput) (*Delivery, error) {
	input.PickupAddress = strings.TrimSpace(input.PickupAddress)
	input.DeliveryAddress = strings.TrimSpace(input.DeliveryAddress)
	input.ReceiverName = strings.TrimSpace(input.ReceiverName)
	input.ReceiverPhone = strings.TrimSpace(input.ReceiverPhone)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	d := Delivery{
		ID:              uuid.NewString(),
		PickupAddress:   input.PickupAddress,
		DeliveryAddress: input.DeliveryAddress,
		ReceiverName:    input.ReceiverName,
		ReceiverPhone:   input.ReceiverPhone,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertDelivery(ctx, accountID, d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Advance moves a delivery forward to status.
func (s *Service) Advance(ctx context.Context, accountID, id string, status Status) (*Delivery, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	d, err := s.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanMoveTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, status)
	}
	at := s.now().UTC().Truncate(time.Microsecond)
	if err := s.repo.UpdateStatus(ctx, accountID, id, d.Status, status, at); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		return nil, err
	}
	d.Status = status
	d.UpdatedAt = at
	return d, nil
}

func validateInput(in DeliveryInput) error {
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
		name := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		fields[name] = "is required"
	}
	return &httpx.ValidationError{Fields: fields}
}
