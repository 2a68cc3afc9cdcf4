package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
)

// RepositoryPort defines invoice persistence. Every call is scoped to an account.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, accountID string, inv ledger.Invoice) error
	GetInvoice(ctx context.Context, accountID, id string) (*ledger.Invoice, error)
	ListInvoices(ctx context.Context, accountID string) ([]ledger.Invoice, error)
	// UpdateStatus moves the invoice from one stored status to another. When
	// the stored status is no longer from it returns ErrStatusChanged.
	UpdateStatus(ctx context.Context, accountID, id string, from, to ledger.Status) error
	DeleteInvoice(ctx context.Context, accountID, id string) error
}

// Notifier delivers a sent invoice to its client.
type Notifier interface {
	InvoiceSent(ctx context.Context, accountID string, inv ledger.Invoice) error
}

// Listener observes committed invoice mutations.
type Listener interface {
	InvoiceChanged(ctx context.Context, ev Event)
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Notifier  Notifier
	Listeners []Listener
	Location  *time.Location
	Now       func() time.Time
}

// Service coordinates the invoice lifecycle.
type Service struct {
	repo      RepositoryPort
	notifier  Notifier
	listeners []Listener
	loc       *time.Location
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:      repo,
		notifier:  cfg.Notifier,
		listeners: cfg.Listeners,
		loc:       cfg.Location,
		now:       cfg.Now,
	}
}

// Location returns the calendar used for windows and due dates.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Create validates the input, derives all totals and persists a draft invoice.
func (s *Service) Create(ctx context.Context, accountID string, input CreateInvoiceInput) (*ledger.Invoice, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	items := make([]ledger.LineItem, len(input.Items))
	for i, it := range input.Items {
		items[i] = ledger.LineItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	inv := ledger.Invoice{
		ID:          uuid.NewString(),
		ClientName:  strings.TrimSpace(input.ClientName),
		ClientEmail: strings.TrimSpace(input.ClientEmail),
		ClientPhone: strings.TrimSpace(input.ClientPhone),
		Items:       items,
		Tax:         input.Tax,
		Discount:    input.Discount,
		Status:      ledger.StatusDraft,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
		Notes:       strings.TrimSpace(input.Notes),
	}
	if input.DueDate != nil && !input.DueDate.IsZero() {
		due := input.DueDate.Time
		inv.DueDate = &due
	}
	inv = ledger.Recompute(inv)

	if err := s.repo.CreateInvoice(ctx, accountID, inv); err != nil {
		return nil, err
	}
	s.publish(ctx, EventCreated, accountID, inv)
	return s.present(inv), nil
}

// Get returns one invoice with totals recomputed from its items.
func (s *Service) Get(ctx context.Context, accountID, id string) (*ledger.Invoice, error) {
	inv, err := s.load(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	return s.present(*inv), nil
}

// List returns every invoice of the account, newest first.
func (s *Service) List(ctx context.Context, accountID string) ([]ledger.Invoice, error) {
	invoices, err := s.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	for i := range invoices {
		invoices[i].Status = ledger.DisplayStatus(invoices[i], now)
	}
	return invoices, nil
}

// Snapshot returns the account's invoices normalised for aggregation, with
// stored statuses left untouched.
func (s *Service) Snapshot(ctx context.Context, accountID string) ([]ledger.Invoice, error) {
	invoices, err := s.repo.ListInvoices(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		invoices[i] = ledger.Recompute(invoices[i])
	}
	return invoices, nil
}

// MarkPaid moves an invoice to paid. For an invoice that is already paid the
// unchanged invoice is returned together with ledger.ErrAlreadyPaid.
func (s *Service) MarkPaid(ctx context.Context, accountID, id string) (*ledger.Invoice, error) {
	inv, err := s.load(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	paid, err := ledger.MarkPaid(*inv)
	if err != nil {
		return s.present(paid), err
	}
	if err := s.transition(ctx, accountID, id, inv.Status, paid.Status); err != nil {
		if errors.Is(err, ledger.ErrAlreadyPaid) {
			return s.present(paid), err
		}
		return nil, err
	}
	s.publish(ctx, EventPaid, accountID, paid)
	return s.present(paid), nil
}

// Send moves a draft invoice to sent and hands it to the notifier.
func (s *Service) Send(ctx context.Context, accountID, id string) (*ledger.Invoice, error) {
	inv, err := s.load(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	sent, err := ledger.Send(*inv)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, accountID, id, inv.Status, sent.Status); err != nil {
		return nil, err
	}
	s.publish(ctx, EventSent, accountID, sent)
	if s.notifier != nil && sent.ClientEmail != "" {
		if err := s.notifier.InvoiceSent(ctx, accountID, sent); err != nil {
			return s.present(sent), &NotifyError{Err: err}
		}
	}
	return s.present(sent), nil
}

// Delete removes an invoice permanently, whatever its status.
func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	inv, err := s.load(ctx, accountID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteInvoice(ctx, accountID, id); err != nil {
		return err
	}
	s.publish(ctx, EventDeleted, accountID, *inv)
	return nil
}

// Clients lists the account's clients derived from its invoices.
func (s *Service) Clients(ctx context.Context, accountID string) ([]Client, error) {
	invoices, err := s.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return Clients(invoices), nil
}

// NotifyError reports that the status change succeeded but delivery failed.
type NotifyError struct {
	Err error
}

func (e *NotifyError) Error() string {
	return "invoices: notify client: " + e.Err.Error()
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// IsNotifyError reports whether err is a delivery failure after a committed send.
func IsNotifyError(err error) bool {
	var ne *NotifyError
	return errors.As(err, &ne)
}

// transition applies a status change only if nobody changed the status since
// it was read. A lost race is reported against the status that won.
func (s *Service) transition(ctx context.Context, accountID, id string, from, to ledger.Status) error {
	err := s.repo.UpdateStatus(ctx, accountID, id, from, to)
	if !errors.Is(err, ErrStatusChanged) {
		return err
	}
	current, loadErr := s.load(ctx, accountID, id)
	if loadErr != nil {
		return loadErr
	}
	if current.Status == ledger.StatusPaid {
		return ledger.ErrAlreadyPaid
	}
	return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, current.Status, to)
}

func (s *Service) load(ctx context.Context, accountID, id string) (*ledger.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvoiceNotFound
	}
	inv, err := s.repo.GetInvoice(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	fresh := ledger.Recompute(*inv)
	return &fresh, nil
}

// Subscribe adds a listener. Call it during wiring, before the service handles requests.
func (s *Service) Subscribe(l Listener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

func (s *Service) present(inv ledger.Invoice) *ledger.Invoice {
	inv.Status = ledger.DisplayStatus(inv, s.Now())
	return &inv
}

func (s *Service) publish(ctx context.Context, kind EventKind, accountID string, inv ledger.Invoice) {
	ev := Event{Kind: kind, AccountID: accountID, Invoice: inv, At: s.now()}
	for _, l := range s.listeners {
		l.InvoiceChanged(ctx, ev)
	}
}
