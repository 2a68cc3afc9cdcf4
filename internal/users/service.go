package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/money"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	CountUsage(ctx context.Context, id string, from, to time.Time) (Usage, error)
	RecordUsage(ctx context.Context, input UsageInput) (Usage, error)
	UpdateCurrency(ctx context.Context, id, currency string) error
	UpdateBankDetails(ctx context.Context, id string, bank BankDetails) error
}

// ServiceConfig tunes plan limits and the calendar used for monthly counters.
type ServiceConfig struct {
	FreePlanLimit int
	Location      *time.Location
	Now           func() time.Time
}

// Service handles account business logic.
type Service struct {
	repo RepositoryPort
	cfg  ServiceConfig
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	if cfg.FreePlanLimit <= 0 {
		cfg.FreePlanLimit = DefaultFreePlanLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{repo: repo, cfg: cfg}
}

func (s *Service) limitFor(plan Plan) int {
	if plan == PlanPro {
		return 0
	}
	return s.cfg.FreePlanLimit
}

func (s *Service) month() (ledger.Window, time.Time) {
	now := s.cfg.Now()
	w := ledger.WindowOf(now, s.cfg.Location)
	return w, now
}

// Me returns the account with usage counted for the current calendar month.
func (s *Service) Me(ctx context.Context, accountID string) (*Account, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	w, _ := s.month()
	usage, err := s.repo.CountUsage(ctx, accountID, w.Start(), w.Start().AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	acc.Usage = usage
	acc.Limit = s.limitFor(acc.Plan)
	return acc, nil
}

// LogUsage meters one issued document, enforcing the free plan allowance.
func (s *Service) LogUsage(ctx context.Context, accountID string, kind UsageKind) (Usage, error) {
	if kind != UsageInvoice && kind != UsageReceipt {
		return Usage{}, fmt.Errorf("%w: %q", ErrUnknownUsageKind, kind)
	}
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return Usage{}, err
	}
	w, now := s.month()
	return s.repo.RecordUsage(ctx, UsageInput{
		AccountID:   accountID,
		Kind:        kind,
		At:          now,
		WindowStart: w.Start(),
		WindowEnd:   w.Start().AddDate(0, 1, 0),
		Limit:       s.limitFor(acc.Plan),
	})
}

// SetCurrency stores the account's display currency.
func (s *Service) SetCurrency(ctx context.Context, accountID, code string) (*Account, error) {
	cur, err := money.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.repo.UpdateCurrency(ctx, accountID, cur.Code); err != nil {
		return nil, err
	}
	return s.Me(ctx, accountID)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// BankDetails returns the settlement details printed on documents.
func (s *Service) BankDetails(ctx context.Context, accountID string) (BankDetails, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return BankDetails{}, err
	}
	return acc.Bank, nil
}

// SetBankDetails replaces the account's settlement details.
func (s *Service) SetBankDetails(ctx context.Context, accountID string, bank BankDetails) (BankDetails, error) {
	bank.BankName = strings.TrimSpace(bank.BankName)
	bank.AccountName = strings.TrimSpace(bank.AccountName)
	bank.AccountNumber = strings.ReplaceAll(strings.TrimSpace(bank.AccountNumber), " ", "")
	if err := validate.Struct(bank); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return BankDetails{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		fields := make(httpx.FieldErrors, len(verrs))
		for _, fe := range verrs {
			name := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
			switch fe.Tag() {
			case "required":
				fields[name] = "is required"
			case "numeric":
				fields[name] = "must contain digits only"
			default:
				fields[name] = "has an invalid length"
			}
		}
		return BankDetails{}, &httpx.ValidationError{Fields: fields}
	}
	if err := s.repo.UpdateBankDetails(ctx, accountID, bank); err != nil {
		return BankDetails{}, err
	}
	return bank, nil
}
