package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quickinvoice/quickinvoice/internal/invoices"
	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

const defaultReceiptLimit = 10

// InvoiceSource exposes the invoices the views are derived from.
type InvoiceSource interface {
	Snapshot(ctx context.Context, accountID string) ([]ledger.Invoice, error)
	Get(ctx context.Context, accountID, id string) (*ledger.Invoice, error)
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Cache    *Cache
	Logger   *slog.Logger
	Location *time.Location
	Now      func() time.Time
}

// Service computes dashboard, report and receipt views with the ledger.
type Service struct {
	source InvoiceSource
	cache  *Cache
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
	group  singleflight.Group
	// unbumped holds accounts whose invalidation has not reached Redis yet.
	unbumped sync.Map
}

// NewService wires an InvoiceSource with the cache layer.
func NewService(source InvoiceSource, cfg ServiceConfig) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		source: source,
		cache:  cfg.Cache,
		logger: cfg.Logger,
		loc:    cfg.Location,
		now:    cfg.Now,
	}
}

// Location returns the calendar used for windows.
func (s *Service) Location() *time.Location {
	return s.loc
}

// CurrentWindow returns the calendar month containing now.
func (s *Service) CurrentWindow() ledger.Window {
	return ledger.WindowOf(s.now(), s.loc)
}

// ParseWindow resolves a "YYYY-MM" selector. Blank input selects the current month.
func (s *Service) ParseWindow(raw string) (ledger.Window, error) {
	if strings.TrimSpace(raw) == "" {
		return s.CurrentWindow(), nil
	}
	w, err := ledger.ParseWindow(raw, s.loc)
	if err != nil {
		return ledger.Window{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return w, nil
}

// Dashboard returns the stats and per-invoice chart of the window.
func (s *Service) Dashboard(ctx context.Context, accountID string, w ledger.Window) (Dashboard, error) {
	var out Dashboard
	err := s.cached(ctx, accountID, &out, func(invoices []ledger.Invoice) any {
		return Dashboard{
			Stats: ledger.Aggregate(invoices, w),
			Chart: ledger.Chart(invoices, w, ledger.DefaultChartLayout),
		}
	}, "dashboard", w.String())
	return out, err
}

// Report returns the stats of the window and the monthly paid revenue trend.
func (s *Service) Report(ctx context.Context, accountID string, w ledger.Window) (Report, error) {
	var out Report
	err := s.cached(ctx, accountID, &out, func(invoices []ledger.Invoice) any {
		return Report{
			Stats: ledger.Aggregate(invoices, w),
			Trend: ledger.RevenueTrend(invoices, s.loc),
		}
	}, "report", w.String())
	return out, err
}

// Receipts returns up to limit paid invoices matching query.
func (s *Service) Receipts(ctx context.Context, accountID, query string, limit int) ([]ledger.Invoice, error) {
	if limit <= 0 {
		limit = defaultReceiptLimit
	}
	invoices, err := s.source.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return ledger.SearchReceipts(invoices, query, limit), nil
}

// Receipt returns one paid invoice.
func (s *Service) Receipt(ctx context.Context, accountID, id string) (*ledger.Invoice, error) {
	inv, err := s.source.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if !ledger.IsReceipt(*inv) {
		return nil, ErrNotReceipt
	}
	return inv, nil
}

// InvoiceChanged invalidates the account's cached views after a mutation.
// When Redis cannot be reached the account is served uncached until a later
// bump succeeds.
func (s *Service) InvoiceChanged(ctx context.Context, ev invoices.Event) {
	if err := s.cache.Bump(ctx, ev.AccountID); err != nil {
		s.unbumped.Store(ev.AccountID, struct{}{})
		s.logger.Error("bump reports cache", slog.String("account", ev.AccountID), slog.Any("error", err))
	}
}

// settle retries a failed bump. It reports whether the cache may be used.
func (s *Service) settle(ctx context.Context, accountID string) bool {
	if _, pending := s.unbumped.Load(accountID); !pending {
		return true
	}
	if err := s.cache.Bump(ctx, accountID); err != nil {
		s.logger.Warn("retry reports cache bump", slog.String("account", accountID), slog.Any("error", err))
		return false
	}
	s.unbumped.Delete(accountID)
	return true
}

func (s *Service) cached(ctx context.Context, accountID string, dest any, build func([]ledger.Invoice) any, parts ...string) error {
	if !s.settle(ctx, accountID) {
		return s.uncached(ctx, accountID, dest, build)
	}
	key, err := s.cache.BuildKey(ctx, accountID, parts...)
	if err != nil {
		s.logger.Warn("reports cache unavailable", slog.String("account", accountID), slog.Any("error", err))
		return s.uncached(ctx, accountID, dest, build)
	}
	val, err := singleflightBuild(ctx, &s.group, key, func(ctx context.Context) (any, error) {
		return s.cache.FetchRaw(ctx, key, func(ctx context.Context) (any, error) {
			invoices, err := s.source.Snapshot(ctx, accountID)
			if err != nil {
				return nil, err
			}
			return build(invoices), nil
		})
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(val.([]byte), dest)
}

func (s *Service) uncached(ctx context.Context, accountID string, dest any, build func([]ledger.Invoice) any) error {
	invoices, err := s.source.Snapshot(ctx, accountID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(build(invoices))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
