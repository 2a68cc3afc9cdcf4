package reports

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/reports/export"
	"github.com/quickinvoice/quickinvoice/internal/shared"
	"github.com/quickinvoice/quickinvoice/internal/users"
)

// AccountSource loads the profile printed on receipts.
type AccountSource interface {
	Me(ctx context.Context, accountID string) (*users.Account, error)
}

// Handler exposes dashboard, report and receipt endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	accounts AccountSource
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, accounts AccountSource) *Handler {
	return &Handler{logger: logger, service: service, accounts: accounts}
}

// MountRoutes registers the read views on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Get("/reports", h.report)
	r.Get("/receipts", h.receipts)
	r.Get("/receipts/{id}", h.receipt)
	r.Get("/receipts/{id}/pdf", h.receiptPDF)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	window, err := h.service.ParseWindow(r.URL.Query().Get("month"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.Dashboard(r.Context(), shared.AccountFromContext(r.Context()), window)
	if err != nil {
		h.fail(w, "build dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	window, err := h.service.ParseWindow(r.URL.Query().Get("month"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.Report(r.Context(), shared.AccountFromContext(r.Context()), window)
	if err != nil {
		h.fail(w, "build report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) receipts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	out, err := h.service.Receipts(r.Context(), shared.AccountFromContext(r.Context()), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.fail(w, "search receipts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Receipt(r.Context(), shared.AccountFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "load receipt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) receiptPDF(w http.ResponseWriter, r *http.Request) {
	accountID := shared.AccountFromContext(r.Context())
	inv, err := h.service.Receipt(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "load receipt", err)
		return
	}
	acc, err := h.accounts.Me(r.Context(), accountID)
	if err != nil {
		h.fail(w, "load account", err)
		return
	}
	issuer := export.Issuer{
		Name:          acc.Name,
		Email:         acc.Email,
		Currency:      acc.Currency,
		BankName:      acc.Bank.BankName,
		AccountName:   acc.Bank.AccountName,
		AccountNumber: acc.Bank.AccountNumber,
	}
	buf := &bytes.Buffer{}
	if err := export.ReceiptPDF(buf, *inv, issuer, h.service.Location()); err != nil {
		h.fail(w, "render receipt", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="receipt-`+inv.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
