package invoices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/shared"
)

// IdempotencyHeader carries the client key that makes POST /invoices safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// RequestGuard claims idempotency keys.
type RequestGuard interface {
	Claim(ctx context.Context, accountID, key string) error
	Release(ctx context.Context, accountID, key string) error
}

// Handler exposes the invoice REST endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   RequestGuard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// WithRequestGuard enables Idempotency-Key handling on create.
func (h *Handler) WithRequestGuard(guard RequestGuard) *Handler {
	h.guard = guard
	return h
}

// MountRoutes registers invoice routes under /invoices.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Patch("/{id}/pay", h.markPaid)
	r.Post("/{id}/send", h.send)
	r.Delete("/{id}", h.delete)
}

// ListClients serves GET /clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.Clients(r.Context(), shared.AccountFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list clients", err)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.List(r.Context(), shared.AccountFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list invoices", err)
		return
	}
	if invoices == nil {
		invoices = []ledger.Invoice{}
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInvoiceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx := r.Context()
	accountID := shared.AccountFromContext(ctx)
	key := r.Header.Get(IdempotencyHeader)
	if key != "" && h.guard != nil {
		if err := h.guard.Claim(ctx, accountID, key); err != nil {
			h.fail(w, "claim idempotency key", err)
			return
		}
	}
	inv, err := h.service.Create(ctx, accountID, input)
	if err != nil {
		if key != "" && h.guard != nil {
			if relErr := h.guard.Release(ctx, accountID, key); relErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", relErr))
			}
		}
		h.fail(w, "create invoice", err)
		return
	}
	w.Header().Set("Location", "/invoices/"+inv.ID)
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), shared.AccountFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.MarkPaid(r.Context(), shared.AccountFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "mark invoice paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Send(r.Context(), shared.AccountFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if IsNotifyError(err) && inv != nil {
			h.logger.Warn("invoice sent without notification", slog.String("id", inv.ID), slog.Any("error", err))
			httpx.JSON(w, http.StatusOK, inv)
			return
		}
		h.fail(w, "send invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), shared.AccountFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrAlreadyPaid):
		httpx.Problem(w, http.StatusConflict, "Already Paid", "invoice is already paid")
		return
	case errors.Is(err, ledger.ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
		return
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrDuplicate):
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
