package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/shared"
)

// Handler manages account endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers account routes under /users.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Patch("/me/currency", h.setCurrency)
	r.Get("/me/account-details", h.bankDetails)
	r.Put("/me/account-details", h.setBankDetails)
}

type usageRequest struct {
	Type UsageKind `json:"type"`
}

type currencyRequest struct {
	Currency string `json:"currency"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.Me(r.Context(), shared.AccountFromContext(r.Context()))
	if err != nil {
		h.fail(w, "load account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) setCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.SetCurrency(r.Context(), shared.AccountFromContext(r.Context()), req.Currency)
	if err != nil {
		h.fail(w, "set currency", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) bankDetails(w http.ResponseWriter, r *http.Request) {
	bank, err := h.service.BankDetails(r.Context(), shared.AccountFromContext(r.Context()))
	if err != nil {
		h.fail(w, "load account details", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bank)
}

func (h *Handler) setBankDetails(w http.ResponseWriter, r *http.Request) {
	var req BankDetails
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bank, err := h.service.SetBankDetails(r.Context(), shared.AccountFromContext(r.Context()), req)
	if err != nil {
		h.fail(w, "update account details", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bank)
}

// LogUsage meters an issued invoice or receipt. Mounted at POST /invoices/log.
func (h *Handler) LogUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	usage, err := h.service.LogUsage(r.Context(), shared.AccountFromContext(r.Context()), req.Type)
	if err != nil {
		if IsLimitExceeded(err) {
			httpx.Problem(w, http.StatusForbidden, "Limit Exceeded", "You have exceeded your limit. Upgrade to Pro.")
			return
		}
		h.fail(w, "log usage", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "usage logged", "usage": usage})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
