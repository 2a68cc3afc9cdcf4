package deliveries

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/shared"
)

// Handler exposes delivery endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers delivery routes under /deliveries.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Patch("/{id}/status", h.advance)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context(), shared.AccountFromContext(r.Context()), Status(r.URL.Query().Get("status")))
	if err != nil {
		h.fail(w, "list deliveries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), shared.AccountFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get delivery", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input DeliveryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Create(r.Context(), shared.AccountFromContext(r.Context()), input)
	if err != nil {
		h.fail(w, "create delivery", err)
		return
	}
	w.Header().Set("Location", "/deliveries/"+d.ID)
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	var input StatusInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Advance(r.Context(), shared.AccountFromContext(r.Context()), chi.URLParam(r, "id"), input.Status)
	if err != nil {
		h.fail(w, "advance delivery", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrConflict):
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
