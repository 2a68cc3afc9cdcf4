package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickinvoice/quickinvoice/internal/auth"
	"github.com/quickinvoice/quickinvoice/internal/deliveries"
	"github.com/quickinvoice/quickinvoice/internal/inventory"
	"github.com/quickinvoice/quickinvoice/internal/invoices"
	"github.com/quickinvoice/quickinvoice/internal/observability"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/reports"
	"github.com/quickinvoice/quickinvoice/internal/users"
	"github.com/quickinvoice/quickinvoice/jobs"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Metrics          *observability.Metrics
	Auth             *auth.Service
	InvoicesHandler  *invoices.Handler
	UsersHandler     *users.Handler
	ReportsHandler   *reports.Handler
	InventoryHandler *inventory.Handler
	DeliveryHandler  *deliveries.Handler
	JobHandler       *jobs.Handler
	Checks           map[string]Pinger
}

// NewRouter constructs the chi.Router with QuickInvoice defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(params.Checks))
	r.Handle("/metrics", params.Metrics.Handler())
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.Auth, params.Logger))

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/log", params.UsersHandler.LogUsage)
			params.InvoicesHandler.MountRoutes(r)
		})
		r.Get("/clients", params.InvoicesHandler.ListClients)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/deliveries", params.DeliveryHandler.MountRoutes)
		params.ReportsHandler.MountRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})

	return r
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httpx.JSON(w, status, body)
	}
}
