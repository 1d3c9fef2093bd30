package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/batchflow/batchflow/internal/auth"
	"github.com/batchflow/batchflow/internal/delivery/distribution"
	"github.com/batchflow/batchflow/internal/hr/attendance"
	"github.com/batchflow/batchflow/internal/hr/employees"
	"github.com/batchflow/batchflow/internal/inventory/batches"
	"github.com/batchflow/batchflow/internal/inventory/ledger"
	"github.com/batchflow/batchflow/internal/masterdata/products"
	"github.com/batchflow/batchflow/internal/observability"
	"github.com/batchflow/batchflow/internal/platform/httpx"
	"github.com/batchflow/batchflow/internal/sales/clients"
	"github.com/batchflow/batchflow/internal/sales/orders"
	"github.com/batchflow/batchflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Tokens              *auth.TokenService
	AuthHandler         *auth.Handler
	LedgerHandler       *ledger.Handler
	OrdersHandler       *orders.Handler
	DistributionHandler *distribution.Handler
	BatchesHandler      *batches.Handler
	ClientsHandler      *clients.Handler
	ProductsHandler     *products.Handler
	EmployeesHandler    *employees.Handler
	AttendanceHandler   *attendance.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
	// Ready reports dependency health for /healthz; nil means always ready.
	Ready func(*http.Request) error
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				params.Logger.Warn("readiness check failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	protect := auth.Middleware(params.Tokens)
	if params.AuthHandler != nil {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r, protect)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountHealth(r)
			r.Group(func(r chi.Router) {
				r.Use(protect)
				params.JobHandler.MountRoutes(r)
			})
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(protect)
		if params.LedgerHandler != nil {
			r.Route("/batch-orders", params.LedgerHandler.MountRoutes)
		}
		if params.OrdersHandler != nil {
			r.Route("/orders", params.OrdersHandler.MountRoutes)
		}
		if params.DistributionHandler != nil {
			r.Route("/distribution", params.DistributionHandler.MountRoutes)
		}
		if params.BatchesHandler != nil {
			r.Route("/batches", params.BatchesHandler.MountRoutes)
		}
		if params.ClientsHandler != nil {
			r.Route("/clients", params.ClientsHandler.MountRoutes)
		}
		if params.ProductsHandler != nil {
			r.Route("/products", params.ProductsHandler.MountRoutes)
			r.Route("/categories", params.ProductsHandler.MountCategoryRoutes)
		}
		if params.EmployeesHandler != nil {
			r.Route("/employees", params.EmployeesHandler.MountRoutes)
		}
		if params.AttendanceHandler != nil {
			r.Route("/attendance", params.AttendanceHandler.MountRoutes)
		}
	})

	return r
}
