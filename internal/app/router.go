package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/locafrota/locafrota/internal/billing"
	"github.com/locafrota/locafrota/internal/branches"
	"github.com/locafrota/locafrota/internal/contracts"
	"github.com/locafrota/locafrota/internal/drivers"
	"github.com/locafrota/locafrota/internal/maintenance"
	"github.com/locafrota/locafrota/internal/observability"
	"github.com/locafrota/locafrota/internal/plans"
	"github.com/locafrota/locafrota/internal/vehicles"
	"github.com/locafrota/locafrota/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	ContractHandler    *contracts.Handler
	BillingHandler     *billing.Handler
	VehicleHandler     *vehicles.Handler
	DriverHandler      *drivers.Handler
	PlanHandler        *plans.Handler
	BranchHandler      *branches.Handler
	MaintenanceHandler *maintenance.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ContractHandler != nil {
		r.Route("/contracts", params.ContractHandler.MountRoutes)
	}
	if params.BillingHandler != nil {
		r.Route("/billing", params.BillingHandler.MountBillingRoutes)
		r.Route("/invoices", params.BillingHandler.MountInvoiceRoutes)
	}
	if params.VehicleHandler != nil {
		r.Route("/vehicles", params.VehicleHandler.MountRoutes)
	}
	if params.DriverHandler != nil {
		r.Route("/drivers", params.DriverHandler.MountRoutes)
	}
	if params.PlanHandler != nil {
		r.Route("/plans", params.PlanHandler.MountRoutes)
	}
	if params.BranchHandler != nil {
		r.Route("/branches", params.BranchHandler.MountRoutes)
	}
	if params.MaintenanceHandler != nil {
		r.Route("/maintenance", params.MaintenanceHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
