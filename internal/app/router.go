package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-procure/meridian-procure/internal/contracts"
	"github.com/meridian-procure/meridian-procure/internal/match"
	"github.com/meridian-procure/meridian-procure/internal/observability"
	"github.com/meridian-procure/meridian-procure/internal/procurement"
	"github.com/meridian-procure/meridian-procure/internal/sourcing"
	"github.com/meridian-procure/meridian-procure/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	ProcurementHandler *procurement.Handler
	SourcingHandler    *sourcing.Handler
	MatchHandler       *match.Handler
	ContractHandler    *contracts.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
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

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.ProcurementHandler != nil {
			params.ProcurementHandler.MountRoutes(api)
		}
		if params.SourcingHandler != nil {
			params.SourcingHandler.MountRoutes(api)
		}
		if params.MatchHandler != nil {
			params.MatchHandler.MountRoutes(api)
		}
		if params.ContractHandler != nil {
			params.ContractHandler.MountRoutes(api)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
