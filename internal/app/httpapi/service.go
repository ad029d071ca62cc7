// Package httpapi exposes the Command Center's REST surface: the fleet
// dashboard, per-truck summaries, risk scores, correlations, DEF
// predictions, ad-hoc detection, and static reference lookups.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetops/fleet-analytics-core/internal/app/metrics"
	"github.com/fleetops/fleet-analytics-core/internal/commandcenter"
	"github.com/fleetops/fleet-analytics-core/internal/config"
	"github.com/fleetops/fleet-analytics-core/internal/estimator"
	"github.com/fleetops/fleet-analytics-core/internal/registry"
	"github.com/fleetops/fleet-analytics-core/internal/sensorengine"
	"github.com/fleetops/fleet-analytics-core/internal/storage"
	"github.com/fleetops/fleet-analytics-core/internal/trends"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

// InputsBuilder produces the current cycle's adapter inputs for the
// aggregator; it is supplied by main.go once every domain component has
// been wired, so the HTTP layer never constructs adapters itself.
type InputsBuilder func(ctx context.Context) (commandcenter.Inputs, error)

// Recorder captures an on-demand trend snapshot.
type Recorder interface {
	RecordNow(ctx context.Context)
}

// Deps bundles everything the HTTP layer reads from.
type Deps struct {
	Registry     *registry.Registry
	Estimator    *estimator.Manager
	Engine       *sensorengine.Engine
	Aggregator   *commandcenter.Aggregator
	TrendRing    *trends.Ring
	Recorder     Recorder
	Store        storage.Store
	Config       *config.Config
	BuildInputs  InputsBuilder
	Log          *logger.Logger
}

// NewHandler returns the full HTTP router for the Command Center API.
func NewHandler(deps Deps) http.Handler {
	h := &handler{deps: deps}

	router := mux.NewRouter()
	router.Handle("/metrics", metrics.Handler())
	router.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/dashboard", h.dashboard).Methods(http.MethodGet)
	router.HandleFunc("/actions", h.actions).Methods(http.MethodGet)
	router.HandleFunc("/truck/{id}/comprehensive", h.truckComprehensive).Methods(http.MethodGet)
	router.HandleFunc("/truck/{id}", h.truck).Methods(http.MethodGet)
	router.HandleFunc("/insights", h.insights).Methods(http.MethodGet)
	router.HandleFunc("/trends", h.trends).Methods(http.MethodGet)
	router.HandleFunc("/trends/record", h.recordTrend).Methods(http.MethodPost)
	router.HandleFunc("/risk-scores", h.riskScores).Methods(http.MethodGet)
	router.HandleFunc("/correlations", h.correlations).Methods(http.MethodGet)
	router.HandleFunc("/def-prediction/{id}", h.defPrediction).Methods(http.MethodGet)
	router.HandleFunc("/detect", h.detect).Methods(http.MethodPost)
	router.HandleFunc("/spn/{spn}", h.spn).Methods(http.MethodGet)
	router.HandleFunc("/config", h.configSummary).Methods(http.MethodGet)

	return metrics.InstrumentHandler(router)
}

type handler struct {
	deps Deps
}
