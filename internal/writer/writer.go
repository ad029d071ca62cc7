// Package writer implements the Sync Writer: it takes the estimator
// manager's per-cycle results and persists the derived metric plus any
// finalized refuel event.
package writer

import (
	"context"
	"fmt"

	"github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/estimator"
	"github.com/fleetops/fleet-analytics-core/internal/storage"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

// Writer persists one estimator Result per truck per cycle.
type Writer struct {
	store storage.MetricStore
	refuels storage.RefuelStore
	log   *logger.Logger
	hooks service.ObservationHooks
}

// New returns a Writer backed by store.
func New(store storage.MetricStore, refuels storage.RefuelStore, log *logger.Logger, hooks service.ObservationHooks) *Writer {
	return &Writer{store: store, refuels: refuels, log: log, hooks: hooks}
}

// WriteCycle persists every result produced by one estimator manager cycle.
// Failures are logged and skipped rather than aborting the whole batch, so
// one bad truck does not block the rest of the fleet's writes.
func (w *Writer) WriteCycle(ctx context.Context, results map[string]estimator.Result) {
	for truckID, result := range results {
		if err := w.writeOne(ctx, truckID, result); err != nil {
			w.log.WithField("truck_id", truckID).WithError(err).Warn("failed to persist fuel metric")
		}
	}
}

func (w *Writer) writeOne(ctx context.Context, truckID string, result estimator.Result) error {
	done := service.StartObservation(ctx, w.hooks, map[string]string{"truck_id": truckID, "component": "sync-writer"})
	var err error
	defer func() { done(err) }()

	if err = w.store.UpsertMetric(ctx, result.Metric); err != nil {
		return fmt.Errorf("upsert metric for %s: %w", truckID, err)
	}
	if result.Refuel != nil {
		if rErr := w.refuels.InsertRefuel(ctx, *result.Refuel); rErr != nil {
			w.log.WithField("truck_id", truckID).WithError(rErr).Warn("failed to persist refuel event")
		}
	}
	return nil
}
