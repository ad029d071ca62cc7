package writer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/domain/fuel"
	"github.com/fleetops/fleet-analytics-core/internal/estimator"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

type fakeMetricStore struct {
	upserted []fuel.Metric
	failOn   string
}

func (f *fakeMetricStore) UpsertMetric(ctx context.Context, m fuel.Metric) error {
	if m.TruckID == f.failOn {
		return errors.New("upsert failed")
	}
	f.upserted = append(f.upserted, m)
	return nil
}
func (f *fakeMetricStore) LatestMetrics(ctx context.Context) ([]fuel.Metric, error) { return nil, nil }
func (f *fakeMetricStore) MetricsSince(ctx context.Context, truckID string, hours int) ([]fuel.Metric, error) {
	return nil, nil
}

type fakeRefuelStore struct {
	inserted []fuel.RefuelEvent
	failAll  bool
}

func (f *fakeRefuelStore) InsertRefuel(ctx context.Context, e fuel.RefuelEvent) error {
	if f.failAll {
		return errors.New("insert failed")
	}
	f.inserted = append(f.inserted, e)
	return nil
}
func (f *fakeRefuelStore) RecentRefuels(ctx context.Context, truckID string, limit int) ([]fuel.RefuelEvent, error) {
	return nil, nil
}

func TestWriteCyclePersistsMetricAndRefuel(t *testing.T) {
	metrics := &fakeMetricStore{}
	refuels := &fakeRefuelStore{}
	w := New(metrics, refuels, logger.NewDefault("test"), service.NoopObservationHooks)

	results := map[string]estimator.Result{
		"truck-1": {
			Metric: fuel.Metric{TruckID: "truck-1"},
			Refuel: &fuel.RefuelEvent{TruckID: "truck-1"},
		},
	}
	w.WriteCycle(context.Background(), results)

	require.Len(t, metrics.upserted, 1)
	assert.Equal(t, "truck-1", metrics.upserted[0].TruckID)
	require.Len(t, refuels.inserted, 1)
}

func TestWriteCycleSkipsTruckWhoseMetricUpsertFails(t *testing.T) {
	metrics := &fakeMetricStore{failOn: "truck-bad"}
	refuels := &fakeRefuelStore{}
	w := New(metrics, refuels, logger.NewDefault("test"), service.NoopObservationHooks)

	results := map[string]estimator.Result{
		"truck-bad": {Metric: fuel.Metric{TruckID: "truck-bad"}, Refuel: &fuel.RefuelEvent{TruckID: "truck-bad"}},
		"truck-ok":  {Metric: fuel.Metric{TruckID: "truck-ok"}},
	}
	w.WriteCycle(context.Background(), results)

	assert.Len(t, metrics.upserted, 1)
	assert.Equal(t, "truck-ok", metrics.upserted[0].TruckID)
	assert.Empty(t, refuels.inserted, "refuel insert must not run when the metric upsert for that truck failed")
}

func TestWriteCycleToleratesRefuelInsertFailure(t *testing.T) {
	metrics := &fakeMetricStore{}
	refuels := &fakeRefuelStore{failAll: true}
	w := New(metrics, refuels, logger.NewDefault("test"), service.NoopObservationHooks)

	results := map[string]estimator.Result{
		"truck-1": {Metric: fuel.Metric{TruckID: "truck-1"}, Refuel: &fuel.RefuelEvent{TruckID: "truck-1"}},
	}
	assert.NotPanics(t, func() { w.WriteCycle(context.Background(), results) })
	assert.Len(t, metrics.upserted, 1)
}
