// Package memory implements internal/storage.Store backed by in-process
// maps, for tests and local development without PostgreSQL.
package memory

import (
	"context"
	"sync"

	"github.com/fleetops/fleet-analytics-core/internal/config"
	"github.com/fleetops/fleet-analytics-core/internal/domain/fuel"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

// Store is a thread-safe, in-memory implementation of internal/storage.Store.
type Store struct {
	mu sync.RWMutex

	metrics       map[string]fuel.Metric // truck_id -> latest
	metricHistory map[string][]fuel.Metric
	refuels       map[string][]fuel.RefuelEvent
	riskScores    map[string]domainrisk.TruckScore
	anomalies     []domainrisk.Anomaly
	states        map[string]domainrisk.AlgorithmState // truck_id|sensor -> state
	correlations  []domainrisk.Correlation
	estimatorBlobs map[string][]byte
	overrides     []config.Override
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		metrics:        make(map[string]fuel.Metric),
		metricHistory:  make(map[string][]fuel.Metric),
		refuels:        make(map[string][]fuel.RefuelEvent),
		riskScores:     make(map[string]domainrisk.TruckScore),
		states:         make(map[string]domainrisk.AlgorithmState),
		estimatorBlobs: make(map[string][]byte),
	}
}

// SeedOverrides installs the initial set of config overrides, e.g. for
// tests that exercise ListActiveOverrides.
func (s *Store) SeedOverrides(overrides []config.Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = overrides
}

func (s *Store) UpsertMetric(ctx context.Context, m fuel.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[m.TruckID] = m
	s.metricHistory[m.TruckID] = append(s.metricHistory[m.TruckID], m)
	return nil
}

func (s *Store) LatestMetrics(ctx context.Context) ([]fuel.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fuel.Metric, 0, len(s.metrics))
	for _, m := range s.metrics {
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) MetricsSince(ctx context.Context, truckID string, hours int) ([]fuel.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]fuel.Metric(nil), s.metricHistory[truckID]...), nil
}

func (s *Store) InsertRefuel(ctx context.Context, e fuel.RefuelEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuels[e.TruckID] = append(s.refuels[e.TruckID], e)
	return nil
}

func (s *Store) RecentRefuels(ctx context.Context, truckID string, limit int) ([]fuel.RefuelEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.refuels[truckID]
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]fuel.RefuelEvent(nil), events...), nil
}

func (s *Store) InsertRiskScore(ctx context.Context, score domainrisk.TruckScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskScores[score.TruckID] = score
	return nil
}

func (s *Store) LatestRiskScores(ctx context.Context) ([]domainrisk.TruckScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainrisk.TruckScore, 0, len(s.riskScores))
	for _, sc := range s.riskScores {
		out = append(out, sc)
	}
	return out, nil
}

func (s *Store) InsertAnomaly(ctx context.Context, a domainrisk.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anomalies = append(s.anomalies, a)
	return nil
}

func (s *Store) RecentAnomalies(ctx context.Context, hours int) ([]domainrisk.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domainrisk.Anomaly(nil), s.anomalies...), nil
}

func stateKey(truckID, sensor string) string { return truckID + "|" + sensor }

func (s *Store) UpsertState(ctx context.Context, state domainrisk.AlgorithmState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey(state.TruckID, state.Sensor)] = state
	return nil
}

func (s *Store) LoadAllStates(ctx context.Context) ([]domainrisk.AlgorithmState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainrisk.AlgorithmState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) InsertCorrelation(ctx context.Context, c domainrisk.Correlation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correlations = append(s.correlations, c)
	return nil
}

func (s *Store) RecentCorrelations(ctx context.Context, hours int) ([]domainrisk.Correlation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domainrisk.Correlation(nil), s.correlations...), nil
}

func (s *Store) InsertDEFPrediction(ctx context.Context, truckID string, pred domainrisk.DEFPrediction) error {
	return nil // history-only sink; not read back anywhere in this store
}

func (s *Store) ListActiveOverrides(ctx context.Context) ([]config.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]config.Override(nil), s.overrides...), nil
}

func (s *Store) SaveEstimatorState(ctx context.Context, truckID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimatorBlobs[truckID] = blob
	return nil
}

func (s *Store) LoadEstimatorState(ctx context.Context, truckID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.estimatorBlobs[truckID]
	return blob, ok, nil
}
