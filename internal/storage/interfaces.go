// Package storage defines the persistence interfaces for derived fuel
// metrics, refuel events, and the risk/trend engine's history and state,
// plus the concrete Postgres and in-memory implementations.
package storage

import (
	"context"

	"github.com/fleetops/fleet-analytics-core/internal/config"
	"github.com/fleetops/fleet-analytics-core/internal/domain/fuel"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

// MetricStore persists the per-cycle derived fuel metric, one row per
// (timestamp, truck_id).
type MetricStore interface {
	UpsertMetric(ctx context.Context, m fuel.Metric) error
	LatestMetrics(ctx context.Context) ([]fuel.Metric, error)
	MetricsSince(ctx context.Context, truckID string, hours int) ([]fuel.Metric, error)
}

// RefuelStore persists finalized refuel events.
type RefuelStore interface {
	InsertRefuel(ctx context.Context, e fuel.RefuelEvent) error
	RecentRefuels(ctx context.Context, truckID string, limit int) ([]fuel.RefuelEvent, error)
}

// RiskHistoryStore persists computed per-truck risk scores over time.
type RiskHistoryStore interface {
	InsertRiskScore(ctx context.Context, s domainrisk.TruckScore) error
	LatestRiskScores(ctx context.Context) ([]domainrisk.TruckScore, error)
}

// AnomalyHistoryStore persists raised sensor/trend anomalies.
type AnomalyHistoryStore interface {
	InsertAnomaly(ctx context.Context, a domainrisk.Anomaly) error
	RecentAnomalies(ctx context.Context, hours int) ([]domainrisk.Anomaly, error)
}

// AlgorithmStateStore persists the EWMA/CUSUM/baseline state the trend
// engine needs to survive a restart.
type AlgorithmStateStore interface {
	UpsertState(ctx context.Context, s domainrisk.AlgorithmState) error
	LoadAllStates(ctx context.Context) ([]domainrisk.AlgorithmState, error)
}

// CorrelationEventStore persists fired failure-correlation patterns.
type CorrelationEventStore interface {
	InsertCorrelation(ctx context.Context, c domainrisk.Correlation) error
	RecentCorrelations(ctx context.Context, hours int) ([]domainrisk.Correlation, error)
}

// DEFHistoryStore persists DEF depletion predictions over time.
type DEFHistoryStore interface {
	InsertDEFPrediction(ctx context.Context, truckID string, pred domainrisk.DEFPrediction) error
}

// ConfigOverrideStore reads the DB-sourced runtime override table.
type ConfigOverrideStore interface {
	ListActiveOverrides(ctx context.Context) ([]config.Override, error)
}

// EstimatorStateStore persists the Kalman estimator's per-truck state blob,
// keyed opaquely by truck ID. Used as the fallback when Redis is disabled.
type EstimatorStateStore interface {
	SaveEstimatorState(ctx context.Context, truckID string, blob []byte) error
	LoadEstimatorState(ctx context.Context, truckID string) ([]byte, bool, error)
}

// Store is the full aggregate persistence surface the application wires
// through the service manager.
type Store interface {
	MetricStore
	RefuelStore
	RiskHistoryStore
	AnomalyHistoryStore
	AlgorithmStateStore
	CorrelationEventStore
	DEFHistoryStore
	ConfigOverrideStore
	EstimatorStateStore
}
