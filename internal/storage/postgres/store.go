// Package postgres implements the storage interfaces backed by the
// operational PostgreSQL database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fleetops/fleet-analytics-core/internal/config"
	"github.com/fleetops/fleet-analytics-core/internal/domain/fuel"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

// Store implements internal/storage.Store backed by the operational store.
type Store struct {
	db *sqlx.DB
}

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertMetric(ctx context.Context, m fuel.Metric) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fuel_metrics (
			timestamp_utc, truck_id, carrier_id, status, latitude, longitude, speed_mph,
			sensor_pct, estimated_pct, estimated_gallons, estimated_liters,
			consumption_l_per_h, consumption_gal_per_h, mpg,
			rpm, engine_hours, odometer_miles, altitude_ft, hdop, coolant_temp_f,
			idle_mode, idle_method, drift_pct, drift_warning, data_age_minutes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25
		)
		ON CONFLICT (timestamp_utc, truck_id) DO UPDATE SET
			carrier_id = EXCLUDED.carrier_id,
			status = EXCLUDED.status,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			speed_mph = EXCLUDED.speed_mph,
			sensor_pct = EXCLUDED.sensor_pct,
			estimated_pct = EXCLUDED.estimated_pct,
			estimated_gallons = EXCLUDED.estimated_gallons,
			estimated_liters = EXCLUDED.estimated_liters,
			consumption_l_per_h = EXCLUDED.consumption_l_per_h,
			consumption_gal_per_h = EXCLUDED.consumption_gal_per_h,
			mpg = EXCLUDED.mpg,
			rpm = EXCLUDED.rpm,
			engine_hours = EXCLUDED.engine_hours,
			odometer_miles = EXCLUDED.odometer_miles,
			altitude_ft = EXCLUDED.altitude_ft,
			hdop = EXCLUDED.hdop,
			coolant_temp_f = EXCLUDED.coolant_temp_f,
			idle_mode = EXCLUDED.idle_mode,
			idle_method = EXCLUDED.idle_method,
			drift_pct = EXCLUDED.drift_pct,
			drift_warning = EXCLUDED.drift_warning,
			data_age_minutes = EXCLUDED.data_age_minutes
	`,
		m.Timestamp, m.TruckID, m.CarrierID, m.Status, m.Latitude, m.Longitude, m.SpeedMPH,
		m.SensorPct, m.EstimatedPct, m.EstimatedGallons, m.EstimatedLiters,
		m.ConsumptionLPerH, m.ConsumptionGalPerH, m.MPG,
		m.RPM, m.EngineHours, m.OdometerMiles, m.AltitudeFt, m.HDOP, m.CoolantTempF,
		string(m.IdleMode), m.IdleMethod, m.DriftPct, m.DriftWarning, m.DataAgeMinutes,
	)
	return err
}

type metricRow struct {
	Timestamp           time.Time `db:"timestamp_utc"`
	TruckID             string    `db:"truck_id"`
	CarrierID           string    `db:"carrier_id"`
	Status              string    `db:"status"`
	Latitude            *float64  `db:"latitude"`
	Longitude           *float64  `db:"longitude"`
	SpeedMPH            *float64  `db:"speed_mph"`
	SensorPct           *float64  `db:"sensor_pct"`
	EstimatedPct        float64   `db:"estimated_pct"`
	EstimatedGallons    float64   `db:"estimated_gallons"`
	EstimatedLiters     float64   `db:"estimated_liters"`
	ConsumptionLPerH    float64   `db:"consumption_l_per_h"`
	ConsumptionGalPerH  float64   `db:"consumption_gal_per_h"`
	MPG                 *float64  `db:"mpg"`
	RPM                 *float64  `db:"rpm"`
	EngineHours         *float64  `db:"engine_hours"`
	OdometerMiles       *float64  `db:"odometer_miles"`
	AltitudeFt          *float64  `db:"altitude_ft"`
	HDOP                *float64  `db:"hdop"`
	CoolantTempF        *float64  `db:"coolant_temp_f"`
	IdleMode            string    `db:"idle_mode"`
	IdleMethod          string    `db:"idle_method"`
	DriftPct            float64   `db:"drift_pct"`
	DriftWarning        bool      `db:"drift_warning"`
	DataAgeMinutes      float64   `db:"data_age_minutes"`
}

func (r metricRow) toDomain() fuel.Metric {
	return fuel.Metric{
		Timestamp: r.Timestamp, TruckID: r.TruckID, CarrierID: r.CarrierID, Status: r.Status,
		Latitude: r.Latitude, Longitude: r.Longitude, SpeedMPH: r.SpeedMPH,
		SensorPct: r.SensorPct, EstimatedPct: r.EstimatedPct, EstimatedGallons: r.EstimatedGallons,
		EstimatedLiters: r.EstimatedLiters, ConsumptionLPerH: r.ConsumptionLPerH,
		ConsumptionGalPerH: r.ConsumptionGalPerH, MPG: r.MPG,
		RPM: r.RPM, EngineHours: r.EngineHours, OdometerMiles: r.OdometerMiles,
		AltitudeFt: r.AltitudeFt, HDOP: r.HDOP, CoolantTempF: r.CoolantTempF,
		IdleMode: fuel.IdleMode(r.IdleMode), IdleMethod: r.IdleMethod,
		DriftPct: r.DriftPct, DriftWarning: r.DriftWarning, DataAgeMinutes: r.DataAgeMinutes,
	}
}

func (s *Store) LatestMetrics(ctx context.Context) ([]fuel.Metric, error) {
	var rows []metricRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT ON (truck_id) *
		FROM fuel_metrics
		ORDER BY truck_id, timestamp_utc DESC
	`)
	if err != nil {
		return nil, err
	}
	out := make([]fuel.Metric, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) MetricsSince(ctx context.Context, truckID string, hours int) ([]fuel.Metric, error) {
	var rows []metricRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM fuel_metrics
		WHERE truck_id = $1 AND timestamp_utc >= now() - ($2 || ' hours')::interval
		ORDER BY timestamp_utc ASC
	`, truckID, hours)
	if err != nil {
		return nil, err
	}
	out := make([]fuel.Metric, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) InsertRefuel(ctx context.Context, e fuel.RefuelEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refuel_events (truck_id, start_time, end_time, percent_before, percent_after, gallons_added, class, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (truck_id, end_time) DO NOTHING
	`, e.TruckID, e.StartTime, e.EndTime, e.PercentBefore, e.PercentAfter, e.GallonsAdded, string(e.Class), string(e.Source))
	return err
}

type refuelRow struct {
	TruckID       string    `db:"truck_id"`
	StartTime     time.Time `db:"start_time"`
	EndTime       time.Time `db:"end_time"`
	PercentBefore float64   `db:"percent_before"`
	PercentAfter  float64   `db:"percent_after"`
	GallonsAdded  float64   `db:"gallons_added"`
	Class         string    `db:"class"`
	Source        string    `db:"source"`
}

func (s *Store) RecentRefuels(ctx context.Context, truckID string, limit int) ([]fuel.RefuelEvent, error) {
	var rows []refuelRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT truck_id, start_time, end_time, percent_before, percent_after, gallons_added, class, source
		FROM refuel_events WHERE truck_id = $1 ORDER BY end_time DESC LIMIT $2
	`, truckID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]fuel.RefuelEvent, len(rows))
	for i, r := range rows {
		out[i] = fuel.RefuelEvent{
			TruckID: r.TruckID, StartTime: r.StartTime, EndTime: r.EndTime,
			PercentBefore: r.PercentBefore, PercentAfter: r.PercentAfter, GallonsAdded: r.GallonsAdded,
			Class: fuel.RefuelClass(r.Class), Source: fuel.RefuelSource(r.Source),
		}
	}
	return out, nil
}

func (s *Store) InsertRiskScore(ctx context.Context, score domainrisk.TruckScore) error {
	factorsJSON, err := json.Marshal(score.Factors)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cc_risk_history (truck_id, score, level, factors, days_since_maintenance, active_issue_count, predicted_failure_days, source_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, score.TruckID, score.Score, string(score.Level), factorsJSON, score.DaysSinceMaintenance, score.ActiveIssueCount, score.PredictedFailureDays, score.SourceTimestamp)
	return err
}

type riskRow struct {
	TruckID              string     `db:"truck_id"`
	Score                float64    `db:"score"`
	Level                string     `db:"level"`
	Factors              []byte     `db:"factors"`
	DaysSinceMaintenance float64    `db:"days_since_maintenance"`
	ActiveIssueCount     int        `db:"active_issue_count"`
	PredictedFailureDays *float64   `db:"predicted_failure_days"`
	SourceTimestamp      time.Time  `db:"source_timestamp"`
}

func (s *Store) LatestRiskScores(ctx context.Context) ([]domainrisk.TruckScore, error) {
	var rows []riskRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT ON (truck_id) truck_id, score, level, factors, days_since_maintenance, active_issue_count, predicted_failure_days, source_timestamp
		FROM cc_risk_history ORDER BY truck_id, source_timestamp DESC
	`)
	if err != nil {
		return nil, err
	}
	out := make([]domainrisk.TruckScore, len(rows))
	for i, r := range rows {
		var factors []string
		_ = json.Unmarshal(r.Factors, &factors)
		out[i] = domainrisk.TruckScore{
			TruckID: r.TruckID, Score: r.Score, Level: domainrisk.Level(r.Level), Factors: factors,
			DaysSinceMaintenance: r.DaysSinceMaintenance, ActiveIssueCount: r.ActiveIssueCount,
			PredictedFailureDays: r.PredictedFailureDays, SourceTimestamp: r.SourceTimestamp,
		}
	}
	return out, nil
}

func (s *Store) InsertAnomaly(ctx context.Context, a domainrisk.Anomaly) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cc_anomaly_history (truck_id, sensor, type, severity, value, ewma_value, cusum_value, threshold, z_score, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.TruckID, a.Sensor, string(a.Type), a.Severity, a.Value, a.EWMAValue, a.CUSUMValue, a.Threshold, a.ZScore, a.DetectedAt)
	return err
}

type anomalyRow struct {
	TruckID    string    `db:"truck_id"`
	Sensor     string    `db:"sensor"`
	Type       string    `db:"type"`
	Severity   string    `db:"severity"`
	Value      float64   `db:"value"`
	EWMAValue  float64   `db:"ewma_value"`
	CUSUMValue float64   `db:"cusum_value"`
	Threshold  float64   `db:"threshold"`
	ZScore     float64   `db:"z_score"`
	DetectedAt time.Time `db:"detected_at"`
}

func (s *Store) RecentAnomalies(ctx context.Context, hours int) ([]domainrisk.Anomaly, error) {
	var rows []anomalyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT truck_id, sensor, type, severity, value, ewma_value, cusum_value, threshold, z_score, detected_at
		FROM cc_anomaly_history
		WHERE detected_at >= now() - ($1 || ' hours')::interval
		ORDER BY detected_at DESC
	`, hours)
	if err != nil {
		return nil, err
	}
	out := make([]domainrisk.Anomaly, len(rows))
	for i, r := range rows {
		out[i] = domainrisk.Anomaly{
			TruckID: r.TruckID, Sensor: r.Sensor, Type: domainrisk.AnomalyType(r.Type), Severity: r.Severity,
			Value: r.Value, EWMAValue: r.EWMAValue, CUSUMValue: r.CUSUMValue, Threshold: r.Threshold,
			ZScore: r.ZScore, DetectedAt: r.DetectedAt,
		}
	}
	return out, nil
}

func (s *Store) UpsertState(ctx context.Context, state domainrisk.AlgorithmState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cc_algorithm_state (truck_id, sensor_name, ewma_value, ewma_variance, cusum_high, cusum_low, baseline_mean, baseline_std, samples_count, trend_direction, trend_slope, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (truck_id, sensor_name) DO UPDATE SET
			ewma_value = EXCLUDED.ewma_value, ewma_variance = EXCLUDED.ewma_variance,
			cusum_high = EXCLUDED.cusum_high, cusum_low = EXCLUDED.cusum_low,
			baseline_mean = EXCLUDED.baseline_mean, baseline_std = EXCLUDED.baseline_std,
			samples_count = EXCLUDED.samples_count, trend_direction = EXCLUDED.trend_direction,
			trend_slope = EXCLUDED.trend_slope, updated_at = EXCLUDED.updated_at
	`, state.TruckID, state.Sensor, state.EWMAValue, state.EWMAVariance, state.CUSUMHigh, state.CUSUMLow,
		state.BaselineMean, state.BaselineStd, state.SamplesCount, state.TrendDirection, state.TrendSlope, state.UpdatedAt)
	return err
}

type stateRow struct {
	TruckID        string    `db:"truck_id"`
	Sensor         string    `db:"sensor_name"`
	EWMAValue      float64   `db:"ewma_value"`
	EWMAVariance   float64   `db:"ewma_variance"`
	CUSUMHigh      float64   `db:"cusum_high"`
	CUSUMLow       float64   `db:"cusum_low"`
	BaselineMean   float64   `db:"baseline_mean"`
	BaselineStd    float64   `db:"baseline_std"`
	SamplesCount   int       `db:"samples_count"`
	TrendDirection string    `db:"trend_direction"`
	TrendSlope     float64   `db:"trend_slope"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (s *Store) LoadAllStates(ctx context.Context) ([]domainrisk.AlgorithmState, error) {
	var rows []stateRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM cc_algorithm_state`)
	if err != nil {
		return nil, err
	}
	out := make([]domainrisk.AlgorithmState, len(rows))
	for i, r := range rows {
		out[i] = domainrisk.AlgorithmState{
			TruckID: r.TruckID, Sensor: r.Sensor, EWMAValue: r.EWMAValue, EWMAVariance: r.EWMAVariance,
			CUSUMHigh: r.CUSUMHigh, CUSUMLow: r.CUSUMLow, BaselineMean: r.BaselineMean, BaselineStd: r.BaselineStd,
			SamplesCount: r.SamplesCount, TrendDirection: r.TrendDirection, TrendSlope: r.TrendSlope, UpdatedAt: r.UpdatedAt,
		}
	}
	return out, nil
}

func (s *Store) InsertCorrelation(ctx context.Context, c domainrisk.Correlation) error {
	correlatedJSON, err := json.Marshal(c.CorrelatedSensors)
	if err != nil {
		return err
	}
	affectedJSON, err := json.Marshal(c.AffectedTrucks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cc_correlation_events (pattern_id, primary_sensor, correlated_sensors, strength, probable_cause, recommended_action, affected_trucks, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, c.ID, c.PrimarySensor, correlatedJSON, c.Strength, c.ProbableCause, c.RecommendedAction, affectedJSON)
	return err
}

type correlationRow struct {
	PatternID         string    `db:"pattern_id"`
	PrimarySensor     string    `db:"primary_sensor"`
	CorrelatedSensors []byte    `db:"correlated_sensors"`
	Strength          float64   `db:"strength"`
	ProbableCause     string    `db:"probable_cause"`
	RecommendedAction string    `db:"recommended_action"`
	AffectedTrucks    []byte    `db:"affected_trucks"`
	DetectedAt        time.Time `db:"detected_at"`
}

func (s *Store) RecentCorrelations(ctx context.Context, hours int) ([]domainrisk.Correlation, error) {
	var rows []correlationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT pattern_id, primary_sensor, correlated_sensors, strength, probable_cause, recommended_action, affected_trucks, detected_at
		FROM cc_correlation_events
		WHERE detected_at >= now() - ($1 || ' hours')::interval
		ORDER BY detected_at DESC
	`, hours)
	if err != nil {
		return nil, err
	}
	out := make([]domainrisk.Correlation, len(rows))
	for i, r := range rows {
		var correlated, affected []string
		_ = json.Unmarshal(r.CorrelatedSensors, &correlated)
		_ = json.Unmarshal(r.AffectedTrucks, &affected)
		out[i] = domainrisk.Correlation{
			ID: r.PatternID, PrimarySensor: r.PrimarySensor, CorrelatedSensors: correlated,
			Strength: r.Strength, ProbableCause: r.ProbableCause, RecommendedAction: r.RecommendedAction,
			AffectedTrucks: affected,
		}
	}
	return out, nil
}

func (s *Store) InsertDEFPrediction(ctx context.Context, truckID string, pred domainrisk.DEFPrediction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cc_def_history (truck_id, current_level_pct, estimated_liters_remaining, avg_consumption_l_per_day, days_until_empty, days_until_derate, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, truckID, pred.CurrentLevelPct, pred.EstimatedLitersRemaining, pred.AvgConsumptionLPerDay, pred.DaysUntilEmpty, pred.DaysUntilDerate)
	return err
}

func (s *Store) ListActiveOverrides(ctx context.Context) ([]config.Override, error) {
	var rows []config.Override
	err := s.db.SelectContext(ctx, &rows, `
		SELECT key, value, category, active FROM command_center_config WHERE active = true
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) SaveEstimatorState(ctx context.Context, truckID string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cc_estimator_state (truck_id, state_blob, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (truck_id) DO UPDATE SET state_blob = EXCLUDED.state_blob, updated_at = now()
	`, truckID, blob)
	return err
}

func (s *Store) LoadEstimatorState(ctx context.Context, truckID string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.GetContext(ctx, &blob, `SELECT state_blob FROM cc_estimator_state WHERE truck_id = $1`, truckID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return blob, true, nil
}
