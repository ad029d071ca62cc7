package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	"github.com/fleetops/fleet-analytics-core/internal/domain/fuel"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
	"github.com/fleetops/fleet-analytics-core/internal/domain/telemetry"
)

// Adapter is one source detector: it inspects whatever inputs it needs and
// emits zero or more candidate action.Item values. Each adapter is run in
// isolation by Run so that one misbehaving source cannot block the others.
type Adapter func() []action.Item

// Run executes every adapter with no dispatch instrumentation. It is a
// convenience wrapper around RunWithHooks for callers (tests, one-off
// tooling) that don't care about per-adapter timing.
func Run(adapters ...Adapter) (items []action.Item, failures []string) {
	return RunWithHooks(core.NoopObservationHooks, adapters...)
}

// RunWithHooks executes every adapter, recovering from panics so one failing
// source cannot prevent the rest of the cycle from producing actions, then
// normalizes, scores, and deduplicates the combined output. hooks wraps each
// adapter dispatch so commandcenter can report per-adapter latency and
// failure counts.
func RunWithHooks(hooks core.ObservationHooks, adapters ...Adapter) (items []action.Item, failures []string) {
	var all []action.Item
	for i, adapter := range adapters {
		meta := map[string]string{"adapter": strconv.Itoa(i)}
		done := core.StartObservation(context.Background(), hooks, meta)
		before := len(failures)
		out := safeRun(adapter, i, &failures)
		var dispatchErr error
		if len(failures) > before {
			dispatchErr = errors.New(failures[len(failures)-1])
		}
		done(dispatchErr)
		all = append(all, out...)
	}
	for i := range all {
		all[i] = Finalize(all[i])
	}
	return Dedup(all), failures
}

func safeRun(adapter Adapter, index int, failures *[]string) (out []action.Item) {
	defer func() {
		if r := recover(); r != nil {
			*failures = append(*failures, fmt.Sprintf("adapter[%d] panicked: %v", index, r))
			out = nil
		}
	}()
	return adapter()
}

// PredictiveMaintenanceAdapter emits one item per truck whose risk score
// crosses the high/critical band, using the truck's top risk factor as the
// component.
func PredictiveMaintenanceAdapter(scores []domainrisk.TruckScore) Adapter {
	return func() []action.Item {
		var out []action.Item
		for _, s := range scores {
			if s.Level != domainrisk.LevelHigh && s.Level != domainrisk.LevelCritical {
				continue
			}
			component := "engine"
			if len(s.Factors) > 0 {
				component = s.Factors[0]
			}
			out = append(out, action.Item{
				TruckID:        s.TruckID,
				Category:       "predictive_maintenance",
				Component:      component,
				Title:          fmt.Sprintf("Elevated risk score (%.0f) for truck %s", s.Score, s.TruckID),
				Description:    fmt.Sprintf("%d open issue(s), %.0f days since last maintenance.", s.ActiveIssueCount, s.DaysSinceMaintenance),
				DaysToCritical: s.PredictedFailureDays,
				Confidence:     action.ConfidenceHigh,
				Sources:        []string{string(action.SourcePredictiveMaintenance)},
				CostIfIgnored:  "$500 - $5000",
			})
		}
		return out
	}
}

// MLAnomalyAdapter emits one item per raised sensor anomaly.
func MLAnomalyAdapter(anomalies []domainrisk.Anomaly) Adapter {
	return func() []action.Item {
		var out []action.Item
		for _, a := range anomalies {
			confidence := action.ConfidenceMedium
			if a.Severity == "critical" {
				confidence = action.ConfidenceHigh
			} else if a.Severity == "medium" {
				confidence = action.ConfidenceLow
			}

			// How far the CUSUM magnitude has pushed past its alert
			// threshold, squashed onto [0,1): 0 at the threshold itself,
			// approaching 1 as the magnitude grows without bound.
			anomalyScore := 0.0
			if a.Threshold > 0 && a.CUSUMValue > 0 {
				anomalyScore = 1 - a.Threshold/a.CUSUMValue
				if anomalyScore < 0 {
					anomalyScore = 0
				}
			}

			out = append(out, action.Item{
				TruckID:     a.TruckID,
				Category:    "ml_anomaly",
				Component:   a.Sensor,
				Title:       fmt.Sprintf("%s anomaly on %s", a.Type, a.Sensor),
				Description: fmt.Sprintf("value=%.2f ewma=%.2f cusum=%.2f z=%.2f", a.Value, a.EWMAValue, a.CUSUMValue, a.ZScore),
				CurrentValue: &a.Value,
				Threshold:   &a.Threshold,
				Confidence:  confidence,
				AnomalyScore: &anomalyScore,
				Sources:     []string{string(action.SourceMLAnomaly)},
				CostIfIgnored: "$200 - $2000",
			})
		}
		return out
	}
}

// SensorHealthAdapter emits one item per out-of-range reading discovered
// directly on a snapshot (complementing trend-based ML anomalies with
// hard-range violations).
func SensorHealthAdapter(snapshots []telemetry.Snapshot, outOfRange func(telemetry.Snapshot) []OutOfRangeReading) Adapter {
	return func() []action.Item {
		var out []action.Item
		for _, snap := range snapshots {
			for _, v := range outOfRange(snap) {
				value := v.Value
				out = append(out, action.Item{
					TruckID:      snap.TruckID,
					Category:     "sensor_health",
					Component:    v.Sensor,
					Title:        fmt.Sprintf("%s out of expected range", v.Sensor),
					Description:  fmt.Sprintf("reading %.2f is outside the expected operating range", v.Value),
					CurrentValue: &value,
					Confidence:   action.ConfidenceMedium,
					Sources:      []string{string(action.SourceSensorHealth)},
					CostIfIgnored: "$100 - $1000",
				})
			}
		}
		return out
	}
}

// OutOfRangeReading is one sensor value SensorHealthAdapter's caller
// determined to be outside its configured range.
type OutOfRangeReading struct {
	Sensor string
	Value  float64
}

// DTCEventsAdapter emits one item per truck reporting a non-empty DTC
// string.
func DTCEventsAdapter(snapshots []telemetry.Snapshot) Adapter {
	return func() []action.Item {
		var out []action.Item
		for _, snap := range snapshots {
			if snap.DTCCodes == "" {
				continue
			}
			out = append(out, action.Item{
				TruckID:     snap.TruckID,
				Category:    "dtc_events",
				Component:   "dtc",
				Title:       "Active diagnostic trouble code",
				Description: fmt.Sprintf("Reported codes: %s", snap.DTCCodes),
				Confidence:  action.ConfidenceHigh,
				Sources:     []string{string(action.SourceDTCEvents)},
				CostIfIgnored: "$150 - $3000",
			})
		}
		return out
	}
}

// RealTimePredictiveAdapter emits one item per truck with a sustained drift
// warning on its most recent fuel metric.
func RealTimePredictiveAdapter(metrics []fuel.Metric) Adapter {
	return func() []action.Item {
		var out []action.Item
		for _, m := range metrics {
			if !m.DriftWarning {
				continue
			}
			drift := m.DriftPct
			out = append(out, action.Item{
				TruckID:      m.TruckID,
				Category:     "real_time_predictive",
				Component:    "fuel_system",
				Title:        "Sustained fuel estimate drift",
				Description:  fmt.Sprintf("Estimated level has diverged from sensor by %.1f%% for a sustained period.", m.DriftPct),
				CurrentValue: &drift,
				Confidence:   action.ConfidenceHigh,
				Sources:      []string{string(action.SourceRealTimePredictive)},
				CostIfIgnored: "$0 - $500",
			})
		}
		return out
	}
}

// GPSQualityAdapter emits one item per truck whose current snapshot shows a
// degraded GPS fix (fewer than 4 satellites or HDOP above 5). Each snapshot
// is judged on its own; how long the degradation has lasted is not checked.
func GPSQualityAdapter(snapshots []telemetry.Snapshot) Adapter {
	return func() []action.Item {
		var out []action.Item
		for _, snap := range snapshots {
			degraded := (snap.Satellites != nil && *snap.Satellites < 4) || (snap.HDOP != nil && *snap.HDOP > 5)
			if !degraded {
				continue
			}
			out = append(out, action.Item{
				TruckID:     snap.TruckID,
				Category:    "gps_quality",
				Component:   "gps",
				Title:       "Degraded GPS fix quality",
				Description: "Satellite count or HDOP indicates an unreliable position fix.",
				Confidence:  action.ConfidenceLow,
				Sources:     []string{string(action.SourceGPSQuality)},
				CostIfIgnored: "$0 - $100",
			})
		}
		return out
	}
}

// VoltageMonitorAdapter emits one item per truck whose external voltage is
// outside the 11.5-14.8V healthy charging band. Engine state is not checked.
func VoltageMonitorAdapter(snapshots []telemetry.Snapshot) Adapter {
	return func() []action.Item {
		var out []action.Item
		for _, snap := range snapshots {
			if snap.VoltageExternal == nil {
				continue
			}
			v := *snap.VoltageExternal
			if v >= 11.5 && v <= 14.8 {
				continue
			}
			out = append(out, action.Item{
				TruckID:      snap.TruckID,
				Category:     "voltage_monitor",
				Component:    "electrical",
				Title:        "Voltage outside healthy charging band",
				Description:  fmt.Sprintf("External voltage reading %.1fV is outside the 11.5-14.8V band.", v),
				CurrentValue: snap.VoltageExternal,
				Confidence:   action.ConfidenceMedium,
				Sources:      []string{string(action.SourceVoltageMonitor)},
				CostIfIgnored: "$100 - $800",
			})
		}
		return out
	}
}

// IdleAnalysisAdapter emits one item per truck whose idle hours ratio
// (idle hours vs. engine hours) over the reporting window exceeds the
// efficiency threshold.
func IdleAnalysisAdapter(snapshots []telemetry.Snapshot, threshold float64) Adapter {
	return func() []action.Item {
		var out []action.Item
		for _, snap := range snapshots {
			if snap.IdleHours == nil || snap.EngineHours == nil || *snap.EngineHours <= 0 {
				continue
			}
			ratio := *snap.IdleHours / *snap.EngineHours
			if ratio <= threshold {
				continue
			}
			out = append(out, action.Item{
				TruckID:     snap.TruckID,
				Category:    "idle_analysis",
				Component:   "efficiency",
				Title:       "High idle-time ratio",
				Description: fmt.Sprintf("Idle hours are %.0f%% of engine hours, above the %.0f%% efficiency threshold.", ratio*100, threshold*100),
				Confidence:  action.ConfidenceLow,
				Sources:     []string{string(action.SourceIdleAnalysis)},
				CostIfIgnored: "$0 - $300",
			})
		}
		return out
	}
}
