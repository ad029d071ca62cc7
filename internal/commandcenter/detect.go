package commandcenter

import (
	"time"

	"github.com/fleetops/fleet-analytics-core/internal/actions"
	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	"github.com/fleetops/fleet-analytics-core/internal/sensorengine"
)

// DetectRequest is the input to POST /detect: an ad-hoc reading to run
// through the trend engine and priority scorer outside the normal
// telemetry cycle.
type DetectRequest struct {
	TruckID      string
	SensorName   string
	CurrentValue float64
	BaselineValue *float64
	Component    string
}

// DetectResult bundles the trend engine's observation with the resulting
// action item, downgraded per the temporal persistence gate when the
// confirming-readings requirement is not yet met.
type DetectResult struct {
	Observation sensorengine.Observation
	Confirmed   bool
	Item        *action.Item
}

// Detect runs one ad-hoc reading through engine and, if it raises an
// anomaly, builds a scored action item — downgrading a STOP_IMMEDIATELY
// action type to SCHEDULE_THIS_WEEK when the sensor's temporal persistence gate has not
// yet been satisfied.
func Detect(engine *sensorengine.Engine, req DetectRequest) DetectResult {
	now := time.Now().UTC()
	obs := engine.Observe(req.TruckID, req.SensorName, req.CurrentValue, now)

	result := DetectResult{Observation: obs}
	if !obs.Accepted || obs.Anomaly == nil {
		return result
	}

	confirmed := engine.Confirm(req.TruckID, req.SensorName, now)
	result.Confirmed = confirmed

	component := req.Component
	if component == "" {
		component = req.SensorName
	}

	value := obs.Anomaly.Value
	threshold := obs.Anomaly.Threshold
	item := action.Item{
		TruckID:      req.TruckID,
		Category:     "ml_anomaly",
		Component:    component,
		Title:        "Detected sensor anomaly",
		Description:  "Ad-hoc detection triggered by POST /detect.",
		CurrentValue: &value,
		Threshold:    &threshold,
		Confidence:   confidenceFor(obs.Anomaly.Severity),
		Sources:      []string{string(action.SourceMLAnomaly)},
		CostIfIgnored: "$100 - $1500",
	}
	finalized := actions.Finalize(item)
	if !confirmed && finalized.ActionType == action.TypeStopImmediately {
		finalized.ActionType = action.TypeScheduleThisWeek
	}
	result.Item = &finalized
	return result
}

func confidenceFor(severity string) action.Confidence {
	switch severity {
	case "critical":
		return action.ConfidenceHigh
	case "high":
		return action.ConfidenceHigh
	case "medium":
		return action.ConfidenceMedium
	default:
		return action.ConfidenceLow
	}
}
