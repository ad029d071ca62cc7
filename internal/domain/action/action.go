// Package action holds the common action-item type produced by every
// detector adapter, merged by the deduplication stage, and consumed by the
// command-center HTTP API.
package action

// Priority is the coarse urgency bucket derived from PriorityScore.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
	PriorityNone     Priority = "NONE"
)

// Confidence expresses how trustworthy the underlying signal is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Type is the recommended operator response.
type Type string

const (
	TypeStopImmediately    Type = "STOP_IMMEDIATELY"
	TypeScheduleThisWeek   Type = "SCHEDULE_THIS_WEEK"
	TypeScheduleThisMonth  Type = "SCHEDULE_THIS_MONTH"
	TypeMonitor            Type = "MONITOR"
	TypeNoAction           Type = "NO_ACTION"
)

// Source identifies which upstream detector produced (or contributed to) an
// item. SourceWeight encodes the trust hierarchy from spec.md §4.7.
type Source string

const (
	SourceRealTimePredictive   Source = "Real-Time Predictive"
	SourcePredictiveMaintenance Source = "Predictive Maintenance"
	SourceMLAnomaly            Source = "ML Anomaly"
	SourceSensorHealth         Source = "Sensor Health"
	SourceDTCEvents            Source = "DTC Events"
	SourceDBAlerts             Source = "DB Alerts"
	SourceGPSQuality           Source = "GPS Quality"
	SourceVoltageMonitor       Source = "Voltage Monitor"
	SourceIdleAnalysis         Source = "Idle Analysis"
)

// SourceWeight is the fixed source-hierarchy trust table from spec.md §4.7;
// higher is more trusted.
var SourceWeight = map[Source]int{
	SourceRealTimePredictive:    100,
	SourcePredictiveMaintenance: 90,
	SourceMLAnomaly:             80,
	SourceSensorHealth:          70,
	SourceDTCEvents:             60,
	SourceDBAlerts:              50,
	SourceGPSQuality:            40,
	SourceVoltageMonitor:        40,
	SourceIdleAnalysis:          30,
}

// Item is a single actionable finding for one truck, normalized from an
// adapter's raw output. It is not persisted as-is; it lives for the
// duration of one generation cycle.
type Item struct {
	ID                string
	TruckID           string
	Priority          Priority
	PriorityScore     float64
	Category          string
	Component         string // raw, as reported by the source
	NormalizedComponent string
	Title             string
	Description       string
	DaysToCritical    *float64
	CostIfIgnored     string // "$min - $max"
	CurrentValue      *float64
	Trend             string
	Threshold         *float64
	Confidence        Confidence
	// AnomalyScore is a raw anomaly signal on either the [0,1] or [0,100]
	// scale, populated by adapters that carry a continuous score (e.g. an
	// ML detector's z-score-derived probability). nil means the adapter
	// only has a discrete Confidence bucket.
	AnomalyScore      *float64
	ActionType        Type
	ActionSteps       []string
	Icon              string
	Sources           []string
}
