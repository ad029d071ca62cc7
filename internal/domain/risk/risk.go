// Package risk holds the types shared between the sensor/trend engine, the
// risk & correlation engine, and their persistence layer.
package risk

import "time"

// Level is the coarse risk bucket derived from Score.
type Level string

const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelHealthy  Level = "healthy"
)

// TruckScore is a truck's computed risk, persisted to risk history.
type TruckScore struct {
	TruckID               string
	Score                 float64 // clamped [0,100]
	Level                 Level
	Factors               []string // up to 5 contributing factors
	DaysSinceMaintenance  float64
	ActiveIssueCount      int
	PredictedFailureDays  *float64
	SourceTimestamp       time.Time
}

// Correlation is one fired failure-correlation pattern.
type Correlation struct {
	ID                 string
	PrimarySensor       string
	CorrelatedSensors   []string
	Strength            float64 // [0,1]
	ProbableCause       string
	RecommendedAction   string
	AffectedTrucks      []string
}

// DEFPrediction is the projected diesel-exhaust-fluid depletion outlook for
// one truck.
type DEFPrediction struct {
	CurrentLevelPct          float64
	EstimatedLitersRemaining float64
	AvgConsumptionLPerDay    float64
	DaysUntilEmpty           float64
	DaysUntilDerate          float64
	LastFill                 *time.Time
}

// AnomalyType classifies how the sensor/trend engine flagged a value.
type AnomalyType string

const (
	AnomalyEWMA        AnomalyType = "EWMA"
	AnomalyCUSUM       AnomalyType = "CUSUM"
	AnomalyThreshold   AnomalyType = "THRESHOLD"
	AnomalyCorrelation AnomalyType = "CORRELATION"
)

// Anomaly is one entry written to the anomaly history table.
type Anomaly struct {
	TruckID    string
	Sensor     string
	Type       AnomalyType
	Severity   string
	Value      float64
	EWMAValue  float64
	CUSUMValue float64
	Threshold  float64
	ZScore     float64
	DetectedAt time.Time
}

// AlgorithmState is the persisted EWMA/CUSUM/baseline state for one
// (truck, sensor) pair.
type AlgorithmState struct {
	TruckID        string
	Sensor         string
	EWMAValue      float64
	EWMAVariance   float64
	CUSUMHigh      float64
	CUSUMLow       float64
	BaselineMean   float64
	BaselineStd    float64
	SamplesCount   int
	TrendDirection string // UP, DOWN, STABLE
	TrendSlope     float64
	UpdatedAt      time.Time
}

// Reading is one raw value observed for a (truck, sensor) pair, retained in
// a bounded in-memory ring.
type Reading struct {
	TruckID   string
	Sensor    string
	Value     float64
	Timestamp time.Time
	IsValid   bool
}
