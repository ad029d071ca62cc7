// Package estimator implements the per-truck Kalman-filter fuel-level
// estimator: predict/update recursion, anchor-gated measurement trust,
// refuel/theft detection, and drift correction.
package estimator

import (
	"time"
)

// Kalman tuning constants. Variance and noise terms are in percent^2.
const (
	qStatic        = 0.05 // process noise per predict step while stationary
	qMoving        = 0.20 // ≈4x qStatic while in motion, per spec §4.2
	measurementR   = 1.5  // measurement noise trusted during an anchor update
	varianceFloor  = 0.05
	anchorUpdateVariance = 0.5 // variance reset applied after a trusted anchor update / refuel reset

	maxECUGalPerHour = 40.0
	ecuFailureLimit  = 5
	ecuRecoveryAfter = 10 * time.Minute

	staticAnchorMaxSpeedMPH = 2.0
	staticAnchorMaxDataAge  = 30 * time.Second
	staticAnchorHoldMin     = 30 * time.Second
	staticAnchorHoldMax     = 45 * time.Second

	microAnchorBandMPH = 2.0
	microAnchorHoldMin = 3 * time.Minute
	microAnchorHoldMax = 6 * time.Minute

	driftThresholdPct  = 30.0
	driftSustainedFor  = 2 * time.Hour

	fuelHistoryRingSize = 5

	refuelCooldown        = 30 * time.Minute
	refuelPendingWindow   = 10 * time.Minute
	refuelMinPctJump      = 15.0
	refuelMinGallons      = 5.0
	refuelAntiNoiseMargin = 0.25
	refuelGapAwareMin     = 5 * time.Minute
	refuelGapAwareMax     = 120 * time.Minute

	theftDropSuspected = 10.0
	theftDropConfirmed = 25.0

	gallonsPerLiter = 3.78541
)

// AnchorKind names which anchor condition currently holds, if any.
type AnchorKind string

const (
	AnchorNone   AnchorKind = "none"
	AnchorStatic AnchorKind = "static"
	AnchorMicro  AnchorKind = "micro"
)

// pendingRefuel accumulates consecutive jumps within the 10-minute pending
// window before a refuel is finalized.
type pendingRefuel struct {
	StartTime     time.Time
	LastJumpTime  time.Time
	PercentBefore float64
	PercentAfter  float64
}

// State is the complete Kalman and detector state carried for one truck
// across the lifetime of the process (and, via Serialize/Restore, across
// restarts).
type State struct {
	TruckID string

	MeanPct  float64
	Variance float64

	LastTimestamp time.Time

	LastECUTotalGal *float64
	ECUFailures     int
	ECUDegraded     bool
	ECUDegradedSince time.Time

	FuelHistoryRing []float64

	Pending       *pendingRefuel
	LastRefuelTime time.Time

	AnchorKind      AnchorKind
	AnchorSince     time.Time
	CruiseSpeedRef  float64

	DriftSince time.Time
}

// NewState seeds a fresh estimator state from the first trusted reading.
func NewState(truckID string, initialPct float64) *State {
	if initialPct < 0 {
		initialPct = 0
	}
	if initialPct > 100 {
		initialPct = 100
	}
	return &State{
		TruckID:  truckID,
		MeanPct:  initialPct,
		Variance: anchorUpdateVariance,
		AnchorKind: AnchorNone,
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (s *State) pushFuelHistory(pct float64) {
	s.FuelHistoryRing = append(s.FuelHistoryRing, pct)
	if len(s.FuelHistoryRing) > fuelHistoryRingSize {
		s.FuelHistoryRing = s.FuelHistoryRing[len(s.FuelHistoryRing)-fuelHistoryRingSize:]
	}
}

// medianHistory returns the median of the retained fuel-history ring. It
// returns (0, false) when the ring is empty.
func (s *State) medianHistory() (float64, bool) {
	n := len(s.FuelHistoryRing)
	if n == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), s.FuelHistoryRing...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2, true
	}
	return sorted[mid], true
}
