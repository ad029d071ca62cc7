package sensorengine

import (
	"sync"
	"time"

	"github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

const (
	ringSize     = 10
	ewmaAlpha    = 0.3
	cusumTarget0 = 0.0
	cusumThreshold = 5.0
)

type key struct {
	truckID string
	sensor  string
}

// confirmation tracks consecutive readings that would justify a
// STOP-commanding action, within the sensor's bounded window.
type confirmation struct {
	count     int
	windowEnd time.Time
}

// Engine owns the per-(truck, sensor) ring buffers, EWMA/CUSUM state, and
// persistence-gate counters. Every exported method is safe for concurrent
// use; a single mutex is held only for the duration of one map update, per
// the shared-resource policy.
type Engine struct {
	mu            sync.Mutex
	rings         map[key][]risk.Reading
	states        map[key]*risk.AlgorithmState
	confirmations map[key]*confirmation
}

// NewEngine returns an empty trend engine.
func NewEngine() *Engine {
	return &Engine{
		rings:         make(map[key][]risk.Reading),
		states:        make(map[key]*risk.AlgorithmState),
		confirmations: make(map[key]*confirmation),
	}
}

// SeedState installs previously persisted algorithm state, e.g. on startup.
func (e *Engine) SeedState(s risk.AlgorithmState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := key{truckID: s.TruckID, sensor: s.Sensor}
	cp := s
	e.states[k] = &cp
}

// Observation is what Observe returns for one ingested reading: whether it
// was accepted, the resulting algorithm state, and any anomaly raised.
type Observation struct {
	Accepted bool
	State    risk.AlgorithmState
	Anomaly  *risk.Anomaly
}

// Observe validates, rings, and runs EWMA/CUSUM for one (truck, sensor)
// reading. Invalid values are dropped and do not displace prior ring
// entries.
func (e *Engine) Observe(truckID, sensor string, value float64, ts time.Time) Observation {
	if !IsValid(sensor, value) {
		return Observation{Accepted: false}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	k := key{truckID: truckID, sensor: sensor}
	e.rings[k] = append(e.rings[k], risk.Reading{TruckID: truckID, Sensor: sensor, Value: value, Timestamp: ts, IsValid: true})
	if len(e.rings[k]) > ringSize {
		e.rings[k] = e.rings[k][len(e.rings[k])-ringSize:]
	}

	st, ok := e.states[k]
	if !ok {
		st = &risk.AlgorithmState{TruckID: truckID, Sensor: sensor, EWMAValue: value, BaselineMean: value, TrendDirection: "STABLE"}
		e.states[k] = st
	}

	prevEWMA := st.EWMAValue
	st.EWMAValue = ewmaAlpha*value + (1-ewmaAlpha)*prevEWMA
	st.EWMAVariance = (1-ewmaAlpha)*(st.EWMAVariance + ewmaAlpha*(value-prevEWMA)*(value-prevEWMA))

	deviation := value - st.BaselineMean
	st.CUSUMHigh = max0(st.CUSUMHigh + deviation)
	st.CUSUMLow = min0(st.CUSUMLow + deviation)

	st.SamplesCount++
	if st.SamplesCount > 1 {
		slope := value - prevEWMA
		st.TrendSlope = slope
		switch {
		case slope > 0.01:
			st.TrendDirection = "UP"
		case slope < -0.01:
			st.TrendDirection = "DOWN"
		default:
			st.TrendDirection = "STABLE"
		}
	}
	st.UpdatedAt = ts

	var anomaly *risk.Anomaly
	absLow := st.CUSUMLow
	if absLow < 0 {
		absLow = -absLow
	}
	cusumMagnitude := st.CUSUMHigh
	if absLow > cusumMagnitude {
		cusumMagnitude = absLow
	}
	if cusumMagnitude > cusumThreshold {
		anomaly = &risk.Anomaly{
			TruckID: truckID, Sensor: sensor, Type: risk.AnomalyCUSUM, Severity: severityFor(cusumMagnitude),
			Value: value, EWMAValue: st.EWMAValue, CUSUMValue: cusumMagnitude, Threshold: cusumThreshold,
			ZScore: zScore(value, st.BaselineMean, st.BaselineStd), DetectedAt: ts,
		}
	}

	return Observation{Accepted: true, State: *st, Anomaly: anomaly}
}

func severityFor(magnitude float64) string {
	switch {
	case magnitude > cusumThreshold*3:
		return "critical"
	case magnitude > cusumThreshold*1.5:
		return "high"
	default:
		return "medium"
	}
}

func zScore(value, mean, std float64) float64 {
	if std <= 0 {
		return 0
	}
	return (value - mean) / std
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func min0(v float64) float64 {
	if v > 0 {
		return 0
	}
	return v
}

// Median returns the median of the current ring for (truckID, sensor), or
// ok=false if empty.
func (e *Engine) Median(truckID, sensor string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ring := e.rings[key{truckID: truckID, sensor: sensor}]
	if len(ring) == 0 {
		return 0, false
	}
	values := make([]float64, len(ring))
	for i, r := range ring {
		values[i] = r.Value
	}
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j-1] > values[j]; j-- {
			values[j-1], values[j] = values[j], values[j-1]
		}
	}
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2, true
	}
	return values[mid], true
}

// Confirm records one confirming reading toward the temporal-persistence
// gate for (truckID, sensor) and reports whether the gate is now satisfied.
// Readings outside the sensor's configured window reset the counter.
func (e *Engine) Confirm(truckID, sensor string, ts time.Time) bool {
	window, ok := Confirmations[sensor]
	if !ok {
		return true // no gate configured: always satisfied
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	k := key{truckID: truckID, sensor: sensor}
	c, exists := e.confirmations[k]
	if !exists || ts.After(c.windowEnd) {
		c = &confirmation{count: 0, windowEnd: ts.Add(time.Duration(window.Window) * time.Second)}
		e.confirmations[k] = c
	}
	c.count++
	return c.count >= window.Readings
}

// ResetConfirmation clears the persistence-gate counter for (truckID,
// sensor), used once a gated action has fired or the underlying condition
// has cleared.
func (e *Engine) ResetConfirmation(truckID, sensor string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.confirmations, key{truckID: truckID, sensor: sensor})
}

// States returns a snapshot copy of every known algorithm state, for the
// State Persistence Loop to flush.
func (e *Engine) States() []risk.AlgorithmState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]risk.AlgorithmState, 0, len(e.states))
	for _, s := range e.states {
		out = append(out, *s)
	}
	return out
}
