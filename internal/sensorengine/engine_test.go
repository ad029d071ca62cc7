package sensorengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

func TestObserveRejectsOutOfRangeValues(t *testing.T) {
	e := NewEngine()
	obs := e.Observe("truck-1", "oil_press", 500, time.Now())
	assert.False(t, obs.Accepted)
	_, ok := e.Median("truck-1", "oil_press")
	assert.False(t, ok)
}

func TestObserveTracksEWMAAndMedian(t *testing.T) {
	e := NewEngine()
	base := time.Now()
	for i, v := range []float64{40, 42, 44, 46, 48} {
		obs := e.Observe("truck-1", "oil_press", v, base.Add(time.Duration(i)*time.Minute))
		require.True(t, obs.Accepted)
	}
	median, ok := e.Median("truck-1", "oil_press")
	require.True(t, ok)
	assert.Equal(t, 44.0, median)
}

func TestObserveRaisesCUSUMAnomalyOnSustainedDeviation(t *testing.T) {
	e := NewEngine()
	base := time.Now()
	// First reading anchors BaselineMean; subsequent readings hold steady
	// well above it so CUSUMHigh accumulates past the threshold.
	e.Observe("truck-1", "cool_temp", 200, base)
	var lastObs Observation
	for i := 1; i <= 5; i++ {
		lastObs = e.Observe("truck-1", "cool_temp", 230, base.Add(time.Duration(i)*time.Minute))
	}
	require.True(t, lastObs.Accepted)
	require.NotNil(t, lastObs.Anomaly)
	assert.Equal(t, "cool_temp", lastObs.Anomaly.Sensor)
}

func TestConfirmSatisfiesGateAfterConfiguredReadings(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	assert.False(t, e.Confirm("truck-1", "oil_press", now))
	assert.True(t, e.Confirm("truck-1", "oil_press", now.Add(time.Second)))
}

func TestConfirmResetsOutsideWindow(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	e.Confirm("truck-1", "oil_press", now)
	satisfied := e.Confirm("truck-1", "oil_press", now.Add(2*time.Minute))
	assert.False(t, satisfied, "window elapsed (60s), counter should reset to 1")
}

func TestConfirmAlwaysTrueForUngatedSensor(t *testing.T) {
	e := NewEngine()
	assert.True(t, e.Confirm("truck-1", "unknown_sensor", time.Now()))
}

func TestSeedStateInstallsPriorState(t *testing.T) {
	e := NewEngine()
	e.SeedState(risk.AlgorithmState{TruckID: "truck-1", Sensor: "oil_press", EWMAValue: 42})
	states := e.States()
	require.Len(t, states, 1)
	assert.Equal(t, "truck-1", states[0].TruckID)
}

func TestIsValidUnknownSensorAlwaysValid(t *testing.T) {
	assert.True(t, IsValid("unknown_sensor", 99999))
}
