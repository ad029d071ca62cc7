package estimator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestPredictPrefersECUOverSensorWhenValid(t *testing.T) {
	s := NewState("truck-1", 80)
	now := time.Now().UTC()

	s.LastECUTotalGal = floatPtr(10.0)
	total := floatPtr(11.0) // +1 gal delta
	result := s.Predict(time.Hour, floatPtr(0), ConsumptionInputs{
		ECUTotalFuelGal:     total,
		SensorFuelRateLPerH: floatPtr(20.0),
		IdleFallbackGPH:     0.8,
		CapacityGallons:     100,
	}, now)

	assert.Equal(t, "ecu", result.Source)
	assert.InDelta(t, 1.0, result.ConsumptionGalPerH, 0.001)
}

func TestPredictFallsBackToSensorWhenNoECU(t *testing.T) {
	s := NewState("truck-1", 80)
	now := time.Now().UTC()

	result := s.Predict(time.Hour, floatPtr(0), ConsumptionInputs{
		SensorFuelRateLPerH: floatPtr(gallonsPerLiter * 2), // 2 gal/h
		IdleFallbackGPH:     0.8,
		CapacityGallons:     100,
	}, now)

	assert.Equal(t, "sensor", result.Source)
	assert.InDelta(t, 2.0, result.ConsumptionGalPerH, 0.001)
}

func TestPredictFallsBackToConstantWhenNoSignals(t *testing.T) {
	s := NewState("truck-1", 80)
	now := time.Now().UTC()

	result := s.Predict(time.Hour, nil, ConsumptionInputs{
		IdleFallbackGPH: 0.8,
		CapacityGallons: 100,
	}, now)

	assert.Equal(t, "fallback", result.Source)
	assert.Equal(t, 0.8, result.ConsumptionGalPerH)
}

func TestPredictDrawsDownMeanPctByConsumption(t *testing.T) {
	s := NewState("truck-1", 80)
	now := time.Now().UTC()

	s.Predict(time.Hour, floatPtr(0), ConsumptionInputs{
		SensorFuelRateLPerH: floatPtr(gallonsPerLiter * 10), // 10 gal/h
		IdleFallbackGPH:     0.8,
		CapacityGallons:     100,
	}, now)

	// 10 gal/h over 100 gal capacity for 1h = 10 pct drawn down.
	assert.InDelta(t, 70.0, s.MeanPct, 0.01)
}

func TestPredictGrowsVarianceMoreWhileMoving(t *testing.T) {
	stationary := NewState("truck-1", 80)
	moving := NewState("truck-2", 80)
	now := time.Now().UTC()

	in := ConsumptionInputs{IdleFallbackGPH: 0.8, CapacityGallons: 100}
	stationary.Predict(time.Minute, floatPtr(0), in, now)
	moving.Predict(time.Minute, floatPtr(40), in, now)

	assert.Greater(t, moving.Variance, stationary.Variance)
}

func TestPredictClampsNegativeDtToZero(t *testing.T) {
	s := NewState("truck-1", 50)
	now := time.Now().UTC()
	before := s.MeanPct

	s.Predict(-time.Hour, floatPtr(0), ConsumptionInputs{
		SensorFuelRateLPerH: floatPtr(gallonsPerLiter * 10),
		CapacityGallons:     100,
	}, now)

	assert.Equal(t, before, s.MeanPct)
}

func TestValidateECUFlagsCounterResetAsFailure(t *testing.T) {
	s := NewState("truck-1", 80)
	s.LastECUTotalGal = floatPtr(50.0)

	ok, _ := s.validateECU(floatPtr(10.0), 1.0) // reset / large drop
	assert.False(t, ok)
	assert.Equal(t, 1, s.ECUFailures)
}

func TestValidateECUDegradesAfterRepeatedFailures(t *testing.T) {
	s := NewState("truck-1", 80)
	s.LastECUTotalGal = floatPtr(50.0)

	for i := 0; i < ecuFailureLimit; i++ {
		s.validateECU(floatPtr(50.0-float64(i+1)), 1.0) // descending => resets each time
	}

	require.True(t, s.ECUDegraded)
}

func TestValidateECURejectsImplausiblySteepDelta(t *testing.T) {
	s := NewState("truck-1", 80)
	s.LastECUTotalGal = floatPtr(10.0)

	ok, _ := s.validateECU(floatPtr(10.0+maxECUGalPerHour+1), 1.0)
	assert.False(t, ok)
}

func TestValidateECUDividesDeltaByElapsedHours(t *testing.T) {
	s := NewState("truck-1", 80)
	s.LastECUTotalGal = floatPtr(10.0)

	// 0.02 gal over a 30s poll cadence is 2.4 gal/h, not 0.02 gal/h.
	ok, rate := s.validateECU(floatPtr(10.02), (30*time.Second).Hours())
	require.True(t, ok)
	assert.InDelta(t, 2.4, rate, 0.001)
}

func TestValidateECUTreatsZeroElapsedTimeAsInvalid(t *testing.T) {
	s := NewState("truck-1", 80)
	s.LastECUTotalGal = floatPtr(10.0)

	ok, rate := s.validateECU(floatPtr(10.02), 0)
	assert.False(t, ok)
	assert.Equal(t, 0.0, rate)
}

func TestPredictAtRealPollCadenceDerivesECURateFromElapsedTime(t *testing.T) {
	s := NewState("truck-1", 80)
	now := time.Now().UTC()

	s.LastECUTotalGal = floatPtr(10.0)
	result := s.Predict(30*time.Second, floatPtr(0), ConsumptionInputs{
		ECUTotalFuelGal: floatPtr(10.02), // +0.02 gal over 30s
		IdleFallbackGPH: 0.8,
		CapacityGallons: 100,
	}, now)

	assert.Equal(t, "ecu", result.Source)
	assert.InDelta(t, 2.4, result.ConsumptionGalPerH, 0.001)
}
