package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

func TestPredictDEFUsesMileageWhenAvailable(t *testing.T) {
	miles, mpg := 500.0, 6.5
	pred := PredictDEF(DEFInputs{
		CurrentLevelPct:    50,
		TankCapacityLiters: 100,
		DailyMiles:         &miles,
		AvgMPG:             &mpg,
	})
	assert.InDelta(t, 50.0, pred.EstimatedLitersRemaining, 0.01)
	assert.Greater(t, pred.AvgConsumptionLPerDay, 0.0)
	assert.Greater(t, pred.DaysUntilEmpty, 0.0)
}

func TestPredictDEFFallsBackToDefaultConsumption(t *testing.T) {
	pred := PredictDEF(DEFInputs{CurrentLevelPct: 100, TankCapacityLiters: 80})
	assert.Equal(t, defaultDailyDEFLiters, pred.AvgConsumptionLPerDay)
}

func TestPredictDEFDaysUntilDerateNeverNegative(t *testing.T) {
	pred := PredictDEF(DEFInputs{CurrentLevelPct: 1, TankCapacityLiters: 50})
	assert.GreaterOrEqual(t, pred.DaysUntilDerate, 0.0)
}

func TestAlertLevelBands(t *testing.T) {
	level, _ := AlertLevel(domainrisk.DEFPrediction{DaysUntilDerate: 0, DaysUntilEmpty: 10})
	assert.Equal(t, "critical", level)

	level, _ = AlertLevel(domainrisk.DEFPrediction{DaysUntilDerate: 2, DaysUntilEmpty: 2})
	assert.Equal(t, "high", level)

	level, _ = AlertLevel(domainrisk.DEFPrediction{DaysUntilDerate: 5, DaysUntilEmpty: 5})
	assert.Equal(t, "medium", level)

	level, _ = AlertLevel(domainrisk.DEFPrediction{DaysUntilDerate: 20, DaysUntilEmpty: 20})
	assert.Equal(t, "ok", level)
}
