package risk

import (
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

const (
	gallonsPerLiter      = 3.78541
	defPctOfDiesel       = 0.03 // typical DEF consumption as a fraction of diesel consumed
	defaultDailyDEFLiters = 4.0 // fallback when no mileage/mpg is supplied
	derateThresholdFraction = 0.05
	minDailyDEFLiters    = 0.1
)

// DEFInputs bundles the signals PredictDEF needs for one truck.
type DEFInputs struct {
	CurrentLevelPct    float64
	TankCapacityLiters float64
	DailyMiles         *float64
	AvgMPG             *float64
	DailyAverageLitersOverride *float64
}

// PredictDEF computes the DEF depletion outlook per §4.5.
func PredictDEF(in DEFInputs) domainrisk.DEFPrediction {
	currentLiters := in.CurrentLevelPct / 100 * in.TankCapacityLiters

	dailyDEFLiters := defaultDailyDEFLiters
	if in.DailyAverageLitersOverride != nil {
		dailyDEFLiters = *in.DailyAverageLitersOverride
	}
	if in.DailyMiles != nil && in.AvgMPG != nil && *in.AvgMPG > 0 {
		dailyDieselGal := *in.DailyMiles / *in.AvgMPG
		dailyDieselL := dailyDieselGal * gallonsPerLiter
		dailyDEFLiters = dailyDieselL * defPctOfDiesel
	}
	if dailyDEFLiters < minDailyDEFLiters {
		dailyDEFLiters = minDailyDEFLiters
	}

	daysUntilEmpty := currentLiters / dailyDEFLiters

	derateThresholdLiters := in.TankCapacityLiters * derateThresholdFraction
	daysUntilDerate := (currentLiters - derateThresholdLiters) / dailyDEFLiters
	if daysUntilDerate < 0 {
		daysUntilDerate = 0
	}

	return domainrisk.DEFPrediction{
		CurrentLevelPct:          in.CurrentLevelPct,
		EstimatedLitersRemaining: currentLiters,
		AvgConsumptionLPerDay:    dailyDEFLiters,
		DaysUntilEmpty:           daysUntilEmpty,
		DaysUntilDerate:          daysUntilDerate,
	}
}

// AlertLevel classifies a DEF prediction into the ok/medium/high/critical
// bands the HTTP API surfaces, alongside a short recommendation.
func AlertLevel(pred domainrisk.DEFPrediction) (level string, recommendation string) {
	switch {
	case pred.DaysUntilDerate <= 0:
		return "critical", "DEF is at or below the derate threshold; refill immediately to avoid a forced power reduction."
	case pred.DaysUntilEmpty <= 3:
		return "high", "DEF will run out within 3 days; schedule a refill now."
	case pred.DaysUntilEmpty <= 7:
		return "medium", "DEF will run out within a week; plan a refill on the next maintenance stop."
	default:
		return "ok", "DEF level is healthy."
	}
}
