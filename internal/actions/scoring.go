package actions

import (
	"math"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
)

// componentWeight is the fixed per-component criticality weight from
// spec.md §4.6, on a 0-3 scale; the priority score normalizes it to a
// 0-100 term as weight/3*100. Components the spec doesn't name explicitly
// (engine, fuel_system, dtc) fall back to defaultComponentWeight.
var componentWeight = map[string]float64{
	"transmission":   3.0,
	"brake_system":   3.0,
	"electrical":     2.8,
	"turbo_system":   2.5,
	"cooling_system": 2.3,
	"def_system":     2.0,
	"oil_system":     1.5,
	"efficiency":     1.0,
	"gps":            0.8,
}

const defaultComponentWeight = 2.0

func criticalityFor(component string) float64 {
	weight, ok := componentWeight[component]
	if !ok {
		weight = defaultComponentWeight
	}
	return weight / 3 * 100
}

// anomalyScoreFromConfidence maps a Confidence bucket onto the 0-100
// anomaly-severity term. It is the fallback for items that never got a raw
// AnomalyScore populated by their adapter (e.g. dtc/sensor-health items
// built from a discrete severity rather than a continuous score).
func anomalyScoreFromConfidence(c action.Confidence) float64 {
	switch c {
	case action.ConfidenceHigh:
		return 100
	case action.ConfidenceMedium:
		return 60
	case action.ConfidenceLow:
		return 30
	default:
		return 30
	}
}

// NormalizeAnomalyScore folds a raw anomaly score expressed on either the
// [0,1] or [0,100] scale onto [0,100].
func NormalizeAnomalyScore(raw float64) float64 {
	if raw <= 1.0 {
		raw *= 100
	}
	if raw < 0 {
		raw = 0
	}
	if raw > 100 {
		raw = 100
	}
	return raw
}

// costTerm extracts a 0-100 term from a "$min - $max" cost band, or
// (0, false) when the band cannot be parsed — callers exclude the term
// entirely in that case rather than guessing.
const costCeiling = 10000.0

func costTerm(band string) (float64, bool) {
	minCost, maxCost, ok := ParseCostBand(band)
	if !ok {
		return 0, false
	}
	avg := (minCost + maxCost) / 2
	term := avg / costCeiling * 100
	if term > 100 {
		term = 100
	}
	if term < 0 {
		term = 0
	}
	return term, true
}

// urgencyDecayDays is the e-folding timescale for the days-to-critical
// urgency term: urgency = 100 * exp(-days/urgencyDecayDays). A
// days_to_critical of 0 always yields urgency = 100.
const urgencyDecayDays = 25.0

func urgencyTerm(daysToCritical *float64) (float64, bool) {
	if daysToCritical == nil {
		return 0, false
	}
	d := *daysToCritical
	if d <= 0 {
		return 100, true
	}
	return 100 * math.Exp(-d/urgencyDecayDays), true
}

// Weights for the priority-score terms, per spec.md §4.6. When a term is
// unavailable (no days_to_critical, no parseable cost), it is dropped from
// both the numerator and the denominator rather than defaulted, so the
// remaining terms are re-normalized to still span [0, 100].
const (
	weightUrgency     = 0.45
	weightAnomaly     = 0.20
	weightCriticality = 0.25
	weightCost        = 0.10
)

// Score computes an Item's 0-100 PriorityScore and derives its Priority
// bucket. It returns the mutated Item for call-site convenience.
func Score(item action.Item) action.Item {
	var weightedSum, weightTotal float64

	if urgency, ok := urgencyTerm(item.DaysToCritical); ok {
		weightedSum += weightUrgency * urgency
		weightTotal += weightUrgency
	}

	anomaly := anomalyScoreFromConfidence(item.Confidence)
	if item.AnomalyScore != nil {
		anomaly = NormalizeAnomalyScore(*item.AnomalyScore)
	}
	weightedSum += weightAnomaly * anomaly
	weightTotal += weightAnomaly

	criticality := criticalityFor(item.NormalizedComponent)
	weightedSum += weightCriticality * criticality
	weightTotal += weightCriticality

	if cost, ok := costTerm(item.CostIfIgnored); ok {
		weightedSum += weightCost * cost
		weightTotal += weightCost
	}

	score := 0.0
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}
	score = clampScore(score)

	item.PriorityScore = score
	item.Priority = bucketFor(score)
	item.ActionType = actionTypeFor(item)
	return item
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func bucketFor(score float64) action.Priority {
	switch {
	case score >= 80:
		return action.PriorityCritical
	case score >= 60:
		return action.PriorityHigh
	case score >= 35:
		return action.PriorityMedium
	case score > 0:
		return action.PriorityLow
	default:
		return action.PriorityNone
	}
}

// actionTypeFor selects the recommended operator response from the item's
// priority bucket and days-to-critical horizon.
func actionTypeFor(item action.Item) action.Type {
	switch item.Priority {
	case action.PriorityCritical:
		if item.DaysToCritical != nil && *item.DaysToCritical <= 1 {
			return action.TypeStopImmediately
		}
		return action.TypeScheduleThisWeek
	case action.PriorityHigh:
		return action.TypeScheduleThisWeek
	case action.PriorityMedium:
		return action.TypeScheduleThisMonth
	case action.PriorityLow:
		return action.TypeMonitor
	default:
		return action.TypeNoAction
	}
}
