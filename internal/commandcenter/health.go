// Package commandcenter implements the Command Center Aggregator: it runs
// the action-source adapters, merges their output with the risk and
// correlation engines, derives fleet-wide health, and caches the result for
// the HTTP API.
package commandcenter

import (
	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

// FleetHealth is the command-center's fleet-wide rollup.
type FleetHealth struct {
	Score       float64
	Status      string // Excelente, Bueno, Atención, Alerta, Crítico
	OKTrucks    int
	TotalTrucks int
	CriticalTrucks int
	HighTrucks     int
}

// statusFor maps the fleet health score to the five-band Spanish-language
// status labels spec.md §4.8 specifies.
func statusFor(score float64) string {
	switch {
	case score >= 90:
		return "Excelente"
	case score >= 75:
		return "Bueno"
	case score >= 55:
		return "Atención"
	case score >= 35:
		return "Alerta"
	default:
		return "Crítico"
	}
}

// ComputeFleetHealth derives the fleet-wide health score from per-truck risk
// scores. A truck with no computed score counts as healthy (100) so that a
// startup window with partial data does not falsely depress the fleet
// score.
func ComputeFleetHealth(scores []domainrisk.TruckScore, totalTrucks int) FleetHealth {
	if totalTrucks == 0 {
		return FleetHealth{Score: 100, Status: statusFor(100)}
	}

	scoredByTruck := make(map[string]domainrisk.TruckScore, len(scores))
	for _, s := range scores {
		scoredByTruck[s.TruckID] = s
	}

	var sum float64
	var ok, critical, high int
	for _, s := range scoredByTruck {
		sum += 100 - s.Score
		switch s.Level {
		case domainrisk.LevelCritical:
			critical++
		case domainrisk.LevelHigh:
			high++
		default:
			ok++
		}
	}
	unscored := totalTrucks - len(scoredByTruck)
	sum += float64(unscored) * 100
	ok += unscored

	avg := sum / float64(totalTrucks)
	return FleetHealth{
		Score: avg, Status: statusFor(avg),
		OKTrucks: ok, TotalTrucks: totalTrucks,
		CriticalTrucks: critical, HighTrucks: high,
	}
}

// UrgencySummary buckets open actions by priority.
type UrgencySummary struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

// Summarize counts items by priority bucket.
func Summarize(items []action.Item) UrgencySummary {
	var s UrgencySummary
	for _, item := range items {
		switch item.Priority {
		case action.PriorityCritical:
			s.Critical++
		case action.PriorityHigh:
			s.High++
		case action.PriorityMedium:
			s.Medium++
		case action.PriorityLow:
			s.Low++
		}
	}
	return s
}
