package risk

import (
	"sort"
	"strings"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

// Inputs bundles everything ScoreTruck needs for one truck.
type Inputs struct {
	TruckID             string
	Actions             []action.Item
	DaysSinceMaintenance float64
	DegradingTrendItems  int
	ActiveSensorAlerts   int
}

// ScoreTruck computes a TruckScore per the weighted formula in §4.5.
func ScoreTruck(in Inputs) domainrisk.TruckScore {
	var critical, high, medium, low int
	for _, item := range in.Actions {
		switch item.Priority {
		case action.PriorityCritical:
			critical++
		case action.PriorityHigh:
			high++
		case action.PriorityMedium:
			medium++
		case action.PriorityLow:
			low++
		}
	}

	issueScore := min(40, 25*float64(critical)+15*float64(high)+5*float64(medium)+2*float64(low))

	var maintenanceScore float64
	switch {
	case in.DaysSinceMaintenance > 90:
		maintenanceScore = 20
	case in.DaysSinceMaintenance > 60:
		maintenanceScore = 12
	case in.DaysSinceMaintenance > 30:
		maintenanceScore = 5
	}

	trendScore := min(20, 7*float64(in.DegradingTrendItems))
	alertScore := min(20, 5*float64(in.ActiveSensorAlerts))

	total := issueScore + maintenanceScore + trendScore + alertScore
	total = clamp0to100(total)

	var predictedFailureDays *float64
	var minDays *float64
	for _, item := range in.Actions {
		if item.DaysToCritical != nil {
			if minDays == nil || *item.DaysToCritical < *minDays {
				v := *item.DaysToCritical
				minDays = &v
			}
		}
	}
	predictedFailureDays = minDays

	return domainrisk.TruckScore{
		TruckID:              in.TruckID,
		Score:                total,
		Level:                levelFor(total),
		Factors:              topFactors(in.Actions),
		DaysSinceMaintenance: in.DaysSinceMaintenance,
		ActiveIssueCount:     critical + high + medium + low,
		PredictedFailureDays: predictedFailureDays,
	}
}

func levelFor(score float64) domainrisk.Level {
	switch {
	case score >= 75:
		return domainrisk.LevelCritical
	case score >= 50:
		return domainrisk.LevelHigh
	case score >= 30:
		return domainrisk.LevelMedium
	case score >= 10:
		return domainrisk.LevelLow
	default:
		return domainrisk.LevelHealthy
	}
}

// topFactors returns up to 5 short strings summarizing the truck's highest-
// priority open issues.
func topFactors(items []action.Item) []string {
	ranked := make([]action.Item, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorityScore > ranked[j].PriorityScore
	})
	var out []string
	for _, item := range ranked {
		if item.Priority == action.PriorityNone {
			continue
		}
		factor := strings.TrimSpace(item.NormalizedComponent)
		if factor == "" {
			factor = strings.TrimSpace(item.Category)
		}
		if factor == "" {
			continue
		}
		out = append(out, factor+" ("+string(item.Priority)+")")
		if len(out) == 5 {
			break
		}
	}
	return out
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp0to100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
