package commandcenter

import (
	"fmt"

	"github.com/fleetops/fleet-analytics-core/internal/actions"
	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

// CostProjection is the fleet-wide projected cost-of-inaction, aggregated
// from every open action's "$min - $max" band.
type CostProjection struct {
	MinTotal float64
	MaxTotal float64
	Count    int
}

// ProjectCost sums every item's parseable cost band. Unparseable bands are
// skipped and do not affect Count.
func ProjectCost(items []action.Item) CostProjection {
	var p CostProjection
	for _, item := range items {
		minCost, maxCost, ok := actions.ParseCostBand(item.CostIfIgnored)
		if !ok {
			continue
		}
		p.MinTotal += minCost
		p.MaxTotal += maxCost
		p.Count++
	}
	return p
}

// BuildInsights produces a short list of human-readable observations from
// the current cycle's actions, fleet health, and correlations. When there
// is nothing to report, it returns a single affirmative insight rather than
// an empty list, per §8's boundary behavior.
func BuildInsights(items []action.Item, health FleetHealth, correlations []domainrisk.Correlation) []string {
	var insights []string

	criticalTrucks := make(map[string]bool)
	for _, item := range items {
		if item.Priority == action.PriorityCritical {
			criticalTrucks[item.TruckID] = true
		}
	}
	if len(criticalTrucks) > 0 {
		insights = append(insights, fmt.Sprintf("%d truck(s) have a critical action pending.", len(criticalTrucks)))
	}

	if health.Score < 55 {
		insights = append(insights, fmt.Sprintf("Fleet health is %s (%.0f/100); immediate attention recommended.", health.Status, health.Score))
	}

	for _, c := range correlations {
		if c.Strength >= 0.5 {
			insights = append(insights, fmt.Sprintf("Correlated failure pattern detected across %d truck(s): %s", len(c.AffectedTrucks), c.ProbableCause))
		}
	}

	cost := ProjectCost(items)
	if cost.Count > 0 {
		insights = append(insights, fmt.Sprintf("Estimated cost of inaction across %d action(s): $%.0f - $%.0f.", cost.Count, cost.MinTotal, cost.MaxTotal))
	}

	if len(insights) == 0 {
		insights = append(insights, "No open issues detected; fleet is operating normally.")
	}

	return insights
}
