package risk

import (
	"github.com/google/uuid"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

// Pattern is one entry in the fixed failure-correlation catalog: a primary
// sensor/component, a set of correlated components, the minimum fraction
// of a truck's open actions that must match the correlated set for the
// pattern to fire, and the narrative text surfaced to operators.
type Pattern struct {
	Name              string
	PrimaryComponent  string
	CorrelatedComponents []string
	MinCorrelation    float64
	ProbableCause     string
	RecommendedAction string
}

// Catalog is the fixed set of failure-correlation patterns this engine
// checks every truck against.
var Catalog = []Pattern{
	{
		Name:             "cooling_oil_cascade",
		PrimaryComponent: "cooling_system",
		CorrelatedComponents: []string{"oil_system", "engine"},
		MinCorrelation:    0.5,
		ProbableCause:     "Elevated coolant temperature is driving oil breakdown and engine load alerts.",
		RecommendedAction: "Inspect cooling system and oil condition together before next dispatch.",
	},
	{
		Name:             "electrical_charging_system",
		PrimaryComponent: "electrical",
		CorrelatedComponents: []string{"engine"},
		MinCorrelation:    0.4,
		ProbableCause:     "Charging system instability is producing correlated electrical and engine alerts.",
		RecommendedAction: "Test alternator output and battery health.",
	},
	{
		Name:             "def_derate_risk",
		PrimaryComponent: "def_system",
		CorrelatedComponents: []string{"engine", "efficiency"},
		MinCorrelation:    0.5,
		ProbableCause:     "DEF depletion trend is coinciding with efficiency loss, indicating imminent derate.",
		RecommendedAction: "Schedule DEF refill before the predicted empty date.",
	},
	{
		Name:             "drivetrain_transmission",
		PrimaryComponent: "transmission",
		CorrelatedComponents: []string{"brake_system", "engine"},
		MinCorrelation:    0.4,
		ProbableCause:     "Transmission alerts are correlating with drivetrain-adjacent brake and engine signals.",
		RecommendedAction: "Schedule a drivetrain inspection covering transmission and brakes.",
	},
}

// truckIssues groups a truck's open actions by normalized component.
type truckIssues struct {
	truckID    string
	components map[string]bool
	total      int
}

// Detect evaluates the catalog against every truck's open actions and
// returns one correlation record per firing pattern, with strength equal
// to affected_trucks / total_trucks_with_any_issue.
func Detect(byTruck map[string][]action.Item) []domainrisk.Correlation {
	var issues []truckIssues
	for truckID, items := range byTruck {
		if len(items) == 0 {
			continue
		}
		components := make(map[string]bool)
		for _, item := range items {
			components[item.NormalizedComponent] = true
		}
		issues = append(issues, truckIssues{truckID: truckID, components: components, total: len(items)})
	}

	totalTrucksWithIssues := len(issues)
	if totalTrucksWithIssues == 0 {
		return nil
	}

	var out []domainrisk.Correlation
	for _, pattern := range Catalog {
		var affected []string
		for _, t := range issues {
			if !t.components[pattern.PrimaryComponent] {
				continue
			}
			matched := 0
			for _, item := range byTruck[t.truckID] {
				for _, c := range pattern.CorrelatedComponents {
					if item.NormalizedComponent == c {
						matched++
						break
					}
				}
			}
			ratio := float64(matched) / float64(t.total)
			if ratio >= pattern.MinCorrelation {
				affected = append(affected, t.truckID)
			}
		}
		if len(affected) == 0 {
			continue
		}
		strength := float64(len(affected)) / float64(totalTrucksWithIssues)
		out = append(out, domainrisk.Correlation{
			ID:                uuid.NewString(),
			PrimarySensor:     pattern.PrimaryComponent,
			CorrelatedSensors: pattern.CorrelatedComponents,
			Strength:          strength,
			ProbableCause:     pattern.ProbableCause,
			RecommendedAction: pattern.RecommendedAction,
			AffectedTrucks:    affected,
		})
	}
	return out
}
