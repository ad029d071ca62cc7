package commandcenter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

func TestProjectCostSumsParseableBandsOnly(t *testing.T) {
	items := []action.Item{
		{CostIfIgnored: "$100 - $200"},
		{CostIfIgnored: "$50 - $150"},
		{CostIfIgnored: "not a cost"},
	}
	p := ProjectCost(items)
	assert.Equal(t, 150.0, p.MinTotal)
	assert.Equal(t, 350.0, p.MaxTotal)
	assert.Equal(t, 2, p.Count)
}

func TestBuildInsightsReportsCriticalCountAndCost(t *testing.T) {
	items := []action.Item{
		{Priority: action.PriorityCritical, CostIfIgnored: "$500 - $1000"},
	}
	health := FleetHealth{Score: 95, Status: "Excelente"}
	insights := BuildInsights(items, health, nil)
	assert.Contains(t, insights[0], "1 truck(s) have a critical action pending")
	found := false
	for _, i := range insights {
		if i == "Estimated cost of inaction across 1 action(s): $500 - $1000." {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildInsightsFlagsLowFleetHealth(t *testing.T) {
	health := FleetHealth{Score: 30, Status: "Alerta"}
	insights := BuildInsights(nil, health, nil)
	found := false
	for _, i := range insights {
		if i == "Fleet health is Alerta (30/100); immediate attention recommended." {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildInsightsReportsStrongCorrelations(t *testing.T) {
	correlations := []domainrisk.Correlation{
		{Strength: 0.8, ProbableCause: "cooling system stress", AffectedTrucks: []string{"truck-1", "truck-2"}},
		{Strength: 0.2, ProbableCause: "weak signal"},
	}
	insights := BuildInsights(nil, FleetHealth{Score: 100}, correlations)
	found := false
	for _, i := range insights {
		if i == "Correlated failure pattern detected across 2 truck(s): cooling system stress" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildInsightsFallsBackToAffirmativeWhenNothingToReport(t *testing.T) {
	insights := BuildInsights(nil, FleetHealth{Score: 100}, nil)
	assert.Equal(t, []string{"No open issues detected; fleet is operating normally."}, insights)
}
