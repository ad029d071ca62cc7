package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
)

func TestScoreTruckHealthyWithNoIssues(t *testing.T) {
	out := ScoreTruck(Inputs{TruckID: "truck-1"})
	assert.Equal(t, "truck-1", out.TruckID)
	assert.Equal(t, 0.0, out.Score)
	assert.Equal(t, domainrisk.LevelHealthy, out.Level)
	assert.Nil(t, out.PredictedFailureDays)
}

func TestScoreTruckCriticalIssuesReachCriticalLevel(t *testing.T) {
	days := 2.0
	out := ScoreTruck(Inputs{
		TruckID: "truck-2",
		Actions: []action.Item{
			{Priority: action.PriorityCritical, NormalizedComponent: "engine", DaysToCritical: &days},
			{Priority: action.PriorityCritical, NormalizedComponent: "cooling_system"},
		},
		DaysSinceMaintenance: 95,
		DegradingTrendItems:  3,
		ActiveSensorAlerts:   5,
	})
	assert.Equal(t, domainrisk.LevelCritical, out.Level)
	assert.Equal(t, 100.0, out.Score)
	assert.Equal(t, 4, out.ActiveIssueCount)
	pf := out.PredictedFailureDays
	assert.NotNil(t, pf)
	assert.Equal(t, 2.0, *pf)
}

func TestScoreTruckCapsIssueScoreAt40(t *testing.T) {
	var items []action.Item
	for i := 0; i < 10; i++ {
		items = append(items, action.Item{Priority: action.PriorityCritical})
	}
	out := ScoreTruck(Inputs{TruckID: "truck-3", Actions: items})
	assert.Equal(t, domainrisk.LevelMedium, out.Level)
	assert.LessOrEqual(t, out.Score, 40.0)
}

func TestTopFactorsSkipsNonePriorityAndCapsAtFive(t *testing.T) {
	var items []action.Item
	for i := 0; i < 8; i++ {
		items = append(items, action.Item{Priority: action.PriorityHigh, NormalizedComponent: "engine"})
	}
	items = append(items, action.Item{Priority: action.PriorityNone, NormalizedComponent: "ignored"})
	out := ScoreTruck(Inputs{TruckID: "truck-4", Actions: items})
	assert.Len(t, out.Factors, 5)
}

func TestLookupSPNKnownAndUnknown(t *testing.T) {
	info, ok := LookupSPN(190)
	assert.True(t, ok)
	assert.Equal(t, "engine", info.Component)

	_, ok = LookupSPN(999999)
	assert.False(t, ok)
}
