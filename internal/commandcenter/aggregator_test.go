package commandcenter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/actions"
	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

func testAdapter(truckID string, score float64) actions.Adapter {
	return func() []action.Item {
		return []action.Item{actions.Finalize(action.Item{TruckID: truckID, Category: "maintenance", Component: "engine", PriorityScore: score})}
	}
}

func TestAggregatorDashboardCachesWithinTTL(t *testing.T) {
	agg := New(time.Hour, time.Hour, logger.NewDefault("test"), core.NoopObservationHooks)
	in := Inputs{Adapters: []actions.Adapter{testAdapter("truck-1", 50)}, TotalTrucks: 1}

	first, err := agg.Dashboard(context.Background(), in, false)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := agg.Dashboard(context.Background(), in, false)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
}

func TestAggregatorDashboardBypassCacheRegenerates(t *testing.T) {
	agg := New(time.Hour, time.Hour, logger.NewDefault("test"), core.NoopObservationHooks)
	in := Inputs{Adapters: []actions.Adapter{testAdapter("truck-1", 50)}, TotalTrucks: 1}

	first, err := agg.Dashboard(context.Background(), in, false)
	require.NoError(t, err)

	second, err := agg.Dashboard(context.Background(), in, true)
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.True(t, second.GeneratedAt.After(first.GeneratedAt) || second.GeneratedAt.Equal(first.GeneratedAt))
}

func TestAggregatorActionsForTruckReturnsLastGenerated(t *testing.T) {
	agg := New(time.Hour, time.Hour, logger.NewDefault("test"), core.NoopObservationHooks)
	in := Inputs{Adapters: []actions.Adapter{testAdapter("truck-1", 50)}, TotalTrucks: 1}
	_, err := agg.Dashboard(context.Background(), in, false)
	require.NoError(t, err)

	items := agg.ActionsForTruck("truck-1")
	require.Len(t, items, 1)
	assert.Nil(t, agg.ActionsForTruck("ghost-truck"))
}

func TestFilterActionsAppliesAllFiltersAndSortsDescending(t *testing.T) {
	items := []action.Item{
		{TruckID: "truck-1", Priority: action.PriorityHigh, Category: "maintenance", PriorityScore: 60},
		{TruckID: "truck-1", Priority: action.PriorityCritical, Category: "maintenance", PriorityScore: 90},
		{TruckID: "truck-2", Priority: action.PriorityCritical, Category: "maintenance", PriorityScore: 95},
	}
	out := FilterActions(items, string(action.PriorityCritical), "maintenance", "truck-1", 0)
	require.Len(t, out, 1)
	assert.Equal(t, 90.0, out[0].PriorityScore)
}

func TestFilterActionsAppliesLimit(t *testing.T) {
	items := []action.Item{
		{PriorityScore: 10}, {PriorityScore: 80}, {PriorityScore: 50},
	}
	out := FilterActions(items, "", "", "", 2)
	require.Len(t, out, 2)
	assert.Equal(t, 80.0, out[0].PriorityScore)
	assert.Equal(t, 50.0, out[1].PriorityScore)
}
