package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
)

func TestBuildStepsKnownComponent(t *testing.T) {
	steps := BuildSteps("oil_system")
	assert.NotEmpty(t, steps)
}

func TestBuildStepsUnknownComponentFallsBack(t *testing.T) {
	steps := BuildSteps("something_unmapped")
	assert.Equal(t, []string{"Schedule a diagnostic inspection."}, steps)
}

func TestFinalizeAssignsIDIconAndSteps(t *testing.T) {
	item := Finalize(action.Item{
		TruckID: "truck-1", Category: "maintenance", Component: "Low oil pressure",
		Confidence: action.ConfidenceHigh,
	})
	assert.Equal(t, "oil_system", item.NormalizedComponent)
	assert.Equal(t, "oil-can", item.Icon)
	assert.Equal(t, "truck-1:maintenance:oil_system", item.ID)
	assert.NotEmpty(t, item.ActionSteps)
	assert.Greater(t, item.PriorityScore, 0.0)
}

func TestFinalizeKeepsProvidedIDAndSteps(t *testing.T) {
	item := Finalize(action.Item{
		TruckID: "truck-1", Category: "maintenance", Component: "engine",
		ID: "custom-id", ActionSteps: []string{"a", "b"},
	})
	assert.Equal(t, "custom-id", item.ID)
	assert.Equal(t, []string{"a", "b"}, item.ActionSteps)
}

func TestParseCostTokenRejectsEmptyBand(t *testing.T) {
	_, _, ok := ParseCostBand("")
	require.False(t, ok)
}
