package risk

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
)

func TestDetectFiresCoolingOilCascade(t *testing.T) {
	byTruck := map[string][]action.Item{
		"truck-1": {
			{NormalizedComponent: "cooling_system"},
			{NormalizedComponent: "oil_system"},
			{NormalizedComponent: "engine"},
		},
		"truck-2": {
			{NormalizedComponent: "transmission"},
		},
	}

	out := Detect(byTruck)
	require.NotEmpty(t, out)

	var found bool
	for _, c := range out {
		if c.PrimarySensor == "cooling_system" {
			found = true
			assert.ElementsMatch(t, []string{"truck-1"}, c.AffectedTrucks)
			_, err := uuid.Parse(c.ID)
			assert.NoError(t, err, "correlation ID should be a fresh uuid, not the pattern name")
		}
	}
	assert.True(t, found)
}

func TestDetectReturnsNilWithNoIssues(t *testing.T) {
	out := Detect(map[string][]action.Item{"truck-1": {}})
	assert.Nil(t, out)
}

func TestDetectSkipsPatternsBelowMinCorrelation(t *testing.T) {
	byTruck := map[string][]action.Item{
		"truck-1": {
			{NormalizedComponent: "cooling_system"},
		},
	}
	out := Detect(byTruck)
	for _, c := range out {
		assert.NotEqual(t, "cooling_system", c.PrimarySensor)
	}
}
