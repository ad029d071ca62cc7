package estimator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRestoreRoundTrips(t *testing.T) {
	s := NewState("truck-1", 62.5)
	s.Variance = 1.2
	s.LastTimestamp = time.Now().UTC().Add(-time.Minute)
	s.ECUFailures = 2
	s.FuelHistoryRing = []float64{60, 61, 62}

	data, err := s.Serialize()
	require.NoError(t, err)

	restored, err := Restore(data, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, s.TruckID, restored.TruckID)
	assert.Equal(t, s.MeanPct, restored.MeanPct)
	assert.Equal(t, s.Variance, restored.Variance)
	assert.Equal(t, s.ECUFailures, restored.ECUFailures)
	assert.Equal(t, s.FuelHistoryRing, restored.FuelHistoryRing)
}

func TestRestoreRejectsStaleState(t *testing.T) {
	s := NewState("truck-1", 50)
	s.LastTimestamp = time.Now().UTC().Add(-3 * time.Hour)
	data, err := s.Serialize()
	require.NoError(t, err)

	_, err = Restore(data, time.Now().UTC())
	assert.Error(t, err)
}

func TestRestoreAllowsZeroLastTimestamp(t *testing.T) {
	s := NewState("truck-1", 50)
	data, err := s.Serialize()
	require.NoError(t, err)

	restored, err := Restore(data, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 50.0, restored.MeanPct)
}

func TestRestoreRejectsInvalidJSON(t *testing.T) {
	_, err := Restore([]byte("not json"), time.Now().UTC())
	assert.Error(t, err)
}
