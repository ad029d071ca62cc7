package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileOverridesReturnsEmptyWhenFileMissing(t *testing.T) {
	out, err := LoadFileOverrides(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &FileOverrides{}, out)
}

func TestLoadFileOverridesParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	contents := `
sensor_ranges:
  oil_press:
    min: 5
    max: 140
offline_thresholds:
  offline_minutes: 30
  parked_minutes: 10
scoring:
  engine: 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	out, err := LoadFileOverrides(path)
	require.NoError(t, err)
	require.Contains(t, out.SensorRanges, "oil_press")
	assert.Equal(t, 5.0, out.SensorRanges["oil_press"].Min)
	assert.Equal(t, 140.0, out.SensorRanges["oil_press"].Max)
	require.NotNil(t, out.Offline)
	assert.Equal(t, 30.0, out.Offline.OfflineMinutes)
	assert.Equal(t, 1.5, out.Scoring["engine"])
}

func TestLoadFileOverridesRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0644))

	_, err := LoadFileOverrides(path)
	assert.Error(t, err)
}

func TestHasKnownPrefixMatchesConfiguredCategories(t *testing.T) {
	assert.True(t, HasKnownPrefix("sensor_range_oil_press"))
	assert.True(t, HasKnownPrefix("offline_thresholds"))
	assert.False(t, HasKnownPrefix("unrelated_key"))
}

func TestParseFloatTrimsWhitespace(t *testing.T) {
	v, err := ParseFloat("  42.5 ")
	require.NoError(t, err)
	assert.Equal(t, 42.5, v)

	_, err = ParseFloat("not-a-number")
	assert.Error(t, err)
}
