package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileOverrides is the shape of the optional YAML override file. Every field
// is optional; a field absent from the file keeps its zero value. The parsed
// values are not applied to Config or to the engines.
type FileOverrides struct {
	SensorRanges  map[string]SensorRangeOverride `yaml:"sensor_ranges"`
	Persistence   map[string]int                 `yaml:"persistence"`
	Offline       *OfflineThresholds              `yaml:"offline_thresholds"`
	DEFConsumption *DEFConsumptionOverride        `yaml:"def_consumption"`
	Scoring       map[string]float64              `yaml:"scoring"`
	Correlation   map[string]CorrelationOverride  `yaml:"correlation"`
}

// SensorRangeOverride overrides the baked-in valid range for one sensor.
type SensorRangeOverride struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// OfflineThresholds overrides the status-classifier offline/parked cutoffs.
type OfflineThresholds struct {
	OfflineMinutes float64 `yaml:"offline_minutes"`
	ParkedMinutes  float64 `yaml:"parked_minutes"`
}

// DEFConsumptionOverride overrides the DEF prediction fallback constants.
type DEFConsumptionOverride struct {
	DailyAverageLiters float64 `yaml:"daily_average_liters"`
	DEFPctOfDiesel     float64 `yaml:"def_pct_of_diesel"`
}

// CorrelationOverride overrides one failure-correlation pattern's strength
// threshold.
type CorrelationOverride struct {
	MinStrength float64 `yaml:"min_strength"`
}

// LoadFileOverrides reads and parses the YAML override file at path. A
// missing file is not an error; callers should keep baked defaults.
func LoadFileOverrides(path string) (*FileOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileOverrides{}, nil
		}
		return nil, err
	}
	var out FileOverrides
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Override is one row of the command_center_config table: a namespaced key,
// a raw string value, and a category used for grouping related keys.
type Override struct {
	Key      string `db:"key"`
	Value    string `db:"value"`
	Category string `db:"category"`
	Active   bool   `db:"active"`
}

// KnownCategories lists the key prefixes the override table is allowed to
// carry, matching spec §6's command_center_config description.
var KnownCategories = []string{
	"sensor_range_",
	"persistence_",
	"offline_thresholds",
	"def_consumption",
	"scoring_",
	"correlation_",
}

// HasKnownPrefix reports whether key matches one of KnownCategories.
func HasKnownPrefix(key string) bool {
	for _, prefix := range KnownCategories {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// ParseFloat is a small helper for consuming override row values, which are
// always stored as strings regardless of their logical type.
func ParseFloat(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}
