// Package sensorengine implements the Sensor Buffer & Trend Engine: a
// bounded per-(truck, sensor) ring with range validation, EWMA/CUSUM state,
// and a temporal persistence gate for critical actions.
package sensorengine

// ValidRange is the [min,max] a sensor's raw value must fall within to be
// accepted into the ring.
type ValidRange struct {
	Min, Max float64
}

// Ranges is the fixed per-sensor valid-value table from §4.4.
var Ranges = map[string]ValidRange{
	"oil_press":   {Min: 0, Max: 150},
	"cool_temp":   {Min: 0, Max: 300},
	"voltage":     {Min: 0, Max: 30},
	"engine_load": {Min: 0, Max: 100},
	"rpm":         {Min: 0, Max: 3500},
	"def_level":   {Min: 0, Max: 100},
}

// IsValid reports whether value falls within sensor's known range. Sensors
// with no configured range are always considered valid.
func IsValid(sensor string, value float64) bool {
	r, ok := Ranges[sensor]
	if !ok {
		return true
	}
	return value >= r.Min && value <= r.Max
}

// ConfirmationWindow describes the temporal-persistence gate for one
// sensor: the number of consecutive confirming readings required within a
// bounded window before a STOP-commanding action may fire.
type ConfirmationWindow struct {
	Readings int
	Window   int // seconds
}

// Confirmations is the fixed per-sensor persistence-gate table from §4.4.
var Confirmations = map[string]ConfirmationWindow{
	"oil_press": {Readings: 2, Window: 60},
	"cool_temp": {Readings: 2, Window: 120},
	"voltage":   {Readings: 2, Window: 60},
	"trans_temp": {Readings: 3, Window: 300},
	"def_level": {Readings: 3, Window: 3600},
	"mpg":       {Readings: 5, Window: 86400},
}
