package actions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
)

// ParseCostBand parses a "$min - $max" cost string into numeric bounds.
// Commas and currency symbols are tolerated. ok is false when the string
// cannot be parsed.
func ParseCostBand(band string) (min, max float64, ok bool) {
	band = strings.TrimSpace(band)
	if band == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(band, "-", 2)
	if len(parts) != 2 {
		v, err := parseCostToken(band)
		if err != nil {
			return 0, 0, false
		}
		return v, v, true
	}
	lo, err1 := parseCostToken(parts[0])
	hi, err2 := parseCostToken(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func parseCostToken(token string) (float64, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "$")
	token = strings.ReplaceAll(token, ",", "")
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("empty cost token")
	}
	return strconv.ParseFloat(token, 64)
}

// componentSteps gives a fixed, ordered set of diagnostic/repair steps per
// canonical component. BuildSteps returns a copy of the component's list
// as-is; no header step (from the title or the action type) is added.
var componentSteps = map[string][]string{
	"oil_system": {
		"Check oil level and condition at next stop.",
		"Inspect for visible leaks around gaskets and seals.",
		"Schedule an oil analysis if pressure trend persists.",
	},
	"cooling_system": {
		"Check coolant level and look for external leaks.",
		"Inspect radiator, hoses, and water pump for wear.",
		"Verify thermostat and fan clutch operation.",
	},
	"def_system": {
		"Verify DEF tank level and refill if low.",
		"Inspect DEF lines and heater for faults.",
		"Check for active SCR system fault codes.",
	},
	"transmission": {
		"Check transmission fluid level and condition.",
		"Inspect for shifting irregularities during next trip.",
		"Schedule a transmission diagnostic scan.",
	},
	"electrical": {
		"Test battery voltage and alternator output.",
		"Inspect battery terminals and ground connections.",
		"Check charging system wiring for corrosion or damage.",
	},
	"turbo_system": {
		"Inspect turbocharger for unusual noise or smoke.",
		"Check for boost-pressure-related fault codes.",
		"Verify intercooler and associated piping for leaks.",
	},
	"fuel_system": {
		"Verify fuel filter condition and replace if due.",
		"Inspect fuel lines and injectors for leaks.",
		"Cross-check fuel level sensor against a manual dip reading.",
	},
	"brake_system": {
		"Inspect brake pads, rotors, and air system for wear or leaks.",
		"Check ABS and brake-related fault codes.",
		"Schedule a full brake system inspection before next dispatch.",
	},
	"gps": {
		"Check GPS antenna connection and placement.",
		"Verify device firmware is current.",
	},
	"dtc": {
		"Pull and review active diagnostic trouble codes.",
		"Clear and monitor for code recurrence.",
	},
	"engine": {
		"Review engine performance trend over the last 24 hours.",
		"Schedule a full engine diagnostic scan.",
	},
	"efficiency": {
		"Review driving behavior and route efficiency.",
		"Compare fuel economy against the fleet baseline.",
	},
}

const maxActionSteps = 10

// BuildSteps returns the step list for a single item's normalized
// component, capped at maxActionSteps.
func BuildSteps(component string) []string {
	steps, ok := componentSteps[component]
	if !ok {
		return []string{"Schedule a diagnostic inspection."}
	}
	out := make([]string, len(steps))
	copy(out, steps)
	return out
}

// iconFor maps a canonical component to a short icon identifier the HTTP
// API surfaces for client rendering.
func iconFor(component string) string {
	switch component {
	case "oil_system":
		return "oil-can"
	case "cooling_system":
		return "thermometer"
	case "def_system":
		return "droplet"
	case "transmission":
		return "gear"
	case "electrical":
		return "battery"
	case "turbo_system":
		return "turbo"
	case "fuel_system":
		return "fuel-pump"
	case "brake_system":
		return "brake"
	case "gps":
		return "map-pin"
	case "dtc":
		return "alert-triangle"
	case "engine":
		return "engine"
	case "efficiency":
		return "trending-down"
	default:
		return "wrench"
	}
}

// Finalize normalizes an item's component, assigns its icon and action
// steps, then scores it.
func Finalize(item action.Item) action.Item {
	item.NormalizedComponent = Normalize(item.Component)
	item.Icon = iconFor(item.NormalizedComponent)
	if len(item.ActionSteps) == 0 {
		item.ActionSteps = BuildSteps(item.NormalizedComponent)
	}
	if len(item.ActionSteps) > maxActionSteps {
		item.ActionSteps = item.ActionSteps[:maxActionSteps]
	}
	if item.ID == "" {
		item.ID = fmt.Sprintf("%s:%s:%s", item.TruckID, item.Category, item.NormalizedComponent)
	}
	return Score(item)
}
