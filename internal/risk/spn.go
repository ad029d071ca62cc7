// Package risk implements the Risk & Correlation Engine: per-truck risk
// scoring, failure-correlation pattern matching, J1939 SPN normalization,
// and DEF depletion prediction.
package risk

// SPNInfo is one J1939 Suspect Parameter Number's canonical identity.
type SPNInfo struct {
	Component string
	Name      string
	Unit      string
}

// SPNTable is the fixed SPN → component lookup from §4.5, covering the
// sensors this system normalizes.
var SPNTable = map[int]SPNInfo{
	190:  {Component: "engine", Name: "Engine Speed", Unit: "rpm"},
	92:   {Component: "engine", Name: "Engine Load", Unit: "%"},
	110:  {Component: "cooling_system", Name: "Coolant Temperature", Unit: "°F"},
	175:  {Component: "oil_system", Name: "Engine Oil Temperature", Unit: "°F"},
	177:  {Component: "transmission", Name: "Transmission Oil Temperature", Unit: "°F"},
	105:  {Component: "engine", Name: "Intake Manifold Temperature", Unit: "°F"},
	100:  {Component: "oil_system", Name: "Engine Oil Pressure", Unit: "psi"},
	3031: {Component: "def_system", Name: "DEF Tank Level", Unit: "%"},
	3032: {Component: "def_system", Name: "DEF Tank Temperature", Unit: "°F"},
	168:  {Component: "electrical", Name: "Battery Voltage", Unit: "V"},
	96:   {Component: "fuel_system", Name: "Fuel Level", Unit: "%"},
	183:  {Component: "fuel_system", Name: "Fuel Rate", Unit: "L/h"},
}

// LookupSPN returns the canonical identity for spn, or ok=false when the
// SPN is not in the covered set.
func LookupSPN(spn int) (SPNInfo, bool) {
	info, ok := SPNTable[spn]
	return info, ok
}
