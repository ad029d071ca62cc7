// Package classifier maps a sensor snapshot to a truck's operating status.
package classifier

import "github.com/fleetops/fleet-analytics-core/internal/domain/telemetry"

// Inputs are the fields the decision tree reads. All are optional except
// DataAgeMinutes.
type Inputs struct {
	DataAgeMinutes  float64
	SpeedMPH        *float64
	RPM             *float64
	FuelRateLPerH   *float64
	VoltageExternal *float64
	EngineLoadPct   *float64
	CoolantTempF    *float64
}

// Classify runs the first-matching-rule decision tree from §4.3. Rule order
// matters: MOVING/STOPPED/PARKED/OFFLINE are mutually exclusive.
func Classify(in Inputs) telemetry.Status {
	if in.DataAgeMinutes > 15 {
		return telemetry.StatusOffline
	}
	if in.SpeedMPH == nil {
		return telemetry.StatusOffline
	}
	if *in.SpeedMPH > 2 {
		return telemetry.StatusMoving
	}

	engineOn := (in.RPM != nil && *in.RPM > 0) ||
		(in.FuelRateLPerH != nil && *in.FuelRateLPerH > 0.3) ||
		(in.EngineLoadPct != nil && *in.EngineLoadPct > 0) ||
		(in.CoolantTempF != nil && *in.CoolantTempF > 120)
	if engineOn {
		return telemetry.StatusStopped
	}

	if in.VoltageExternal != nil {
		v := *in.VoltageExternal
		if v > 13.2 {
			return telemetry.StatusParked
		}
		if v > 11.5 && v <= 13.2 {
			return telemetry.StatusParked
		}
	}

	if in.CoolantTempF != nil && *in.CoolantTempF > 60 && *in.CoolantTempF <= 120 {
		return telemetry.StatusParked
	}

	if in.DataAgeMinutes < 5 {
		return telemetry.StatusParked
	}

	return telemetry.StatusOffline
}

// FromSnapshot adapts a telemetry.Snapshot plus its precomputed data age
// into classifier Inputs.
func FromSnapshot(snap telemetry.Snapshot, dataAgeMinutes float64) Inputs {
	return Inputs{
		DataAgeMinutes:  dataAgeMinutes,
		SpeedMPH:        snap.SpeedMPH,
		RPM:             snap.RPM,
		FuelRateLPerH:   snap.FuelRateLPerH,
		VoltageExternal: snap.VoltageExternal,
		EngineLoadPct:   snap.EngineLoadPct,
		CoolantTempF:    snap.CoolantTempF,
	}
}
