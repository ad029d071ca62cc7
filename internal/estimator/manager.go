package estimator

import (
	"sync"
	"time"

	"github.com/fleetops/fleet-analytics-core/internal/domain/fuel"
	"github.com/fleetops/fleet-analytics-core/internal/domain/telemetry"
	"github.com/fleetops/fleet-analytics-core/internal/domain/truck"
)

// idleFallbackGPH is used when neither ECU nor sensor consumption signals
// are available.
const idleFallbackGPH = 0.8

// Manager owns one Kalman State per truck. It is exclusively written by the
// Telemetry Loop; any other reader must take a Snapshot copy.
type Manager struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewManager returns an empty estimator manager.
func NewManager() *Manager {
	return &Manager{states: make(map[string]*State)}
}

// Seed installs a restored or freshly-created state for a truck, used at
// startup before the first snapshot arrives.
func (m *Manager) Seed(state *State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.TruckID] = state
}

// Snapshot returns a copy of a truck's current estimator mean/variance for
// read-only consumers (e.g. the HTTP API), or ok=false if unknown.
func (m *Manager) Snapshot(truckID string) (meanPct, variance float64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.states[truckID]
	if !exists {
		return 0, 0, false
	}
	return s.MeanPct, s.Variance, true
}

// Serialize returns the JSON-encoded state for every known truck, for the
// State Persistence Loop to flush.
func (m *Manager) Serialize() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.states))
	for id, s := range m.states {
		data, err := s.Serialize()
		if err != nil {
			continue
		}
		out[id] = data
	}
	return out
}

// Result is everything one truck's telemetry update cycle produces.
type Result struct {
	Metric      fuel.Metric
	Refuel      *fuel.RefuelEvent
	Theft       TheftStatus
	DriftReset  bool
}

// Process runs one full predict/update/derive cycle for a single truck's
// snapshot and returns the derived FuelMetric plus any refuel event.
// Snapshots whose timestamp does not strictly advance the truck's last
// known timestamp are discarded (ordering guarantee, §5).
func (m *Manager) Process(cfg truck.Config, snap telemetry.Snapshot, status telemetry.Status, now time.Time) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.states[cfg.TruckID]
	if !exists {
		initial := 0.0
		if snap.FuelLevelPct != nil {
			initial = *snap.FuelLevelPct
		}
		s = NewState(cfg.TruckID, initial)
		m.states[cfg.TruckID] = s
	}

	if !s.LastTimestamp.IsZero() && !snap.Timestamp.After(s.LastTimestamp) {
		return Result{}, false
	}

	dt := time.Duration(0)
	if !s.LastTimestamp.IsZero() {
		dt = snap.Timestamp.Sub(s.LastTimestamp)
	}

	beforePct := s.MeanPct

	predictResult := s.Predict(dt, snap.SpeedMPH, ConsumptionInputs{
		ECUTotalFuelGal:     snap.TotalFuelUsedGal,
		SensorFuelRateLPerH: snap.FuelRateLPerH,
		IdleFallbackGPH:     idleFallbackGPH,
		CapacityGallons:     cfg.CapacityGallons,
	}, now)

	dataAge := time.Duration(snap.DataAgeMinutes(now) * float64(time.Minute))
	_, anchorHolds := s.DetectAnchor(AnchorInputs{SpeedMPH: snap.SpeedMPH, RPM: snap.RPM, DataAge: dataAge, Now: snap.Timestamp})

	var refuel *fuel.RefuelEvent
	var theft TheftStatus = TheftNone
	if snap.FuelLevelPct != nil {
		measured := *snap.FuelLevelPct
		if anchorHolds {
			s.Update(measured, true)
		}

		refuel = s.RefuelCheck(cfg.TruckID, cfg.CapacityGallons, cfg.RefuelFactor, beforePct, measured, s.LastTimestamp, snap.Timestamp)
		if status == telemetry.StatusStopped && refuel == nil {
			theft = TheftCheck(beforePct, measured)
		}
	}

	driftReset := false
	if snap.FuelLevelPct != nil {
		driftReset = s.CheckDrift(*snap.FuelLevelPct, snap.Timestamp)
	}

	s.LastTimestamp = snap.Timestamp

	metric := buildMetric(cfg, snap, status, predictResult, s.MeanPct, now)

	return Result{Metric: metric, Refuel: refuel, Theft: theft, DriftReset: driftReset}, true
}

// FlushPendingRefuels finalizes any pending refuel whose window has gone
// stale without a new reading arriving to trigger RefuelCheck itself. The
// Telemetry Loop calls this once per cycle for every registered truck that
// was not processed in that cycle.
func (m *Manager) FlushPendingRefuels(cfg truck.Config, now time.Time) *fuel.RefuelEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[cfg.TruckID]
	if !ok {
		return nil
	}
	return s.FinalizePendingIfStale(cfg.TruckID, cfg.CapacityGallons, cfg.RefuelFactor, now)
}

func buildMetric(cfg truck.Config, snap telemetry.Snapshot, status telemetry.Status, pr PredictResult, estimatedPct float64, now time.Time) fuel.Metric {
	estimatedGallons := estimatedPct / 100 * cfg.CapacityGallons
	estimatedLiters := estimatedGallons * gallonsPerLiter

	var mpg *float64
	if status == telemetry.StatusMoving && snap.SpeedMPH != nil && *snap.SpeedMPH > 5 && pr.ConsumptionGalPerH > 0.5 {
		v := *snap.SpeedMPH / pr.ConsumptionGalPerH
		if v >= 2.5 && v <= 15 {
			mpg = &v
		}
	}

	var idleMode fuel.IdleMode
	var idleMethod string
	if status == telemetry.StatusStopped {
		switch pr.Source {
		case "ecu":
			idleMode = fuel.IdleModeECU
			idleMethod = "ecu_total_fuel_delta"
		case "sensor":
			idleMode = fuel.IdleModeSensor
			idleMethod = "sensor_fuel_rate"
		default:
			idleMode = fuel.IdleModeFallback
			idleMethod = "fallback_constant"
		}
	}

	var driftPct float64
	var driftWarning bool
	var sensorPct *float64
	if snap.FuelLevelPct != nil {
		sensorPct = snap.FuelLevelPct
		driftPct = *snap.FuelLevelPct - estimatedPct
		if driftPct < 0 {
			driftWarning = (-driftPct) > driftThresholdPct
		} else {
			driftWarning = driftPct > driftThresholdPct
		}
	}

	return fuel.Metric{
		Timestamp:          snap.Timestamp,
		TruckID:            cfg.TruckID,
		CarrierID:          cfg.CarrierID,
		Status:             string(status),
		Latitude:           snap.Latitude,
		Longitude:          snap.Longitude,
		SpeedMPH:           snap.SpeedMPH,
		SensorPct:          sensorPct,
		EstimatedPct:       estimatedPct,
		EstimatedGallons:   estimatedGallons,
		EstimatedLiters:    estimatedLiters,
		ConsumptionLPerH:   pr.ConsumptionLPerH,
		ConsumptionGalPerH: pr.ConsumptionGalPerH,
		MPG:                mpg,
		RPM:                snap.RPM,
		EngineHours:        snap.EngineHours,
		OdometerMiles:      snap.OdometerMiles,
		AltitudeFt:         snap.AltitudeFt,
		HDOP:               snap.HDOP,
		CoolantTempF:       snap.CoolantTempF,
		IdleMode:           idleMode,
		IdleMethod:         idleMethod,
		DriftPct:           driftPct,
		DriftWarning:       driftWarning,
		DataAgeMinutes:     snap.DataAgeMinutes(now),
	}
}
