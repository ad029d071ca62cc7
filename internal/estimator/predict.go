package estimator

import "time"

// ConsumptionInputs bundles the signals Predict chooses a consumption
// source from, in preference order: ECU total fuel used delta, sensor
// fuel_rate, then a fallback idle rate.
type ConsumptionInputs struct {
	ECUTotalFuelGal *float64
	SensorFuelRateLPerH *float64
	IdleFallbackGPH float64
	CapacityGallons float64
}

// PredictResult reports what Predict actually did, for logging and for the
// FuelMetric the caller assembles.
type PredictResult struct {
	ConsumptionGalPerH float64
	ConsumptionLPerH   float64
	Source             string // "ecu", "sensor", "fallback"
	CrossCheckWarning   bool
}

// Predict advances the filter's mean by dt using the best available
// consumption signal, and grows the variance by a process-noise term scaled
// to whether the truck is moving.
func (s *State) Predict(dt time.Duration, speedMPH *float64, in ConsumptionInputs, now time.Time) PredictResult {
	dtHours := dt.Hours()
	if dtHours < 0 {
		dtHours = 0
	}

	result := s.resolveConsumption(in, dtHours)

	if in.CapacityGallons > 0 && dtHours > 0 {
		pctPerHour := (result.ConsumptionGalPerH / in.CapacityGallons) * 100
		s.MeanPct = clampPct(s.MeanPct - pctPerHour*dtHours)
	}

	moving := speedMPH != nil && *speedMPH > staticAnchorMaxSpeedMPH
	q := qStatic
	if moving {
		q = qMoving
	}
	s.Variance += q
	if s.Variance < varianceFloor {
		s.Variance = varianceFloor
	}

	return result
}

// resolveConsumption implements the ECU/sensor/fallback preference chain and
// the ECU counter-reset / degraded-mode state machine from spec §4.2.
func (s *State) resolveConsumption(in ConsumptionInputs, dtHours float64) PredictResult {
	sensorGPH := 0.0
	haveSensor := false
	if in.SensorFuelRateLPerH != nil {
		sensorGPH = *in.SensorFuelRateLPerH / gallonsPerLiter
		haveSensor = true
	}

	ecuValid, ecuGPH := s.validateECU(in.ECUTotalFuelGal, dtHours)

	if ecuValid {
		crossCheck := false
		if haveSensor {
			diff := ecuGPH - sensorGPH
			if diff < 0 {
				diff = -diff
			}
			if diff > maxECUGalPerHour*0.25 {
				crossCheck = true
			}
		}
		return PredictResult{ConsumptionGalPerH: ecuGPH, ConsumptionLPerH: ecuGPH * gallonsPerLiter, Source: "ecu", CrossCheckWarning: crossCheck}
	}

	if !s.ECUDegraded && haveSensor {
		return PredictResult{ConsumptionGalPerH: sensorGPH, ConsumptionLPerH: sensorGPH * gallonsPerLiter, Source: "sensor"}
	}
	if haveSensor {
		return PredictResult{ConsumptionGalPerH: sensorGPH, ConsumptionLPerH: sensorGPH * gallonsPerLiter, Source: "sensor"}
	}

	return PredictResult{ConsumptionGalPerH: in.IdleFallbackGPH, ConsumptionLPerH: in.IdleFallbackGPH * gallonsPerLiter, Source: "fallback"}
}

// validateECU consumes the monotonic ECU total-fuel-used counter and
// returns the instantaneous gal/h rate implied by the delta since the last
// reading divided by the elapsed time, or ok=false when the delta is
// invalid (too large for the elapsed window, or a counter reset).
func (s *State) validateECU(totalGal *float64, dtHours float64) (ok bool, galPerHour float64) {
	if totalGal == nil {
		return false, 0
	}

	if s.ECUDegraded {
		if time.Since(s.ECUDegradedSince) < ecuRecoveryAfter {
			s.LastECUTotalGal = totalGal
			return false, 0
		}
		// attempt recovery
		s.ECUDegraded = false
		s.ECUFailures = 0
	}

	if s.LastECUTotalGal == nil {
		s.LastECUTotalGal = totalGal
		return false, 0
	}

	delta := *totalGal - *s.LastECUTotalGal
	s.LastECUTotalGal = totalGal

	if delta < 0 {
		// large drop: counter reset. Reinitialize and count as a failure.
		s.recordECUFailure()
		return false, 0
	}

	if dtHours <= 0 {
		// No elapsed time to derive a rate from; treat as a skipped reading
		// rather than fabricating an infinite or zero rate.
		return false, 0
	}

	rate := delta / dtHours
	if rate > maxECUGalPerHour {
		s.recordECUFailure()
		return false, 0
	}

	s.ECUFailures = 0
	return true, rate
}

func (s *State) recordECUFailure() {
	s.ECUFailures++
	if s.ECUFailures >= ecuFailureLimit && !s.ECUDegraded {
		s.ECUDegraded = true
		s.ECUDegradedSince = time.Now().UTC()
	}
}
