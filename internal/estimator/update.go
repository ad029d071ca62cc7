package estimator

import "time"

// AnchorInputs are the signals DetectAnchor reads to decide whether the
// current sensor reading is trustworthy enough to drive a Kalman update.
type AnchorInputs struct {
	SpeedMPH       *float64
	RPM            *float64
	DataAge        time.Duration
	Now            time.Time
}

// rpmIdleThreshold is the ceiling below which rpm counts as "engine
// effectively idle or off" for static-anchor purposes.
const rpmIdleThreshold = 50.0

// DetectAnchor evaluates and updates the anchor state machine, returning
// whether an anchor currently holds (i.e. has been sustained for its
// minimum hold duration).
func (s *State) DetectAnchor(in AnchorInputs) (AnchorKind, bool) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	staticCandidate := in.SpeedMPH != nil && *in.SpeedMPH <= staticAnchorMaxSpeedMPH &&
		(in.RPM == nil || *in.RPM <= rpmIdleThreshold) &&
		in.DataAge < staticAnchorMaxDataAge

	microCandidate := false
	if in.SpeedMPH != nil && *in.SpeedMPH > staticAnchorMaxSpeedMPH {
		if s.AnchorKind == AnchorMicro {
			band := *in.SpeedMPH - s.CruiseSpeedRef
			if band < 0 {
				band = -band
			}
			microCandidate = band <= microAnchorBandMPH
		} else {
			microCandidate = true
		}
	}

	switch {
	case staticCandidate:
		if s.AnchorKind != AnchorStatic {
			s.AnchorKind = AnchorStatic
			s.AnchorSince = now
		}
	case microCandidate:
		if s.AnchorKind != AnchorMicro {
			s.AnchorKind = AnchorMicro
			s.AnchorSince = now
			s.CruiseSpeedRef = *in.SpeedMPH
		}
	default:
		s.AnchorKind = AnchorNone
		s.AnchorSince = time.Time{}
		return AnchorNone, false
	}

	held := now.Sub(s.AnchorSince)
	switch s.AnchorKind {
	case AnchorStatic:
		return AnchorStatic, held >= staticAnchorHoldMin && held <= staticAnchorHoldMax+staticAnchorHoldMin
	case AnchorMicro:
		return AnchorMicro, held >= microAnchorHoldMin && held <= microAnchorHoldMax+microAnchorHoldMin
	}
	return AnchorNone, false
}

// Update applies the measurement-update step of the Kalman recursion when
// (and only when) an anchor holds. It returns whether the update was
// applied.
func (s *State) Update(measuredPct float64, anchorHolds bool) bool {
	if !anchorHolds {
		return false
	}
	gain := s.Variance / (s.Variance + measurementR)
	s.MeanPct = clampPct(s.MeanPct + gain*(measuredPct-s.MeanPct))
	s.Variance = (1 - gain) * s.Variance
	if s.Variance < varianceFloor {
		s.Variance = varianceFloor
	}
	return true
}

// CheckDrift forces a hard resync to the sensor value when the estimate and
// the raw sensor reading have diverged by more than driftThresholdPct for
// longer than driftSustainedFor. It returns true when a reset was applied.
func (s *State) CheckDrift(sensorPct float64, now time.Time) bool {
	diff := sensorPct - s.MeanPct
	if diff < 0 {
		diff = -diff
	}
	if diff <= driftThresholdPct {
		s.DriftSince = time.Time{}
		return false
	}
	if s.DriftSince.IsZero() {
		s.DriftSince = now
		return false
	}
	if now.Sub(s.DriftSince) < driftSustainedFor {
		return false
	}
	s.MeanPct = clampPct(sensorPct)
	s.Variance = anchorUpdateVariance * 4
	s.DriftSince = time.Time{}
	return true
}
