package estimator

import (
	"time"

	"github.com/fleetops/fleet-analytics-core/internal/domain/fuel"
)

// RefuelCheck evaluates one new sensor reading against the estimator's
// history and pending-refuel buffer. It may finalize a previously
// accumulated pending jump, start or extend a pending jump, or return
// (nil, nil) when nothing refuel-related happened.
//
// previousReadingTime is the timestamp of the last reading processed before
// this one (the caller's prior LastTimestamp, not yet overwritten); a new
// pending refuel's StartTime is anchored there so finalizePending can
// measure the real inter-reading gap rather than always seeing zero for a
// single-jump refuel. Pass the zero Time when there is no prior reading
// (the truck's first observed snapshot).
//
// Theft is reported through TheftCheck, called separately by the caller
// when status == STOPPED.
func (s *State) RefuelCheck(truckID string, capacityGallons, refuelFactor float64, beforePct, afterPct float64, previousReadingTime, readingTime time.Time) *fuel.RefuelEvent {
	s.pushFuelHistory(beforePct)

	jumpPct := afterPct - beforePct
	if jumpPct < 0 {
		jumpPct = 0
	}
	jumpGallons := jumpPct / 100 * capacityGallons

	startTime := previousReadingTime
	if startTime.IsZero() {
		startTime = readingTime
	}

	withinCooldown := !s.LastRefuelTime.IsZero() && readingTime.Sub(s.LastRefuelTime) < refuelCooldown

	if s.Pending != nil {
		gapSincePending := readingTime.Sub(s.Pending.LastJumpTime)
		if gapSincePending > refuelPendingWindow {
			event := s.finalizePending(truckID, capacityGallons, refuelFactor)
			if jumpPct >= refuelMinPctJump && jumpGallons >= refuelMinGallons && !withinCooldown && s.passesAntiNoise(beforePct) {
				s.Pending = &pendingRefuel{StartTime: startTime, LastJumpTime: readingTime, PercentBefore: beforePct, PercentAfter: afterPct}
			}
			return event
		}
		// extend pending window with the latest value.
		s.Pending.LastJumpTime = readingTime
		s.Pending.PercentAfter = afterPct
		return nil
	}

	if jumpPct >= refuelMinPctJump && jumpGallons >= refuelMinGallons && !withinCooldown && s.passesAntiNoise(beforePct) {
		s.Pending = &pendingRefuel{StartTime: startTime, LastJumpTime: readingTime, PercentBefore: beforePct, PercentAfter: afterPct}
	}
	return nil
}

// FinalizePendingIfStale is invoked once per cycle so a pending refuel with
// no further jumps for refuelPendingWindow still gets emitted even without
// a new reading arriving to trigger RefuelCheck's own stale-check path.
func (s *State) FinalizePendingIfStale(truckID string, capacityGallons, refuelFactor float64, now time.Time) *fuel.RefuelEvent {
	if s.Pending == nil {
		return nil
	}
	if now.Sub(s.Pending.LastJumpTime) < refuelPendingWindow {
		return nil
	}
	return s.finalizePending(truckID, capacityGallons, refuelFactor)
}

func (s *State) finalizePending(truckID string, capacityGallons, refuelFactor float64) *fuel.RefuelEvent {
	p := s.Pending
	s.Pending = nil
	if p == nil {
		return nil
	}

	gallonsAdded := (p.PercentAfter - p.PercentBefore) / 100 * capacityGallons * refuelFactor
	class := fuel.RefuelPartial
	if p.PercentAfter > 90 {
		class = fuel.RefuelFull
	}

	source := fuel.RefuelSourceContinuous
	gap := p.LastJumpTime.Sub(p.StartTime)
	if gap >= refuelGapAwareMin && gap <= refuelGapAwareMax {
		source = fuel.RefuelSourceGapAware
	}

	s.LastRefuelTime = p.LastJumpTime
	s.applyRefuelReset(p.PercentAfter)

	return &fuel.RefuelEvent{
		TruckID:       truckID,
		StartTime:     p.StartTime,
		EndTime:       p.LastJumpTime,
		PercentBefore: p.PercentBefore,
		PercentAfter:  p.PercentAfter,
		GallonsAdded:  gallonsAdded,
		Class:         class,
		Source:        source,
	}
}

// applyRefuelReset sets the filter mean to the post-refuel percent and
// resets variance to the anchor-update floor, as if a trusted anchor
// update had just occurred.
func (s *State) applyRefuelReset(postPct float64) {
	s.MeanPct = clampPct(postPct)
	s.Variance = anchorUpdateVariance
}

// passesAntiNoise rejects a candidate refuel whose "before" value is more
// than 25% below the ring-buffer median of the last 5 valid readings,
// which usually indicates a sensor glitch rather than a real drain.
func (s *State) passesAntiNoise(beforePct float64) bool {
	median, ok := s.medianHistory()
	if !ok {
		return true
	}
	return beforePct >= median*(1-refuelAntiNoiseMargin)
}

// TheftStatus classifies an unexplained drop observed while the truck is
// stopped.
type TheftStatus string

const (
	TheftNone      TheftStatus = "none"
	TheftSuspected TheftStatus = "suspected"
	TheftConfirmed TheftStatus = "confirmed"
)

// TheftCheck flags a drop while STOPPED with no matching refuel. Small
// drops that recover within recoveryWindow are the caller's responsibility
// to reclassify as noise (it must track the drop across subsequent cycles).
func TheftCheck(beforePct, afterPct float64) TheftStatus {
	drop := beforePct - afterPct
	switch {
	case drop > theftDropConfirmed:
		return TheftConfirmed
	case drop > theftDropSuspected:
		return TheftSuspected
	default:
		return TheftNone
	}
}
