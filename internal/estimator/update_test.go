package estimator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAnchorStaticHoldsAfterMinDuration(t *testing.T) {
	s := NewState("truck-1", 50)
	base := time.Now().UTC()

	kind, holds := s.DetectAnchor(AnchorInputs{SpeedMPH: floatPtr(0), DataAge: time.Second, Now: base})
	assert.Equal(t, AnchorStatic, kind)
	assert.False(t, holds, "anchor must not hold immediately")

	kind, holds = s.DetectAnchor(AnchorInputs{SpeedMPH: floatPtr(0), DataAge: time.Second, Now: base.Add(staticAnchorHoldMin)})
	assert.Equal(t, AnchorStatic, kind)
	assert.True(t, holds)
}

func TestDetectAnchorResetsWhenNeitherConditionMatches(t *testing.T) {
	s := NewState("truck-1", 50)
	base := time.Now().UTC()
	s.DetectAnchor(AnchorInputs{SpeedMPH: floatPtr(0), DataAge: time.Second, Now: base})

	kind, holds := s.DetectAnchor(AnchorInputs{SpeedMPH: nil, DataAge: time.Hour, Now: base.Add(time.Minute)})
	assert.Equal(t, AnchorNone, kind)
	assert.False(t, holds)
	assert.Equal(t, AnchorNone, s.AnchorKind)
}

func TestDetectAnchorMicroHoldsWithinCruiseBand(t *testing.T) {
	s := NewState("truck-1", 50)
	base := time.Now().UTC()

	kind, holds := s.DetectAnchor(AnchorInputs{SpeedMPH: floatPtr(60), Now: base})
	assert.Equal(t, AnchorMicro, kind)
	assert.False(t, holds)
	assert.Equal(t, 60.0, s.CruiseSpeedRef)

	kind, holds = s.DetectAnchor(AnchorInputs{SpeedMPH: floatPtr(61), Now: base.Add(microAnchorHoldMin)})
	assert.Equal(t, AnchorMicro, kind)
	assert.True(t, holds)
}

func TestUpdateAppliesKalmanGainOnlyWhenAnchorHolds(t *testing.T) {
	s := NewState("truck-1", 50)
	s.Variance = 1.0

	applied := s.Update(80, false)
	assert.False(t, applied)
	assert.Equal(t, 50.0, s.MeanPct)

	applied = s.Update(80, true)
	require.True(t, applied)
	assert.Greater(t, s.MeanPct, 50.0)
	assert.Less(t, s.MeanPct, 80.0)
}

func TestUpdateFloorsVarianceAfterShrinking(t *testing.T) {
	s := NewState("truck-1", 50)
	s.Variance = varianceFloor / 2
	s.Update(50, true)
	assert.GreaterOrEqual(t, s.Variance, varianceFloor)
}

func TestCheckDriftNoopsWithinThreshold(t *testing.T) {
	s := NewState("truck-1", 50)
	now := time.Now().UTC()
	reset := s.CheckDrift(55, now)
	assert.False(t, reset)
	assert.True(t, s.DriftSince.IsZero())
}

func TestCheckDriftResetsAfterSustainedDivergence(t *testing.T) {
	s := NewState("truck-1", 50)
	now := time.Now().UTC()

	reset := s.CheckDrift(90, now) // diff 40 > driftThresholdPct(30), starts timer
	assert.False(t, reset)
	assert.False(t, s.DriftSince.IsZero())

	reset = s.CheckDrift(90, now.Add(driftSustainedFor+time.Minute))
	assert.True(t, reset)
	assert.Equal(t, 90.0, s.MeanPct)
	assert.True(t, s.DriftSince.IsZero())
}

func TestCheckDriftClearsTimerWhenDivergenceRecovers(t *testing.T) {
	s := NewState("truck-1", 50)
	now := time.Now().UTC()
	s.CheckDrift(90, now)
	require.False(t, s.DriftSince.IsZero())

	s.CheckDrift(55, now.Add(time.Minute))
	assert.True(t, s.DriftSince.IsZero())
}
