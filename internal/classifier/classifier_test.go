package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetops/fleet-analytics-core/internal/domain/telemetry"
)

func f(v float64) *float64 { return &v }

func TestClassifyOfflineWhenStale(t *testing.T) {
	assert.Equal(t, telemetry.StatusOffline, Classify(Inputs{DataAgeMinutes: 20, SpeedMPH: f(0)}))
}

func TestClassifyOfflineWhenSpeedMissing(t *testing.T) {
	assert.Equal(t, telemetry.StatusOffline, Classify(Inputs{DataAgeMinutes: 1}))
}

func TestClassifyMovingWhenSpeedAboveThreshold(t *testing.T) {
	assert.Equal(t, telemetry.StatusMoving, Classify(Inputs{DataAgeMinutes: 1, SpeedMPH: f(35)}))
}

func TestClassifyStoppedWhenEngineOnButNotMoving(t *testing.T) {
	assert.Equal(t, telemetry.StatusStopped, Classify(Inputs{DataAgeMinutes: 1, SpeedMPH: f(0), RPM: f(650)}))
}

func TestClassifyParkedWhenVoltageHealthyAndEngineOff(t *testing.T) {
	assert.Equal(t, telemetry.StatusParked, Classify(Inputs{DataAgeMinutes: 1, SpeedMPH: f(0), VoltageExternal: f(13.5)}))
}

func TestClassifyParkedWhenRecentButNoStrongSignal(t *testing.T) {
	assert.Equal(t, telemetry.StatusParked, Classify(Inputs{DataAgeMinutes: 2, SpeedMPH: f(0)}))
}

func TestClassifyOfflineWhenEngineOffAndStale(t *testing.T) {
	assert.Equal(t, telemetry.StatusOffline, Classify(Inputs{DataAgeMinutes: 10, SpeedMPH: f(0)}))
}

func TestFromSnapshotCopiesFields(t *testing.T) {
	snap := telemetry.Snapshot{SpeedMPH: f(10), RPM: f(900)}
	in := FromSnapshot(snap, 3)
	assert.Equal(t, 3.0, in.DataAgeMinutes)
	assert.Equal(t, 10.0, *in.SpeedMPH)
	assert.Equal(t, 900.0, *in.RPM)
}
