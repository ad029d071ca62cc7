package trends

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordPrunesEntriesOlderThanSevenDays(t *testing.T) {
	r := NewRing()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r.Record(Snapshot{Timestamp: base, FleetHealth: 90})
	r.Record(Snapshot{Timestamp: base.Add(8 * 24 * time.Hour), FleetHealth: 70})

	latest, ok := r.Latest()
	assert.True(t, ok)
	assert.Equal(t, 70.0, latest.FleetHealth)

	since := r.Since(base.Add(8*24*time.Hour), maxAgeHours)
	assert.Len(t, since, 1)
}

func TestSinceClampsHoursRange(t *testing.T) {
	r := NewRing()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	r.Record(Snapshot{Timestamp: now.Add(-200 * time.Hour), FleetHealth: 50})
	r.Record(Snapshot{Timestamp: now.Add(-2 * time.Hour), FleetHealth: 95})

	withinDefault := r.Since(now, 0) // clamps to 1
	assert.Len(t, withinDefault, 0, "nothing within the last hour")

	withinMax := r.Since(now, 9999) // clamps to maxAgeHours
	assert.Len(t, withinMax, 1, "200h-old entry was pruned by Record's 7-day cutoff before this call")
}

func TestLatestOnEmptyRing(t *testing.T) {
	r := NewRing()
	_, ok := r.Latest()
	assert.False(t, ok)
}
