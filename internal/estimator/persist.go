package estimator

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxStateAge is the staleness ceiling applied when restoring persisted
// state: anything older is discarded and the truck starts fresh.
const maxStateAge = 2 * time.Hour

// snapshot is the on-the-wire shape of State, serialized to the optional
// key-value store (or an operational-store table when no cache is
// configured) every flush interval and on shutdown.
type snapshot struct {
	TruckID          string     `json:"truck_id"`
	MeanPct          float64    `json:"mean_pct"`
	Variance         float64    `json:"variance"`
	LastTimestamp    time.Time  `json:"last_timestamp"`
	LastECUTotalGal  *float64   `json:"last_ecu_total_gal,omitempty"`
	ECUFailures      int        `json:"ecu_failures"`
	ECUDegraded      bool       `json:"ecu_degraded"`
	ECUDegradedSince time.Time  `json:"ecu_degraded_since,omitempty"`
	FuelHistoryRing  []float64  `json:"fuel_history_ring,omitempty"`
	LastRefuelTime   time.Time  `json:"last_refuel_time,omitempty"`
	AnchorKind       AnchorKind `json:"anchor_kind"`
}

// Serialize encodes the state to JSON for persistence.
func (s *State) Serialize() ([]byte, error) {
	snap := snapshot{
		TruckID:          s.TruckID,
		MeanPct:          s.MeanPct,
		Variance:         s.Variance,
		LastTimestamp:    s.LastTimestamp,
		LastECUTotalGal:  s.LastECUTotalGal,
		ECUFailures:      s.ECUFailures,
		ECUDegraded:      s.ECUDegraded,
		ECUDegradedSince: s.ECUDegradedSince,
		FuelHistoryRing:  s.FuelHistoryRing,
		LastRefuelTime:   s.LastRefuelTime,
		AnchorKind:       s.AnchorKind,
	}
	return json.Marshal(snap)
}

// Restore decodes previously persisted state. It rejects (returns an error)
// state whose last_timestamp is older than maxStateAge relative to now, so
// the caller starts fresh instead.
func Restore(data []byte, now time.Time) (*State, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal estimator state: %w", err)
	}
	if !snap.LastTimestamp.IsZero() && now.Sub(snap.LastTimestamp) > maxStateAge {
		return nil, fmt.Errorf("persisted state for truck %s is stale (%s old)", snap.TruckID, now.Sub(snap.LastTimestamp))
	}
	return &State{
		TruckID:          snap.TruckID,
		MeanPct:          snap.MeanPct,
		Variance:         snap.Variance,
		LastTimestamp:    snap.LastTimestamp,
		LastECUTotalGal:  snap.LastECUTotalGal,
		ECUFailures:      snap.ECUFailures,
		ECUDegraded:      snap.ECUDegraded,
		ECUDegradedSince: snap.ECUDegradedSince,
		FuelHistoryRing:  snap.FuelHistoryRing,
		LastRefuelTime:   snap.LastRefuelTime,
		AnchorKind:       snap.AnchorKind,
	}, nil
}
