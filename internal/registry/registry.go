// Package registry loads the static, immutable-after-startup per-truck
// configuration the rest of the core keys all lookups against.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/fleetops/fleet-analytics-core/internal/domain/truck"
)

// row mirrors the truck_registry table in the operational store, the only
// table read here: unit_id and capacity_gallons are not cross-checked
// against the upstream units_map table, and carrier_id and refuel_factor
// are not carried by the upstream telematics schema at all.
type row struct {
	TruckID         string  `db:"truck_id"`
	UnitID          int64   `db:"unit_id"`
	CapacityGallons float64 `db:"capacity_gallons"`
	CarrierID       string  `db:"carrier_id"`
	RefuelFactor    *float64 `db:"refuel_factor"`
}

// Registry exposes pure, read-only lookups of truck.Config by truck_id or
// unit_id. It is populated once at startup and never mutated afterward.
type Registry struct {
	mu       sync.RWMutex
	byTruck  map[string]truck.Config
	byUnit   map[int64]truck.Config
}

// Load reads every active row from the operational store's truck_registry
// table and builds an in-memory Registry. A failure here is fatal: the
// process cannot run without knowing which trucks to poll.
func Load(ctx context.Context, db *sqlx.DB) (*Registry, error) {
	var rows []row
	const query = `SELECT truck_id, unit_id, capacity_gallons, carrier_id, refuel_factor
	               FROM truck_registry WHERE active = true`
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load truck registry: %w", err)
	}

	reg := &Registry{
		byTruck: make(map[string]truck.Config, len(rows)),
		byUnit:  make(map[int64]truck.Config, len(rows)),
	}
	for _, r := range rows {
		refuelFactor := 1.0
		if r.RefuelFactor != nil {
			refuelFactor = *r.RefuelFactor
		}
		cfg := truck.NewConfig(r.TruckID, r.UnitID, r.CapacityGallons, r.CarrierID, refuelFactor)
		reg.byTruck[cfg.TruckID] = cfg
		reg.byUnit[cfg.UnitID] = cfg
	}
	if len(reg.byTruck) == 0 {
		return nil, fmt.Errorf("truck registry is empty")
	}
	return reg, nil
}

// All returns every known truck configuration.
func (r *Registry) All() []truck.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]truck.Config, 0, len(r.byTruck))
	for _, cfg := range r.byTruck {
		out = append(out, cfg)
	}
	return out
}

// ByTruckID looks up a truck by its stable string id.
func (r *Registry) ByTruckID(truckID string) (truck.Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byTruck[truckID]
	return cfg, ok
}

// ByUnitID looks up a truck by its upstream numeric unit id.
func (r *Registry) ByUnitID(unitID int64) (truck.Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byUnit[unitID]
	return cfg, ok
}

// UnitIDs returns the set of upstream unit ids to poll, in no particular
// order.
func (r *Registry) UnitIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.byUnit))
	for id := range r.byUnit {
		out = append(out, id)
	}
	return out
}

// Count returns the number of registered trucks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTruck)
}
