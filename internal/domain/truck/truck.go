// Package truck holds the static, immutable-after-startup configuration for
// a fleet vehicle.
package truck

const gallonsToLiters = 3.78541

// Config is the per-truck static configuration loaded once at startup from
// the tank registry. It never changes for the lifetime of the process.
type Config struct {
	TruckID         string
	UnitID          int64
	CapacityGallons float64
	CapacityLiters  float64
	CarrierID       string
	RefuelFactor    float64
}

// NewConfig derives CapacityLiters from CapacityGallons and defaults
// RefuelFactor to 1.0 when unset.
func NewConfig(truckID string, unitID int64, capacityGallons float64, carrierID string, refuelFactor float64) Config {
	if refuelFactor <= 0 {
		refuelFactor = 1.0
	}
	return Config{
		TruckID:         truckID,
		UnitID:          unitID,
		CapacityGallons: capacityGallons,
		CapacityLiters:  capacityGallons * gallonsToLiters,
		CarrierID:       carrierID,
		RefuelFactor:    refuelFactor,
	}
}
