package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
	"github.com/fleetops/fleet-analytics-core/internal/domain/telemetry"
)

func floatPtr(v float64) *float64 { return &v }

func TestPredictiveMaintenanceAdapterEmitsForHighAndCriticalOnly(t *testing.T) {
	adapter := PredictiveMaintenanceAdapter([]domainrisk.TruckScore{
		{TruckID: "truck-1", Level: domainrisk.LevelCritical, Score: 90, Factors: []string{"engine"}},
		{TruckID: "truck-2", Level: domainrisk.LevelLow, Score: 15},
	})
	items := adapter()
	require.Len(t, items, 1)
	assert.Equal(t, "truck-1", items[0].TruckID)
	assert.Equal(t, "engine", items[0].Component)
}

func TestGPSQualityAdapterFlagsLowSatellitesOrHighHDOP(t *testing.T) {
	adapter := GPSQualityAdapter([]telemetry.Snapshot{
		{TruckID: "truck-1", Satellites: floatPtr(2)},
		{TruckID: "truck-2", Satellites: floatPtr(8), HDOP: floatPtr(1.0)},
	})
	items := adapter()
	require.Len(t, items, 1)
	assert.Equal(t, "truck-1", items[0].TruckID)
}

func TestVoltageMonitorAdapterFlagsOutsideHealthyBand(t *testing.T) {
	adapter := VoltageMonitorAdapter([]telemetry.Snapshot{
		{TruckID: "truck-1", VoltageExternal: floatPtr(9.0)},
		{TruckID: "truck-2", VoltageExternal: floatPtr(13.0)},
	})
	items := adapter()
	require.Len(t, items, 1)
	assert.Equal(t, "truck-1", items[0].TruckID)
}

func TestIdleAnalysisAdapterFlagsRatioAboveThreshold(t *testing.T) {
	adapter := IdleAnalysisAdapter([]telemetry.Snapshot{
		{TruckID: "truck-1", IdleHours: floatPtr(5), EngineHours: floatPtr(10)},
		{TruckID: "truck-2", IdleHours: floatPtr(1), EngineHours: floatPtr(10)},
	}, 0.4)
	items := adapter()
	require.Len(t, items, 1)
	assert.Equal(t, "truck-1", items[0].TruckID)
}

func TestRunRecoversFromPanickingAdapter(t *testing.T) {
	panicky := Adapter(func() []action.Item { panic("boom") })
	ok := PredictiveMaintenanceAdapter([]domainrisk.TruckScore{
		{TruckID: "truck-1", Level: domainrisk.LevelCritical, Score: 95},
	})

	items, failures := Run(panicky, ok)
	require.Len(t, failures, 1)
	require.Len(t, items, 1)
	assert.Equal(t, "truck-1", items[0].TruckID)
}
