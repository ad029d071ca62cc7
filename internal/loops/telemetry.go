// Package loops implements the periodic background workers: the Telemetry
// Loop (ingest, estimate, classify, persist) and the State Persistence
// Loop, modeled on the teacher's ticker-based refresher pattern.
package loops

import (
	"context"
	"sync"
	"time"

	"github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/app/metrics"
	"github.com/fleetops/fleet-analytics-core/internal/app/system"
	"github.com/fleetops/fleet-analytics-core/internal/classifier"
	"github.com/fleetops/fleet-analytics-core/internal/domain/telemetry"
	"github.com/fleetops/fleet-analytics-core/internal/estimator"
	"github.com/fleetops/fleet-analytics-core/internal/ingest"
	"github.com/fleetops/fleet-analytics-core/internal/registry"
	"github.com/fleetops/fleet-analytics-core/internal/sensorengine"
	"github.com/fleetops/fleet-analytics-core/internal/writer"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

var _ system.Service = (*TelemetryLoop)(nil)

// TelemetryLoop polls the upstream telemetry store, runs every truck's
// snapshot through the classifier and estimator, feeds the trend engine,
// and hands the results to the Sync Writer.
type TelemetryLoop struct {
	reader    *ingest.Reader
	registry  *registry.Registry
	estimator *estimator.Manager
	engine    *sensorengine.Engine
	writer    *writer.Writer
	log       *logger.Logger
	interval  time.Duration
	hooks     service.ObservationHooks

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	snapMu sync.RWMutex
	latest map[string]telemetry.Snapshot
}

// NewTelemetryLoop wires the ingestion reader, estimator manager, trend
// engine, and sync writer into one periodic worker.
func NewTelemetryLoop(
	reader *ingest.Reader,
	reg *registry.Registry,
	est *estimator.Manager,
	engine *sensorengine.Engine,
	w *writer.Writer,
	interval time.Duration,
	log *logger.Logger,
) *TelemetryLoop {
	return &TelemetryLoop{
		reader: reader, registry: reg, estimator: est, engine: engine, writer: w,
		interval: interval, log: log, hooks: metrics.TelemetryIngestHooks(),
		latest: make(map[string]telemetry.Snapshot),
	}
}

func (l *TelemetryLoop) Name() string { return "telemetry-loop" }

// Descriptor advertises this loop's placement to the system manager.
func (l *TelemetryLoop) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:   l.Name(),
		Domain: "fleet-telemetry",
		Layer:  service.LayerIngestion,
	}.WithCapabilities("poll", "estimate", "classify", "sync-write")
}

// Latest returns the most recent snapshot seen for every truck that has
// reported at least once since the loop started. It is read by the HTTP
// layer when assembling one cycle's action-adapter inputs, so the adapters
// that need raw sensor readings (GPS quality, voltage, idle ratio, sensor
// range violations) don't have to re-derive them from stored metrics.
func (l *TelemetryLoop) Latest() []telemetry.Snapshot {
	l.snapMu.RLock()
	defer l.snapMu.RUnlock()
	out := make([]telemetry.Snapshot, 0, len(l.latest))
	for _, snap := range l.latest {
		out = append(out, snap)
	}
	return out
}

func (l *TelemetryLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		l.tick(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				l.tick(runCtx)
			}
		}
	}()

	l.log.Info("telemetry loop started")
	return nil
}

func (l *TelemetryLoop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	cancel := l.cancel
	l.running = false
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *TelemetryLoop) tick(ctx context.Context) {
	start := time.Now()
	done := service.StartObservation(ctx, l.hooks, map[string]string{"component": "telemetry-loop"})
	var err error
	defer func() {
		done(err)
		metrics.RecordCycle("telemetry", time.Since(start), err)
	}()

	snapshots, readErr := l.reader.ReadAllTrucks(ctx)
	if readErr != nil {
		err = readErr
		l.log.WithError(err).Warn("telemetry read failed; keeping prior cycle's state")
		metrics.RecordAdapterFailure("telemetry-reader")
		return
	}

	now := time.Now().UTC()
	processed := make(map[string]bool, len(snapshots))

	for _, snap := range snapshots {
		cfg, ok := l.registry.ByUnitID(snap.UnitID)
		if !ok {
			continue
		}
		processed[cfg.TruckID] = true

		dataAge := snap.DataAgeMinutes(now)
		status := classifier.Classify(classifier.FromSnapshot(snap, dataAge))

		result, accepted := l.estimator.Process(cfg, snap, status, now)
		if !accepted {
			continue
		}

		l.observeTrendSensors(cfg.TruckID, snap, now)
		l.writer.WriteCycle(ctx, map[string]estimator.Result{cfg.TruckID: result})
		l.snapMu.Lock()
		l.latest[cfg.TruckID] = snap
		l.snapMu.Unlock()
		metrics.RecordTruckProcessed("ok")
	}

	for _, cfg := range l.registry.All() {
		if processed[cfg.TruckID] {
			continue
		}
		if refuel := l.estimator.FlushPendingRefuels(cfg, now); refuel != nil {
			l.log.WithField("truck_id", cfg.TruckID).Info("finalized stale pending refuel")
		}
		metrics.RecordTruckProcessed("stale")
	}
}

// trendReading is one numeric sensor value extracted from a snapshot for
// the trend engine to observe.
type trendReading struct {
	sensor string
	value  float64
}

// extractTrendReadings pulls the sensors the trend engine's range table
// covers (§4.4) out of one snapshot.
func extractTrendReadings(snap telemetry.Snapshot) []trendReading {
	var out []trendReading
	add := func(sensor string, v *float64) {
		if v != nil {
			out = append(out, trendReading{sensor: sensor, value: *v})
		}
	}
	add("oil_press", snap.OilPressurePSI)
	add("cool_temp", snap.CoolantTempF)
	add("voltage", snap.VoltageExternal)
	add("engine_load", snap.EngineLoadPct)
	add("rpm", snap.RPM)
	add("def_level", snap.DEFLevelPct)
	return out
}

// observeTrendSensors feeds the numeric sensors the trend engine tracks
// into the ring/EWMA/CUSUM state, recording any anomaly it raises.
func (l *TelemetryLoop) observeTrendSensors(truckID string, snap telemetry.Snapshot, now time.Time) {
	for _, reading := range extractTrendReadings(snap) {
		obs := l.engine.Observe(truckID, reading.sensor, reading.value, now)
		if obs.Anomaly != nil {
			metrics.RecordAnomaly(string(obs.Anomaly.Type))
		}
	}
}
