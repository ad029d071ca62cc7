package loops

import (
	"context"
	"sync"
	"time"

	"github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/app/system"
	"github.com/fleetops/fleet-analytics-core/internal/estimator"
	"github.com/fleetops/fleet-analytics-core/internal/sensorengine"
	"github.com/fleetops/fleet-analytics-core/internal/storage"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

var _ system.Service = (*PersistenceLoop)(nil)

// PersistenceLoop periodically flushes the estimator's per-truck Kalman
// state and the trend engine's EWMA/CUSUM state to the operational store so
// a restart can resume without re-learning from cold state.
type PersistenceLoop struct {
	estimator *estimator.Manager
	engine    *sensorengine.Engine
	states    storage.AlgorithmStateStore
	blobs     storage.EstimatorStateStore
	log       *logger.Logger
	interval  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewPersistenceLoop wires the estimator and trend engine into a periodic
// flush worker.
func NewPersistenceLoop(
	est *estimator.Manager,
	engine *sensorengine.Engine,
	states storage.AlgorithmStateStore,
	blobs storage.EstimatorStateStore,
	interval time.Duration,
	log *logger.Logger,
) *PersistenceLoop {
	return &PersistenceLoop{estimator: est, engine: engine, states: states, blobs: blobs, interval: interval, log: log}
}

func (p *PersistenceLoop) Name() string { return "state-persistence-loop" }

// Descriptor advertises this loop's placement to the system manager.
func (p *PersistenceLoop) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:   p.Name(),
		Domain: "fleet-telemetry",
		Layer:  service.LayerData,
	}.WithCapabilities("flush-estimator-state", "flush-trend-state")
}

func (p *PersistenceLoop) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.flush(runCtx)
			}
		}
	}()

	p.log.Info("state persistence loop started")
	return nil
}

func (p *PersistenceLoop) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	p.flush(ctx) // final flush on shutdown

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PersistenceLoop) flush(ctx context.Context) {
	done := service.StartObservation(ctx, service.NoopObservationHooks, map[string]string{"component": "state-persistence-loop"})
	var err error
	defer done(err)

	for truckID, blob := range p.estimator.Serialize() {
		if saveErr := p.blobs.SaveEstimatorState(ctx, truckID, blob); saveErr != nil {
			err = saveErr
			p.log.WithField("truck_id", truckID).WithError(saveErr).Debug("estimator state flush failed")
		}
	}

	for _, state := range p.engine.States() {
		if saveErr := p.states.UpsertState(ctx, state); saveErr != nil {
			err = saveErr
			p.log.WithField("truck_id", state.TruckID).WithField("sensor", state.Sensor).WithError(saveErr).Debug("algorithm state flush failed")
		}
	}
}
