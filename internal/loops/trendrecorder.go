package loops

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/app/system"
	"github.com/fleetops/fleet-analytics-core/internal/commandcenter"
	"github.com/fleetops/fleet-analytics-core/internal/trends"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

var _ system.Service = (*TrendRecorder)(nil)

// TrendRecorder periodically captures a fleet-health/issue-count snapshot
// into the trend ring; POST /trends/record triggers the same capture
// on-demand via RecordNow. Capture cadence is a plain ticker by default, or
// a cron expression (cronSpec) when an operator wants off-the-interval
// scheduling, e.g. "only at the top of each hour on weekdays".
type TrendRecorder struct {
	aggregator *commandcenter.Aggregator
	ring       *trends.Ring
	interval   time.Duration
	cronSpec   string
	log        *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	cronJob *cron.Cron
}

// NewTrendRecorder wires the aggregator's dashboard into the trend ring,
// capturing every interval.
func NewTrendRecorder(aggregator *commandcenter.Aggregator, ring *trends.Ring, interval time.Duration) *TrendRecorder {
	return &TrendRecorder{aggregator: aggregator, ring: ring, interval: interval}
}

// WithCronSchedule switches the recorder's capture cadence to the given
// five-field cron expression instead of the plain interval ticker. Returns
// the recorder for chaining at construction time.
func (t *TrendRecorder) WithCronSchedule(spec string, log *logger.Logger) *TrendRecorder {
	t.cronSpec = spec
	t.log = log
	return t
}

func (t *TrendRecorder) Name() string { return "trend-recorder" }

// Descriptor advertises this loop's placement to the system manager. Its
// capabilities reflect whichever cadence it was configured with.
func (t *TrendRecorder) Descriptor() service.Descriptor {
	caps := []string{"hourly-snapshot"}
	if t.cronSpec != "" {
		caps = append(caps, "cron-schedule")
	}
	return service.Descriptor{
		Name:   t.Name(),
		Domain: "fleet-telemetry",
		Layer:  service.LayerEngine,
	}.WithCapabilities(caps...)
}

func (t *TrendRecorder) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true

	if t.cronSpec != "" {
		job := cron.New()
		if _, err := job.AddFunc(t.cronSpec, func() { t.RecordNow(runCtx) }); err != nil {
			t.running = false
			t.cancel = nil
			t.mu.Unlock()
			cancel()
			return err
		}
		t.cronJob = job
		t.mu.Unlock()
		job.Start()
		if t.log != nil {
			t.log.WithField("cron", t.cronSpec).Info("trend recorder using cron schedule")
		}
		return nil
	}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				t.RecordNow(runCtx)
			}
		}
	}()
	return nil
}

func (t *TrendRecorder) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	cancel := t.cancel
	cronJob := t.cronJob
	t.running = false
	t.cancel = nil
	t.cronJob = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if cronJob != nil {
		stopCtx := cronJob.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordNow captures one trend snapshot from the aggregator's current
// cached dashboard (or triggers generation if none exists yet).
func (t *TrendRecorder) RecordNow(ctx context.Context) {
	dash, err := t.aggregator.Dashboard(ctx, commandcenter.Inputs{}, false)
	if err != nil {
		return
	}
	t.ring.Record(trends.Snapshot{
		Timestamp:     time.Now().UTC(),
		FleetHealth:   dash.FleetHealth.Score,
		CriticalCount: dash.UrgencySummary.Critical,
		HighCount:     dash.UrgencySummary.High,
		MediumCount:   dash.UrgencySummary.Medium,
		LowCount:      dash.UrgencySummary.Low,
		TotalIssues:   dash.UrgencySummary.Critical + dash.UrgencySummary.High + dash.UrgencySummary.Medium + dash.UrgencySummary.Low,
	})
}
