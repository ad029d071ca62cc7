package commandcenter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/actions"
	"github.com/fleetops/fleet-analytics-core/internal/app/metrics"
	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
	domainrisk "github.com/fleetops/fleet-analytics-core/internal/domain/risk"
	"github.com/fleetops/fleet-analytics-core/internal/risk"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

// Dashboard is the full aggregator response returned by GET /dashboard.
type Dashboard struct {
	GeneratedAt    time.Time
	Cached         bool
	FleetHealth    FleetHealth
	UrgencySummary UrgencySummary
	Actions        []action.Item
	Correlations   []domainrisk.Correlation
	Insights       []string
	AdapterFailures []string
}

// Inputs bundles everything one aggregation cycle needs.
type Inputs struct {
	Adapters    []actions.Adapter
	RiskScores  []domainrisk.TruckScore
	TotalTrucks int
}

// Aggregator runs the action adapters, risk/correlation engines, and fleet
// health rollup, caching the result for a configurable TTL with a single
// in-flight generation per key so concurrent requests never thunder the
// underlying adapters.
type Aggregator struct {
	log   *logger.Logger
	group singleflight.Group

	dashboardTTL time.Duration
	actionsTTL   time.Duration
	dispatchHooks core.ObservationHooks

	mu           sync.RWMutex
	dashboard    *Dashboard
	dashboardAt  time.Time
	byTruckItems map[string][]action.Item
}

// New returns an Aggregator with the given cache TTLs. hooks instruments
// every action-adapter dispatch during dashboard generation; pass
// core.NoopObservationHooks to skip instrumentation.
func New(dashboardTTL, actionsTTL time.Duration, log *logger.Logger, hooks core.ObservationHooks) *Aggregator {
	return &Aggregator{dashboardTTL: dashboardTTL, actionsTTL: actionsTTL, log: log, dispatchHooks: hooks}
}

// Dashboard returns the cached dashboard if fresh, otherwise regenerates it
// (collapsing concurrent callers into a single generation via singleflight).
// bypassCache forces regeneration regardless of TTL.
func (a *Aggregator) Dashboard(ctx context.Context, in Inputs, bypassCache bool) (Dashboard, error) {
	if !bypassCache {
		a.mu.RLock()
		cached := a.dashboard
		fresh := cached != nil && time.Since(a.dashboardAt) < a.dashboardTTL
		a.mu.RUnlock()
		if fresh {
			metrics.RecordCacheLookup(true)
			out := *cached
			out.Cached = true
			return out, nil
		}
	}
	metrics.RecordCacheLookup(false)

	v, err, _ := a.group.Do("dashboard", func() (interface{}, error) {
		return a.generate(in)
	})
	if err != nil {
		return Dashboard{}, err
	}
	d := v.(Dashboard)
	metrics.SetFleetHealthScore(d.FleetHealth.Score)
	d.Cached = false
	return d, nil
}

func (a *Aggregator) generate(in Inputs) (Dashboard, error) {
	items, failures := actions.RunWithHooks(a.dispatchHooks, in.Adapters...)
	for _, f := range failures {
		a.log.WithField("component", "commandcenter").Warn(fmt.Sprintf("adapter failure: %s", f))
	}

	byTruck := make(map[string][]action.Item)
	for _, item := range items {
		byTruck[item.TruckID] = append(byTruck[item.TruckID], item)
	}

	correlations := risk.Detect(byTruck)
	fleetHealth := ComputeFleetHealth(in.RiskScores, in.TotalTrucks)
	urgency := Summarize(items)
	insights := BuildInsights(items, fleetHealth, correlations)

	d := Dashboard{
		GeneratedAt:     time.Now().UTC(),
		FleetHealth:     fleetHealth,
		UrgencySummary:  urgency,
		Actions:         items,
		Correlations:    correlations,
		Insights:        insights,
		AdapterFailures: failures,
	}

	a.mu.Lock()
	a.dashboard = &d
	a.dashboardAt = time.Now()
	a.byTruckItems = byTruck
	a.mu.Unlock()

	return d, nil
}

// ActionsForTruck returns the most recently generated action items for one
// truck, or nil if the dashboard has never been generated.
func (a *Aggregator) ActionsForTruck(truckID string) []action.Item {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.byTruckItems[truckID]
}

// FilterActions applies the /actions query filters and caps the result at
// limit (0 means unlimited).
func FilterActions(items []action.Item, priority, category, truckID string, limit int) []action.Item {
	var out []action.Item
	for _, item := range items {
		if priority != "" && string(item.Priority) != priority {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		if truckID != "" && item.TruckID != truckID {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriorityScore > out[j].PriorityScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
