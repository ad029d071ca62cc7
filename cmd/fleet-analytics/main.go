// Command fleet-analytics runs the Fleet Analytics Core: the telemetry
// poll/estimate/persist loop, the sensor/trend engine's background state
// flush, the hourly trend recorder, and the HTTP dashboard API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/fleetops/fleet-analytics-core/internal/actions"
	"github.com/fleetops/fleet-analytics-core/internal/app/httpapi"
	"github.com/fleetops/fleet-analytics-core/internal/app/metrics"
	"github.com/fleetops/fleet-analytics-core/internal/app/system"
	"github.com/fleetops/fleet-analytics-core/internal/commandcenter"
	"github.com/fleetops/fleet-analytics-core/internal/config"
	"github.com/fleetops/fleet-analytics-core/internal/domain/telemetry"
	"github.com/fleetops/fleet-analytics-core/internal/estimator"
	"github.com/fleetops/fleet-analytics-core/internal/ingest"
	"github.com/fleetops/fleet-analytics-core/internal/loops"
	"github.com/fleetops/fleet-analytics-core/internal/platform/database"
	"github.com/fleetops/fleet-analytics-core/internal/registry"
	"github.com/fleetops/fleet-analytics-core/internal/sensorengine"
	"github.com/fleetops/fleet-analytics-core/internal/storage"
	"github.com/fleetops/fleet-analytics-core/internal/storage/memory"
	"github.com/fleetops/fleet-analytics-core/internal/storage/postgres"
	"github.com/fleetops/fleet-analytics-core/internal/storage/rediskv"
	"github.com/fleetops/fleet-analytics-core/internal/trends"
	"github.com/fleetops/fleet-analytics-core/internal/writer"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

// idleRatioThreshold is the idle-hours/engine-hours fraction above which
// IdleAnalysisAdapter flags a truck for driver coaching.
const idleRatioThreshold = 0.4

func main() {
	addr := flag.String("addr", "", "HTTP listen address (defaults to config HTTP_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	log_ := logger.New(logger.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})

	rootCtx := context.Background()

	var store storage.Store
	var reg *registry.Registry

	if cfg.OperationalDB.Name != "" {
		sqlDB, err := database.Open(rootCtx, cfg.OperationalDB.DSN())
		if err != nil {
			log_.WithError(err).Fatal("connect to operational store")
		}
		opsDB := sqlx.NewDb(sqlDB, "postgres")
		defer opsDB.Close()

		store = postgres.New(opsDB)

		reg, err = registry.Load(rootCtx, opsDB)
		if err != nil {
			log_.WithError(err).Fatal("load truck registry")
		}
	} else {
		log_.Warn("OPSTORE_DB_NAME not set; running against in-memory storage")
		store = memory.New()
		reg = &registry.Registry{}
	}

	est := estimator.NewManager()
	engine := sensorengine.NewEngine()

	var estimatorBlobs storage.EstimatorStateStore = store
	var redisStore *rediskv.Store
	if cfg.RedisEnabled {
		rs, err := rediskv.New(cfg.RedisURL)
		if err != nil {
			log_.WithError(err).Warn("REDIS_URL configured but invalid; falling back to operational store for estimator state")
		} else if pingErr := rs.Ping(rootCtx); pingErr != nil {
			log_.WithError(pingErr).Warn("redis unreachable at startup; falling back to operational store for estimator state")
		} else {
			redisStore = rs
			estimatorBlobs = rs
			log_.Info("using redis fast-path store for estimator state")
		}
	}
	if redisStore != nil {
		defer redisStore.Close()
	}

	restoreState(rootCtx, store, estimatorBlobs, reg, engine, est, log_)

	reader := ingest.NewReader(cfg.TelematicsDB.DSN(), time.Duration(cfg.MaxSnapshotAgeSeconds)*time.Second, reg, log_)
	defer reader.Close()

	syncWriter := writer.New(store, store, log_, metrics.TelemetryIngestHooks())

	aggregator := commandcenter.New(10*time.Second, 10*time.Second, log_, metrics.CommandCenterDispatchHooks())
	ring := trends.NewRing()

	manager := system.NewManager()

	telemetryLoop := loops.NewTelemetryLoop(reader, reg, est, engine, syncWriter, cfg.TelemetryPollInterval, log_)
	persistenceLoop := loops.NewPersistenceLoop(est, engine, store, estimatorBlobs, cfg.StateFlushInterval, log_)
	trendRecorder := loops.NewTrendRecorder(aggregator, ring, cfg.TrendSnapshotInterval)
	if cfg.TrendSnapshotCron != "" {
		trendRecorder = trendRecorder.WithCronSchedule(cfg.TrendSnapshotCron, log_)
	}

	if err := manager.Register(telemetryLoop); err != nil {
		log_.WithError(err).Fatal("register telemetry loop")
	}
	if err := manager.Register(persistenceLoop); err != nil {
		log_.WithError(err).Fatal("register persistence loop")
	}
	if err := manager.Register(trendRecorder); err != nil {
		log_.WithError(err).Fatal("register trend recorder")
	}

	buildInputs := func(ctx context.Context) (commandcenter.Inputs, error) {
		return gatherInputs(ctx, store, reg, telemetryLoop)
	}

	handler := httpapi.NewHandler(httpapi.Deps{
		Registry:    reg,
		Estimator:   est,
		Engine:      engine,
		Aggregator:  aggregator,
		TrendRing:   ring,
		Recorder:    trendRecorder,
		Store:       store,
		Config:      cfg,
		BuildInputs: buildInputs,
		Log:         log_,
	})

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", cfg.HTTPPort)
	}

	httpServer := httpapi.NewServer(listenAddr, handler)
	if err := manager.Register(httpServer); err != nil {
		log_.WithError(err).Fatal("register http server")
	}

	var watcher *config.Watcher
	if cfg.ConfigFilePath != "" {
		w, err := config.NewWatcher(cfg.ConfigFilePath, log_)
		if err != nil {
			log_.WithError(err).Warn("config override file unavailable; running with baked-in defaults")
		} else {
			watcher = w
			if err := manager.Register(watcher); err != nil {
				log_.WithError(err).Fatal("register config watcher")
			}
		}
	}

	if err := manager.Start(rootCtx); err != nil {
		log_.WithError(err).Fatal("start services")
	}
	for _, d := range manager.Descriptors() {
		log_.WithField("layer", string(d.Layer)).WithField("capabilities", d.Capabilities).Info(d.Name + " running")
	}
	log_.WithField("addr", listenAddr).Info("fleet analytics core started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			if watcher == nil {
				log_.Warn("SIGHUP received but no config override file is configured")
				continue
			}
			log_.Info("SIGHUP received; reloading config override file")
			watcher.Reload()
			continue
		}
		break
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		log_.WithError(err).Fatal("shutdown")
	}
}

// restoreState seeds the trend engine's EWMA/CUSUM state from whatever the
// operational store persisted on the last run, and seeds each registered
// truck's Kalman estimator state from blobs (Redis when configured, the
// operational store otherwise), so a restart resumes without re-learning
// from cold state. Stale or unparseable blobs are skipped; that truck
// starts cold instead of blocking startup.
func restoreState(ctx context.Context, store storage.Store, blobs storage.EstimatorStateStore, reg *registry.Registry, engine *sensorengine.Engine, est *estimator.Manager, log_ *logger.Logger) {
	states, err := store.LoadAllStates(ctx)
	if err != nil {
		log_.WithError(err).Warn("failed to load persisted trend engine state; starting cold")
		return
	}
	for _, s := range states {
		engine.SeedState(s)
	}

	now := time.Now().UTC()
	for _, cfg := range reg.All() {
		blob, ok, err := blobs.LoadEstimatorState(ctx, cfg.TruckID)
		if err != nil || !ok {
			continue
		}
		state, err := estimator.Restore(blob, now)
		if err != nil {
			log_.WithField("truck_id", cfg.TruckID).WithError(err).Debug("discarding stale estimator state")
			continue
		}
		est.Seed(state)
	}
}

// gatherInputs assembles one cycle's action-adapter inputs from the
// telemetry loop's latest per-truck snapshots and the operational store's
// risk/anomaly history. It is invoked lazily by the HTTP layer whenever the
// aggregator's cached dashboard has expired.
func gatherInputs(ctx context.Context, store storage.Store, reg *registry.Registry, telemetryLoop *loops.TelemetryLoop) (commandcenter.Inputs, error) {
	metricsNow, err := store.LatestMetrics(ctx)
	if err != nil {
		return commandcenter.Inputs{}, err
	}
	riskScores, err := store.LatestRiskScores(ctx)
	if err != nil {
		return commandcenter.Inputs{}, err
	}
	anomalies, err := store.RecentAnomalies(ctx, 24)
	if err != nil {
		return commandcenter.Inputs{}, err
	}

	snapshots := telemetryLoop.Latest()

	adapters := []actions.Adapter{
		actions.PredictiveMaintenanceAdapter(riskScores),
		actions.MLAnomalyAdapter(anomalies),
		actions.SensorHealthAdapter(snapshots, findOutOfRange),
		actions.DTCEventsAdapter(snapshots),
		actions.RealTimePredictiveAdapter(metricsNow),
		actions.GPSQualityAdapter(snapshots),
		actions.VoltageMonitorAdapter(snapshots),
		actions.IdleAnalysisAdapter(snapshots, idleRatioThreshold),
	}

	return commandcenter.Inputs{
		Adapters:    adapters,
		RiskScores:  riskScores,
		TotalTrucks: reg.Count(),
	}, nil
}

// rangedSensors pairs each sensor the trend engine's range table covers
// (§4.4) with its snapshot accessor.
var rangedSensors = []struct {
	name string
	get  func(telemetry.Snapshot) *float64
}{
	{"oil_press", func(s telemetry.Snapshot) *float64 { return s.OilPressurePSI }},
	{"cool_temp", func(s telemetry.Snapshot) *float64 { return s.CoolantTempF }},
	{"voltage", func(s telemetry.Snapshot) *float64 { return s.VoltageExternal }},
	{"engine_load", func(s telemetry.Snapshot) *float64 { return s.EngineLoadPct }},
	{"rpm", func(s telemetry.Snapshot) *float64 { return s.RPM }},
	{"def_level", func(s telemetry.Snapshot) *float64 { return s.DEFLevelPct }},
}

// findOutOfRange checks every ranged sensor on a snapshot against its
// configured valid range, feeding SensorHealthAdapter.
func findOutOfRange(snap telemetry.Snapshot) []actions.OutOfRangeReading {
	var out []actions.OutOfRangeReading
	for _, sensor := range rangedSensors {
		v := sensor.get(snap)
		if v == nil || sensorengine.IsValid(sensor.name, *v) {
			continue
		}
		out = append(out, actions.OutOfRangeReading{Sensor: sensor.name, Value: *v})
	}
	return out
}
