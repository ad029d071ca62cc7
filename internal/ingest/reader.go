// Package ingest implements the Telemetry Reader: a batched poll over the
// upstream sensor database that reconciles scattered (unit, parameter) rows
// into one snapshot per truck.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fleetops/fleet-analytics-core/internal/domain/telemetry"
	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/registry"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

// Whitelisted parameter names, per the upstream contract.
var Parameters = []string{
	"fuel_lvl", "speed", "rpm", "odom", "fuel_rate", "cool_temp", "hdop",
	"altitude", "obd_speed", "engine_hours", "pwr_ext", "oil_press",
	"total_fuel_used", "total_idle_fuel", "engine_load", "air_temp",
	"oil_temp", "def_level", "intake_air_temp", "dtc", "idle_hours",
	"sats", "pwr_int", "course",
}

// per-parameter freshness budgets, relative to the latest epoch seen for a
// unit. fuel_lvl gets a much longer budget because it's the single most
// important reading and upstream reports it less often than motion data.
var freshnessBudget = map[string]time.Duration{
	"fuel_lvl": 4 * time.Hour,
}

const defaultFreshnessBudget = 15 * time.Minute
const fuelLevelSecondaryBudget = 12 * time.Hour
const connectionMaxAge = time.Hour
const maxBulkRows = 5000

// Reader polls the upstream sensor database on a fixed cadence.
type Reader struct {
	dsn     string
	maxAge  time.Duration
	log     *logger.Logger
	reg     *registry.Registry

	mu      sync.Mutex
	db      *sqlx.DB
	openedAt time.Time
}

// NewReader builds a Reader against the upstream DSN. maxAge bounds how
// stale a unit's latest reading may be and still produce a snapshot.
func NewReader(dsn string, maxAge time.Duration, reg *registry.Registry, log *logger.Logger) *Reader {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Reader{dsn: dsn, maxAge: maxAge, reg: reg, log: log}
}

// Close releases the underlying connection, if any.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// ensureConnection reopens the connection if it is older than
// connectionMaxAge, or pings and reopens on failure. Connection attempts use
// exponential backoff (base 2s, max 60s, 5 attempts) and a 10s connect
// timeout, matching the reconnection contract for the upstream link.
func (r *Reader) ensureConnection(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		if time.Since(r.openedAt) < connectionMaxAge {
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := r.db.PingContext(pingCtx)
			cancel()
			if err == nil {
				return nil
			}
			if r.log != nil {
				r.log.WithError(err).Warn("upstream connection ping failed, reconnecting")
			}
		}
		_ = r.db.Close()
		r.db = nil
	}

	policy := core.RetryPolicy{Attempts: 5, InitialBackoff: 2 * time.Second, MaxBackoff: 60 * time.Second, Multiplier: 2}
	var opened *sqlx.DB
	err := core.Retry(ctx, policy, func() error {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := sqlx.ConnectContext(connectCtx, "postgres", r.dsn)
		if err != nil {
			return err
		}
		opened = db
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to upstream sensor database: %w", err)
	}
	r.db = opened
	r.openedAt = time.Now()
	return nil
}

type sensorRow struct {
	Unit  int64     `db:"unit"`
	P     string    `db:"p"`
	Value float64   `db:"value"`
	M     int64     `db:"m"`
	Lat   *float64  `db:"from_latitude"`
	Lon   *float64  `db:"from_longitude"`
}

// ReadAllTrucks performs one poll cycle. On connection or query failure it
// clears the connection handle and returns an empty list, relying on the
// next cycle to retry.
func (r *Reader) ReadAllTrucks(ctx context.Context) ([]telemetry.Snapshot, error) {
	if err := r.ensureConnection(ctx); err != nil {
		return nil, err
	}

	units := r.reg.UnitIDs()
	if len(units) == 0 {
		return nil, nil
	}

	cutoff := time.Now().UTC().Add(-r.maxAge).Unix()

	rows, err := r.windowedQuery(ctx, units, cutoff)
	if err != nil {
		if r.log != nil {
			r.log.WithError(err).Warn("windowed query failed, falling back to bulk fetch")
		}
		rows, err = r.bulkQuery(ctx, units, cutoff)
		if err != nil {
			r.mu.Lock()
			if r.db != nil {
				_ = r.db.Close()
				r.db = nil
			}
			r.mu.Unlock()
			return nil, fmt.Errorf("read upstream sensor rows: %w", err)
		}
	}

	fuelLevelCutoff := time.Now().UTC().Add(-fuelLevelSecondaryBudget).Unix()
	missingFuel := r.buildSnapshots(rows)
	snapshots := missingFuel.snapshots

	var needSecondary []int64
	for unit, snap := range missingFuel.byUnit {
		if snap.FuelLevelPct == nil {
			needSecondary = append(needSecondary, unit)
		}
	}
	if len(needSecondary) > 0 {
		secondaryRows, err := r.secondaryFuelQuery(ctx, needSecondary, fuelLevelCutoff)
		if err == nil {
			applySecondaryFuel(missingFuel.byUnit, secondaryRows)
		} else if r.log != nil {
			r.log.WithError(err).Debug("secondary fuel-level query failed")
		}
	}

	out := make([]telemetry.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if cfg, ok := r.reg.ByUnitID(s.UnitID); ok {
			s.TruckID = cfg.TruckID
			out = append(out, s)
		}
	}
	return out, nil
}

// windowedQuery uses a row_number() window function partitioned by
// (unit, p) to cap the number of rows transferred per parameter.
func (r *Reader) windowedQuery(ctx context.Context, units []int64, cutoff int64) ([]sensorRow, error) {
	const n = 3 // most recent N rows per (unit, parameter)
	query, args, err := sqlx.In(`
		SELECT unit, p, value, m, from_latitude, from_longitude FROM (
			SELECT unit, p, value, m, from_latitude, from_longitude,
			       ROW_NUMBER() OVER (PARTITION BY unit, p ORDER BY m DESC) AS rn
			FROM sensors
			WHERE unit IN (?) AND p IN (?) AND m >= ?
		) ranked
		WHERE rn <= `+fmt.Sprint(n), units, Parameters, cutoff)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var rows []sensorRow
	if err := r.db.SelectContext(queryCtx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// bulkQuery is the fallback path for engines without window functions: an
// ordered bulk fetch capped at maxBulkRows rows.
func (r *Reader) bulkQuery(ctx context.Context, units []int64, cutoff int64) ([]sensorRow, error) {
	query, args, err := sqlx.In(`
		SELECT unit, p, value, m, from_latitude, from_longitude
		FROM sensors
		WHERE unit IN (?) AND p IN (?) AND m >= ?
		ORDER BY m DESC
		LIMIT `+fmt.Sprint(maxBulkRows), units, Parameters, cutoff)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var rows []sensorRow
	if err := r.db.SelectContext(queryCtx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Reader) secondaryFuelQuery(ctx context.Context, units []int64, cutoff int64) ([]sensorRow, error) {
	query, args, err := sqlx.In(`
		SELECT unit, p, value, m, from_latitude, from_longitude FROM (
			SELECT unit, p, value, m, from_latitude, from_longitude,
			       ROW_NUMBER() OVER (PARTITION BY unit ORDER BY m DESC) AS rn
			FROM sensors
			WHERE unit IN (?) AND p = 'fuel_lvl' AND m >= ?
		) ranked
		WHERE rn = 1`, units, cutoff)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var rows []sensorRow
	if err := r.db.SelectContext(queryCtx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

type buildResult struct {
	snapshots []telemetry.Snapshot
	byUnit    map[int64]*telemetry.Snapshot
}

// buildSnapshots groups rows by unit, determines the latest epoch per unit,
// and for each parameter of interest takes its most recent value whose age
// relative to that latest epoch is within its freshness budget.
func (r *Reader) buildSnapshots(rows []sensorRow) buildResult {
	byUnit := make(map[int64][]sensorRow)
	for _, row := range rows {
		byUnit[row.Unit] = append(byUnit[row.Unit], row)
	}

	out := buildResult{byUnit: make(map[int64]*telemetry.Snapshot)}
	for unit, unitRows := range byUnit {
		sort.Slice(unitRows, func(i, j int) bool { return unitRows[i].M > unitRows[j].M })
		latestEpoch := unitRows[0].M

		latestByParam := make(map[string]sensorRow)
		for _, row := range unitRows {
			budget := defaultFreshnessBudget
			if b, ok := freshnessBudget[row.P]; ok {
				budget = b
			}
			age := time.Duration(latestEpoch-row.M) * time.Second
			if age > budget {
				continue
			}
			if _, exists := latestByParam[row.P]; !exists {
				latestByParam[row.P] = row
			}
		}
		if _, ok := latestByParam["fuel_lvl"]; !ok {
			// leave absent; the secondary query may fill it in later.
		}

		snap := telemetry.Snapshot{
			UnitID:       unit,
			Timestamp:    time.Unix(latestEpoch, 0).UTC(),
			EpochSeconds: latestEpoch,
		}
		applyParams(&snap, latestByParam)
		out.snapshots = append(out.snapshots, snap)
	}
	for i := range out.snapshots {
		out.byUnit[out.snapshots[i].UnitID] = &out.snapshots[i]
	}
	return out
}

func applySecondaryFuel(byUnit map[int64]*telemetry.Snapshot, rows []sensorRow) {
	for _, row := range rows {
		if snap, ok := byUnit[row.Unit]; ok && snap.FuelLevelPct == nil {
			v := row.Value
			snap.FuelLevelPct = &v
		}
	}
}

func applyParams(snap *telemetry.Snapshot, byParam map[string]sensorRow) {
	f := func(p string) *float64 {
		if row, ok := byParam[p]; ok {
			v := row.Value
			return &v
		}
		return nil
	}

	snap.FuelLevelPct = f("fuel_lvl")
	snap.SpeedMPH = f("speed")
	if snap.SpeedMPH == nil {
		snap.SpeedMPH = f("obd_speed")
	}
	snap.RPM = f("rpm")
	snap.OdometerMiles = f("odom")
	snap.FuelRateLPerH = f("fuel_rate")
	snap.CoolantTempF = f("cool_temp")
	snap.HDOP = f("hdop")
	snap.AltitudeFt = f("altitude")
	snap.EngineHours = f("engine_hours")
	snap.VoltageExternal = f("pwr_ext")
	snap.OilPressurePSI = f("oil_press")
	snap.TotalFuelUsedGal = f("total_fuel_used")
	snap.TotalIdleFuelGal = f("total_idle_fuel")
	snap.EngineLoadPct = f("engine_load")
	snap.IntakeAirTempF = f("air_temp")
	if snap.IntakeAirTempF == nil {
		snap.IntakeAirTempF = f("intake_air_temp")
	}
	snap.OilTempF = f("oil_temp")
	snap.DEFLevelPct = f("def_level")
	snap.IdleHours = f("idle_hours")
	snap.Satellites = f("sats")
	snap.VoltageInternal = f("pwr_int")
	snap.Course = f("course")

	if row, ok := byParam["dtc"]; ok {
		snap.DTCCodes = strings.TrimSpace(fmt.Sprintf("%v", row.Value))
	}
	if row, ok := byParam["fuel_lvl"]; ok {
		if row.Lat != nil {
			snap.Latitude = row.Lat
		}
		if row.Lon != nil {
			snap.Longitude = row.Lon
		}
	}
	if snap.Latitude == nil || snap.Longitude == nil {
		for _, row := range byParam {
			if row.Lat != nil && row.Lon != nil {
				snap.Latitude = row.Lat
				snap.Longitude = row.Lon
				break
			}
		}
	}
}
