package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/internal/commandcenter"
	"github.com/fleetops/fleet-analytics-core/internal/risk"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// envelope is the success response wrapper; errors use errorEnvelope.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": err.Error()})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	metrics, err := h.deps.Store.LatestMetrics(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	dataQuality := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		dataQuality[m.TruckID] = m.DataAgeMinutes
	}
	writeOK(w, map[string]interface{}{
		"status":       "ok",
		"trucks_known": h.deps.Registry.Count(),
		"data_quality": dataQuality,
	})
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bypass := r.URL.Query().Get("bypass_cache") == "true"

	inputs, err := h.deps.BuildInputs(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	dash, err := h.deps.Aggregator.Dashboard(ctx, inputs, bypass)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w, dash)
}

func (h *handler) actions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inputs, err := h.deps.BuildInputs(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	dash, err := h.deps.Aggregator.Dashboard(ctx, inputs, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	q := r.URL.Query()
	requested := 0
	if raw := q.Get("limit"); raw != "" {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil || v < 0 {
			writeError(w, http.StatusBadRequest, ErrInvalidParameter)
			return
		}
		requested = v
	}
	limit := core.ClampLimit(requested, core.DefaultListLimit, core.MaxListLimit)

	filtered := commandcenter.FilterActions(dash.Actions, q.Get("priority"), q.Get("category"), q.Get("truck_id"), limit)
	writeOK(w, filtered)
}

func (h *handler) truck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	truckID := mux.Vars(r)["id"]
	if _, ok := h.deps.Registry.ByTruckID(truckID); !ok {
		writeError(w, http.StatusNotFound, ErrTruckNotFound)
		return
	}

	items := h.deps.Aggregator.ActionsForTruck(truckID)
	sort.SliceStable(items, func(i, j int) bool { return items[i].PriorityScore > items[j].PriorityScore })

	overall := 0.0
	if len(items) > 0 {
		overall = items[0].PriorityScore
	}

	metrics, _ := h.deps.Store.MetricsSince(ctx, truckID, 1)
	var latest interface{}
	if len(metrics) > 0 {
		latest = metrics[len(metrics)-1]
	}

	writeOK(w, map[string]interface{}{
		"truck_id":         truckID,
		"overall_priority": overall,
		"actions":          items,
		"latest_metric":    latest,
	})
}

func (h *handler) truckComprehensive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	truckID := mux.Vars(r)["id"]
	if _, ok := h.deps.Registry.ByTruckID(truckID); !ok {
		writeError(w, http.StatusNotFound, ErrTruckNotFound)
		return
	}

	scores, err := h.deps.Store.LatestRiskScores(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	predictive := 100.0
	for _, s := range scores {
		if s.TruckID == truckID {
			predictive = 100 - s.Score
			break
		}
	}

	driver := 100.0
	metricsHistory, _ := h.deps.Store.MetricsSince(ctx, truckID, 24)
	for _, m := range metricsHistory {
		if m.Status == "STOPPED" && m.IdleMode == "fallback" {
			driver -= 2
		}
	}
	if driver < 0 {
		driver = 0
	}

	component := 100.0
	items := h.deps.Aggregator.ActionsForTruck(truckID)
	for _, item := range items {
		if item.Category == "sensor_health" || item.Category == "ml_anomaly" {
			component -= 10
		}
	}
	if component < 0 {
		component = 0
	}

	result := commandcenter.Comprehensive(commandcenter.ComprehensiveInputs{
		PredictiveScore: predictive,
		DriverScore:     driver,
		ComponentScore:  component,
		DTCString:       r.URL.Query().Get("dtc_string"),
	})
	writeOK(w, result)
}

func (h *handler) insights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inputs, err := h.deps.BuildInputs(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	dash, err := h.deps.Aggregator.Dashboard(ctx, inputs, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	metrics, _ := h.deps.Store.LatestMetrics(ctx)
	fresh := 0
	for _, m := range metrics {
		if m.DataAgeMinutes <= 15 {
			fresh++
		}
	}
	dataQuality := 1.0
	if h.deps.Registry.Count() > 0 {
		dataQuality = float64(fresh) / float64(h.deps.Registry.Count())
	}

	writeOK(w, map[string]interface{}{
		"insights":     dash.Insights,
		"fleet_health": dash.FleetHealth,
		"data_quality": dataQuality,
	})
}

func (h *handler) trends(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 168 {
			writeError(w, http.StatusBadRequest, ErrInvalidParameter)
			return
		}
		hours = v
	}
	snapshots := h.deps.TrendRing.Since(time.Now().UTC(), hours)
	writeOK(w, snapshots)
}

func (h *handler) recordTrend(w http.ResponseWriter, r *http.Request) {
	if h.deps.Recorder != nil {
		h.deps.Recorder.RecordNow(r.Context())
	}
	writeOK(w, map[string]string{"status": "recorded"})
}

func (h *handler) riskScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	topN := 10
	if raw := r.URL.Query().Get("top_n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 50 {
			writeError(w, http.StatusBadRequest, ErrInvalidParameter)
			return
		}
		topN = v
	}

	scores, err := h.deps.Store.LatestRiskScores(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if len(scores) > topN {
		scores = scores[:topN]
	}
	writeOK(w, scores)
}

func (h *handler) correlations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.deps.Store.RecentCorrelations(ctx, 24)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w, list)
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (h *handler) defPrediction(w http.ResponseWriter, r *http.Request) {
	truckID := mux.Vars(r)["id"]
	cfg, ok := h.deps.Registry.ByTruckID(truckID)
	if !ok {
		writeError(w, http.StatusNotFound, ErrTruckNotFound)
		return
	}

	q := r.URL.Query()
	currentLevel, err := strconv.ParseFloat(q.Get("current_level"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidParameter)
		return
	}
	dailyMiles, err := parseOptionalFloat(q.Get("daily_miles"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidParameter)
		return
	}
	avgMPG, err := parseOptionalFloat(q.Get("avg_mpg"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidParameter)
		return
	}

	pred := risk.PredictDEF(risk.DEFInputs{
		CurrentLevelPct:    currentLevel,
		TankCapacityLiters: cfg.CapacityLiters,
		DailyMiles:         dailyMiles,
		AvgMPG:             avgMPG,
	})
	level, recommendation := risk.AlertLevel(pred)

	writeOK(w, map[string]interface{}{
		"prediction":     pred,
		"alert_level":    level,
		"recommendation": recommendation,
	})
}

func (h *handler) detect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	truckID := q.Get("truck_id")
	sensorName := q.Get("sensor_name")
	if truckID == "" || sensorName == "" {
		writeError(w, http.StatusBadRequest, ErrInvalidParameter)
		return
	}
	currentValue, err := strconv.ParseFloat(q.Get("current_value"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidParameter)
		return
	}
	baselineValue, err := parseOptionalFloat(q.Get("baseline_value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidParameter)
		return
	}

	result := commandcenter.Detect(h.deps.Engine, commandcenter.DetectRequest{
		TruckID: truckID, SensorName: sensorName, CurrentValue: currentValue,
		BaselineValue: baselineValue, Component: q.Get("component"),
	})
	writeOK(w, result)
}

func (h *handler) spn(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["spn"]
	spn, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidParameter)
		return
	}
	info, ok := risk.LookupSPN(spn)
	if !ok {
		writeError(w, http.StatusNotFound, ErrUnknownSPN)
		return
	}
	writeOK(w, info)
}

func (h *handler) configSummary(w http.ResponseWriter, r *http.Request) {
	cfg := h.deps.Config
	writeOK(w, map[string]interface{}{
		"env":                      cfg.Env,
		"http_port":                cfg.HTTPPort,
		"telemetry_poll_interval":  cfg.TelemetryPollInterval.String(),
		"state_flush_interval":     cfg.StateFlushInterval.String(),
		"trend_snapshot_interval":  cfg.TrendSnapshotInterval.String(),
		"max_snapshot_age_seconds": cfg.MaxSnapshotAgeSeconds,
		"metrics_enabled":          cfg.MetricsEnabled,
		"redis_enabled":            cfg.RedisEnabled,
	})
}
