package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleet_analytics"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
		[]string{"method", "path"},
	)

	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loops",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one periodic worker cycle (telemetry, state flush, trend snapshot).",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"loop", "status"},
	)

	trucksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "trucks_processed_total",
			Help:      "Total number of truck snapshots processed per ingestion cycle.",
		},
		[]string{"outcome"},
	)

	adapterFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commandcenter",
			Name:      "adapter_failures_total",
			Help:      "Total number of action-source adapter failures, isolated per adapter.",
		},
		[]string{"adapter"},
	)

	fleetHealthScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "commandcenter",
			Name:      "fleet_health_score",
			Help:      "Most recently computed fleet health score (0-100).",
		},
	)

	cacheHitRatio = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commandcenter",
			Name:      "cache_lookups_total",
			Help:      "Dashboard response cache lookups, split by hit/miss.",
		},
		[]string{"result"},
	)

	anomaliesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensorengine",
			Name:      "anomalies_detected_total",
			Help:      "Total number of anomalies flagged by the trend engine, by detection method.",
		},
		[]string{"method"},
	)

	observationCollectors sync.Map
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		cycleDuration,
		trucksProcessed,
		adapterFailures,
		fleetHealthScore,
		cacheHitRatio,
		anomaliesDetected,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordCycle records the duration and outcome of one periodic worker cycle.
func RecordCycle(loop string, duration time.Duration, err error) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	cycleDuration.WithLabelValues(loop, status).Observe(duration.Seconds())
}

// RecordTruckProcessed increments the per-cycle truck outcome counter.
func RecordTruckProcessed(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	trucksProcessed.WithLabelValues(outcome).Inc()
}

// RecordAdapterFailure increments the isolated-adapter-failure counter.
func RecordAdapterFailure(adapter string) {
	if adapter == "" {
		adapter = "unknown"
	}
	adapterFailures.WithLabelValues(adapter).Inc()
}

// SetFleetHealthScore updates the most recently computed fleet health score.
func SetFleetHealthScore(score float64) {
	fleetHealthScore.Set(score)
}

// RecordCacheLookup records a dashboard cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheHitRatio.WithLabelValues(result).Inc()
}

// RecordAnomaly increments the anomaly counter for the given detection
// method (EWMA, CUSUM, THRESHOLD, CORRELATION).
func RecordAnomaly(method string) {
	if method == "" {
		method = "unknown"
	}
	anomaliesDetected.WithLabelValues(method).Inc()
}

type observationCollector struct {
	gauge *prometheus.GaugeVec
	hist  *prometheus.HistogramVec
}

// ObservationHooks creates core observation hooks backed by Prometheus metrics.
func ObservationHooks(ns, subsystem, name string) core.ObservationHooks {
	key := ns + ":" + subsystem + ":" + name
	var collector observationCollector
	if entry, ok := observationCollectors.Load(key); ok {
		collector = entry.(observationCollector)
	} else {
		collector = createObservationCollector(ns, subsystem, name)
		observationCollectors.Store(key, collector)
	}
	return core.ObservationHooks{
		OnStart: func(ctx context.Context, meta map[string]string) {
			label := metaLabel(meta)
			collector.gauge.WithLabelValues(label).Inc()
		},
		OnComplete: func(ctx context.Context, meta map[string]string, err error, duration time.Duration) {
			label := metaLabel(meta)
			collector.gauge.WithLabelValues(label).Dec()
			status := "success"
			if err != nil {
				status = "error"
			}
			collector.hist.WithLabelValues(label, status).Observe(duration.Seconds())
		},
	}
}

func createObservationCollector(ns, subsystem, name string) observationCollector {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      name + "_in_flight",
			Help:      "Current operations in flight for " + subsystem,
		},
		[]string{"resource"},
	)
	hist := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      name + "_duration_seconds",
			Help:      "Duration of operations for " + subsystem,
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"resource", "status"},
	)
	Registry.MustRegister(gauge, hist)
	return observationCollector{gauge: gauge, hist: hist}
}

func metaLabel(meta map[string]string) string {
	if meta == nil {
		return "unknown"
	}
	if id, ok := meta["truck_id"]; ok && id != "" {
		return id
	}
	if id, ok := meta["sensor"]; ok && id != "" {
		return id
	}
	if id, ok := meta["adapter"]; ok && id != "" {
		return id
	}
	return "unknown"
}

// TelemetryIngestHooks captures per-cycle telemetry read attempts.
func TelemetryIngestHooks() core.ObservationHooks {
	return ObservationHooks(namespace, "ingest", "poll")
}

// EstimatorHooks captures per-truck fuel estimation attempts.
func EstimatorHooks() core.ObservationHooks {
	return ObservationHooks(namespace, "estimator", "update")
}

// SensorEngineHooks captures per-sensor trend evaluation attempts.
func SensorEngineHooks() core.ObservationHooks {
	return ObservationHooks(namespace, "sensorengine", "evaluate")
}

// CommandCenterDispatchHooks wraps ObservationHooks for action-source adapter
// dispatch instrumentation.
func CommandCenterDispatchHooks() core.ObservationHooks {
	return ObservationHooks(namespace, "commandcenter", "dispatch")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses path parameters (truck ids, SPN numbers) so the
// HTTP metrics cardinality stays bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		switch parts[0] {
		case "truck":
			if i == 1 {
				parts[i] = ":id"
			}
		case "spn":
			if i == 1 {
				parts[i] = ":spn"
			}
		case "def-prediction":
			if i == 1 {
				parts[i] = ":id"
			}
		}
		_ = p
	}
	return "/" + strings.Join(parts, "/")
}
