package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wardrobe",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wardrobe",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wardrobe",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wardrobe",
			Subsystem: "assets",
			Name:      "uploads_total",
			Help:      "Total number of garment uploads by outcome.",
		},
		[]string{"category", "status"},
	)

	uploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wardrobe",
			Subsystem: "assets",
			Name:      "upload_duration_seconds",
			Help:      "Duration of background removal plus image write.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
		[]string{"status"},
	)

	syncMerged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wardrobe",
			Subsystem: "sync",
			Name:      "merged_total",
			Help:      "Entries submitted through sync by kind and result.",
		},
		[]string{"kind", "result"},
	)

	storeMode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wardrobe",
			Subsystem: "store",
			Name:      "mode",
			Help:      "Active user store backend (1 for the selected mode).",
		},
		[]string{"mode"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		uploads,
		uploadDuration,
		syncMerged,
		storeMode,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Mounted with chi's Use, it labels requests by route pattern rather than raw
// path so user IDs do not blow up cardinality.
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

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordUpload records the outcome of one garment upload.
func RecordUpload(category string, duration time.Duration, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	uploads.WithLabelValues(category, status).Inc()
	uploadDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordSync records how many submitted entries were inserted or dropped.
func RecordSync(kind string, inserted, duplicates, skipped int) {
	syncMerged.WithLabelValues(kind, "inserted").Add(float64(inserted))
	syncMerged.WithLabelValues(kind, "duplicate").Add(float64(duplicates))
	syncMerged.WithLabelValues(kind, "skipped").Add(float64(skipped))
}

// SetStoreMode marks mode as the active store backend.
func SetStoreMode(mode string) {
	storeMode.Reset()
	storeMode.WithLabelValues(mode).Set(1)
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
	return r.ResponseWriter.Write(b)
}
