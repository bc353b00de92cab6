// Package monitoring exports Prometheus metrics and runs the background
// data-health checker.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/housing-research/internal/model"
)

const namespace = "housing_research"

// Metrics holds the Prometheus collectors for resolutions, HTTP traffic and
// the dataset health gauges.
type Metrics struct {
	Resolutions          *prometheus.CounterVec // labels: status, zip_type
	ResolveDuration      prometheus.Histogram
	StoreFailures        *prometheus.CounterVec // labels: step
	NationalCacheLookups *prometheus.CounterVec // labels: result={hit,miss}

	HTTPRequests *prometheus.CounterVec   // labels: route, code
	HTTPDuration *prometheus.HistogramVec // labels: route

	// Dataset health, refreshed by the Checker.
	DatasetRows       prometheus.Gauge
	FieldCompleteness *prometheus.GaugeVec // labels: field
	MetroPendingSync  prometheus.Gauge
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      help("ZIP resolutions by terminal status and ZIP type."),
		}, []string{"status", "zip_type"}),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      help("Duration of a successful ZIP resolution."),
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		StoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      help("Resolutions aborted by a store failure, by step."),
		}, []string{"step"}),
		NationalCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "national_cache_total",
			Help:      help("National-average cache lookups by result."),
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      help("HTTP requests by route pattern and status code."),
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      help("HTTP request duration by route pattern."),
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route"}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      help("Rows in housing_stats at the last health check."),
		}),
		FieldCompleteness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "field_completeness_percent",
			Help:      help("Percent of housing_stats rows with the field populated."),
		}, []string{"field"}),
		MetroPendingSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "metro_pending_sync",
			Help:      help("Rows whose metro_area the metro backfill would still fill."),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Resolutions,
		m.ResolveDuration,
		m.StoreFailures,
		m.NationalCacheLookups,
		m.HTTPRequests,
		m.HTTPDuration,
		m.DatasetRows,
		m.FieldCompleteness,
		m.MetroPendingSync,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

// Register adds the metrics to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Resolution records a finished resolution.
func (m *Metrics) Resolution(status model.ResolutionStatus, zipType model.ZipType, elapsed time.Duration) {
	label := string(zipType)
	if label == "" {
		label = "none"
	}
	m.Resolutions.WithLabelValues(string(status), label).Inc()
	m.ResolveDuration.Observe(elapsed.Seconds())
}

// StoreFailure records a resolution aborted at step.
func (m *Metrics) StoreFailure(step string) {
	m.StoreFailures.WithLabelValues(step).Inc()
}

// NationalCache records a national-average cache lookup.
func (m *Metrics) NationalCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.NationalCacheLookups.WithLabelValues(result).Inc()
}

// HTTPRequest records a served request. route is the chi route pattern,
// never the raw path.
func (m *Metrics) HTTPRequest(route string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveSnapshot publishes a health snapshot as gauges.
func (m *Metrics) ObserveSnapshot(s *Snapshot) {
	m.DatasetRows.Set(float64(s.Quality.TotalRecords))
	for _, f := range s.Quality.Fields {
		m.FieldCompleteness.WithLabelValues(f.Field).Set(f.CompletenessPct)
	}
	m.MetroPendingSync.Set(float64(s.Metro.PendingSync))
}
