// Package observability provides structured logging and Prometheus metrics
// for the submission pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a run.
type Metrics struct {
	RowsDecoded  prometheus.Counter
	DecodeErrors prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeDuration prometheus.Histogram

	// Submission metrics.
	Submissions *prometheus.CounterVec // labels: mode={import,update,patch,review}, outcome={imported,updated,duplicate,skipped,error}

	RunDuration  prometheus.Histogram
	RowsInFlight prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsDecoded,
		m.DecodeErrors,
		m.GeocodeRequests,
		m.GeocodeDuration,
		m.Submissions,
		m.RunDuration,
		m.RowsInFlight,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "placesync",
			Name:      "rows_decoded_total",
			Help:      "Total input rows read, whether or not they decoded cleanly.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "placesync",
			Name:      "decode_errors_total",
			Help:      "Total rows that failed decoding.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placesync",
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by outcome.",
		}, []string{"outcome"}),
		GeocodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "placesync",
			Name:      "geocode_request_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placesync",
			Name:      "submissions_total",
			Help:      "Row submissions by run mode and outcome.",
		}, []string{"mode", "outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "placesync",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete batch run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		}),
		RowsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "placesync",
			Name:      "rows_in_flight",
			Help:      "Rows currently between decoding and report append.",
		}),
	}
}
