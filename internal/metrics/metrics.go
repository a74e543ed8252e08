// Package metrics records per-run Prometheus metrics and exports them in the
// node_exporter textfile format, since a batch run has no scrape endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a private registry so exports contain only run metrics.
type Recorder struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastSuccess    prometheus.Gauge
	days           prometheus.Gauge
	windows        prometheus.Gauge
	bestScore      prometheus.Gauge
	providerWins   *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	notifications  *prometheus.CounterVec
}

// NewRecorder registers the run metrics under namespace.
func NewRecorder(namespace string) *Recorder {
	if namespace == "" {
		namespace = "paddlecast"
	}
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Forecast builds by outcome.",
		}, []string{"status"}),
		runDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a forecast build.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		lastSuccess: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last published artifact.",
		}),
		days: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_days",
			Help:      "Days in the last published artifact.",
		}),
		windows: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_windows",
			Help:      "Windows in the last published artifact.",
		}),
		bestScore: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_best_score",
			Help:      "Highest window score in the last published artifact.",
		}),
		providerWins: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_provider_selected_total",
			Help:      "Runs whose weather came from each provider.",
		}, []string{"provider"}),
		providerErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Upstream failures by source.",
		}, []string{"source"}),
		notifications: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Digest deliveries by channel and outcome.",
		}, []string{"channel", "status"}),
	}
}

// Published records a successful build.
func (r *Recorder) Published(at time.Time, elapsed time.Duration, days, windows int, best float64, provider string) {
	r.runs.WithLabelValues("published").Inc()
	r.runDuration.Observe(elapsed.Seconds())
	r.lastSuccess.Set(float64(at.Unix()))
	r.days.Set(float64(days))
	r.windows.Set(float64(windows))
	r.bestScore.Set(best)
	r.providerWins.WithLabelValues(provider).Inc()
}

// Failed records an aborted build.
func (r *Recorder) Failed(elapsed time.Duration) {
	r.runs.WithLabelValues("failed").Inc()
	r.runDuration.Observe(elapsed.Seconds())
}

// SourceError counts one upstream failure.
func (r *Recorder) SourceError(source string) {
	r.providerErrors.WithLabelValues(source).Inc()
}

// Notification counts one digest delivery attempt.
func (r *Recorder) Notification(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	r.notifications.WithLabelValues(channel, status).Inc()
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes the registry to path. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
