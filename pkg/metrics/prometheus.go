package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "starmanager"

// PrometheusRecorder implements Recorder on top of Prometheus collectors.
type PrometheusRecorder struct {
	githubRequests *prometheus.CounterVec
	githubErrors   *prometheus.CounterVec
	githubDuration *prometheus.HistogramVec

	catalogRefreshes prometheus.Counter
	catalogErrors    prometheus.Counter
	catalogDuration  prometheus.Histogram
	catalogEntries   prometheus.Gauge

	stars *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder and registers its collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		githubRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "github_requests_total",
			Help:      "Total number of GitHub API request attempts.",
		}, []string{"operation"}),
		githubErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "github_errors_total",
			Help:      "Total number of failed GitHub API request attempts.",
		}, []string{"operation"}),
		githubDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "github_duration_seconds",
			Help:      "Duration of GitHub API request attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		catalogRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_total",
			Help:      "Total number of plugin index rebuilds.",
		}),
		catalogErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_errors_total",
			Help:      "Total number of failed plugin index rebuilds.",
		}),
		catalogDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_duration_seconds",
			Help:      "Duration of plugin index rebuilds.",
			Buckets:   prometheus.DefBuckets,
		}),
		catalogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Number of plugins in the current catalog.",
		}),
		stars: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stars_total",
			Help:      "Total number of star operations by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		r.githubRequests,
		r.githubErrors,
		r.githubDuration,
		r.catalogRefreshes,
		r.catalogErrors,
		r.catalogDuration,
		r.catalogEntries,
		r.stars,
	)

	return r
}

// RecordGitHubCall records a single GitHub API attempt.
func (r *PrometheusRecorder) RecordGitHubCall(operation string, err error, duration time.Duration) {
	r.githubRequests.WithLabelValues(operation).Inc()
	r.githubDuration.WithLabelValues(operation).Observe(duration.Seconds())

	if err != nil {
		r.githubErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCatalogRefresh records a plugin index rebuild.
// The entries gauge is only updated on success, since a failed rebuild keeps the previous catalog.
func (r *PrometheusRecorder) RecordCatalogRefresh(err error, duration time.Duration, entries int) {
	r.catalogRefreshes.Inc()
	r.catalogDuration.Observe(duration.Seconds())

	if err != nil {
		r.catalogErrors.Inc()

		return
	}

	r.catalogEntries.Set(float64(entries))
}

// RecordStar records the outcome of a star operation.
func (r *PrometheusRecorder) RecordStar(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}

	r.stars.WithLabelValues(result).Inc()
}
