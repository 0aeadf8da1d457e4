package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tide_notifier"

// Metrics holds the Prometheus counters, histograms, and gauges for the notifier.
type Metrics struct {
	Runs              *prometheus.CounterVec // labels: outcome={sent,skipped,error}
	RunsSkipped       *prometheus.CounterVec // labels: reason={no_measurement,no_subscribers}
	NotificationsSent *prometheus.CounterVec // labels: severity={green,yellow,orange,red}
	RunDuration       prometheus.Histogram
	LastSuccess       prometheus.Gauge
	SchedulerRunning  prometheus.Gauge

	// Forecast feed metrics.
	ForecastRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	ForecastCache       *prometheus.CounterVec // labels: result={hit,miss}
	ForecastAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all notifier metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Runs,
		m.RunsSkipped,
		m.NotificationsSent,
		m.RunDuration,
		m.LastSuccess,
		m.SchedulerRunning,
		m.ForecastRequests,
		m.ForecastCache,
		m.ForecastAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Notification runs by outcome.",
		}, []string{"outcome"}),
		RunsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_skipped_total",
			Help:      "Notification runs that sent nothing, by reason.",
		}, []string{"reason"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications handed to the transport, by warning level.",
		}, []string{"severity"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-render-send run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without error.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_requests_total",
			Help:      "Forecast feed requests by outcome.",
		}, []string{"outcome"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		ForecastAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_api_duration_seconds",
			Help:      "Forecast feed request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
