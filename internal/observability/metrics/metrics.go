// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_analysis_client"

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	// Polling metrics
	PollTicks        prometheus.Counter
	PollErrors       *prometheus.CounterVec
	PollersActive    prometheus.Gauge
	PollEmptyLists   prometheus.Counter
	PollStalls       prometheus.Counter
	CampaignDuration prometheus.Histogram

	// Job metrics
	JobsStarted       prometheus.Counter
	JobsCompleted     prometheus.Counter
	JobsFailed        prometheus.Counter
	StatusRegressions prometheus.Counter
	StatusTransitions *prometheus.CounterVec

	// Download metrics
	DownloadsTotal   prometheus.Counter
	DownloadErrors   *prometheus.CounterVec
	DownloadBytes    prometheus.Counter
	DownloadDuration prometheus.Histogram

	// Event publish metrics
	EventPublishTotal   *prometheus.CounterVec
	EventPublishErrors  *prometheus.CounterVec
	EventPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Polling metrics
		PollTicks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Total number of status poll ticks executed",
		}),
		PollErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Total number of poll ticks that failed",
		}, []string{"reason"}),
		PollersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pollers_active",
			Help:      "Number of currently active polling loops",
		}),
		PollEmptyLists: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_empty_lists_total",
			Help:      "Total number of polls that observed an empty job list",
		}),
		PollStalls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_stalls_total",
			Help:      "Total number of polling campaigns that stalled on empty job lists",
		}),
		CampaignDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "campaign_duration_seconds",
			Help:      "Duration of polling campaigns from start to stop in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		// Job metrics
		JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Total number of analysis jobs created via start requests",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of analysis jobs observed completed",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of analysis jobs observed failed",
		}),
		StatusRegressions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_regressions_total",
			Help:      "Total number of polls that reported a terminal job as non-terminal",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Total number of observed job status transitions",
		}, []string{"to"}),

		// Download metrics
		DownloadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Total number of artifact downloads attempted",
		}),
		DownloadErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_errors_total",
			Help:      "Total number of artifact downloads that failed",
		}, []string{"kind"}),
		DownloadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Total artifact bytes written to disk",
		}),
		DownloadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of artifact downloads in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		// Event publish metrics
		EventPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Total number of lifecycle events published",
		}, []string{"topic", "event_type"}),
		EventPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Total number of lifecycle event publish errors",
		}, []string{"topic", "event_type"}),
		EventPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_publish_latency_seconds",
			Help:      "Lifecycle event publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordPollerStart records a polling loop becoming active.
func (m *Metrics) RecordPollerStart() {
	m.PollersActive.Inc()
}

// RecordPollerStop records a polling loop ending.
func (m *Metrics) RecordPollerStop(durationSeconds float64) {
	m.PollersActive.Dec()
	m.CampaignDuration.Observe(durationSeconds)
}

// RecordTick records one poll tick and its outcome.
func (m *Metrics) RecordTick(err error, reason string) {
	m.PollTicks.Inc()
	if err != nil {
		m.PollErrors.WithLabelValues(reason).Inc()
	}
}

// RecordEmptyPoll records a poll that observed an empty job list.
func (m *Metrics) RecordEmptyPoll() {
	m.PollEmptyLists.Inc()
}

// RecordStall records a campaign giving up on a persistently empty list.
func (m *Metrics) RecordStall() {
	m.PollStalls.Inc()
}

// RecordJobsStarted records jobs created by one start request.
func (m *Metrics) RecordJobsStarted(n int) {
	m.JobsStarted.Add(float64(n))
}

// RecordTransition records an observed job status transition.
func (m *Metrics) RecordTransition(to string) {
	m.StatusTransitions.WithLabelValues(to).Inc()
}

// RecordJobTerminal records a job reaching a terminal state.
func (m *Metrics) RecordJobTerminal(failed bool) {
	if failed {
		m.JobsFailed.Inc()
	} else {
		m.JobsCompleted.Inc()
	}
}

// RecordRegression records a terminal job reported non-terminal.
func (m *Metrics) RecordRegression() {
	m.StatusRegressions.Inc()
}

// RecordDownload records one download attempt.
func (m *Metrics) RecordDownload(errKind string, bytes int64, durationSeconds float64) {
	m.DownloadsTotal.Inc()
	m.DownloadDuration.Observe(durationSeconds)
	if errKind != "" {
		m.DownloadErrors.WithLabelValues(errKind).Inc()
		return
	}
	m.DownloadBytes.Add(float64(bytes))
}

// RecordEventPublish records a lifecycle event publish attempt.
func (m *Metrics) RecordEventPublish(topic, eventType string, err error, latencySeconds float64) {
	m.EventPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.EventPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.EventPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
