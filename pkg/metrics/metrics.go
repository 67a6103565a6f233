// Package metrics exposes Prometheus counters and histograms for runs and
// jobs.
package metrics

import (
	"math"
	"net/http"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matrix_agent"

// Names for our metrics
const (
	RunsTotal          = "runs_total"
	RunsSkippedTotal   = "runs_skipped_total"
	JobsTotal          = "jobs_total"
	JobDurationSeconds = "job_duration_seconds"
	JobsRunning        = "jobs_running"
	QueueDepth         = "queue_depth"
)

// labels
const (
	StatusLabel      = "status"
	EventLabel       = "event"
	WorkflowJobLabel = "workflow_job"
	FailureKindLabel = "failure_kind"
)

type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runsSkipped *prometheus.CounterVec
	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobsRunning prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      RunsTotal,
			Help:      "Count of finished runs by status and triggering event",
		}, []string{StatusLabel, EventLabel}),
		runsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      RunsSkippedTotal,
			Help:      "Count of events that matched no trigger",
		}, []string{EventLabel}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      JobsTotal,
			Help:      "Count of finished jobs by status and failure kind",
		}, []string{WorkflowJobLabel, StatusLabel, FailureKindLabel}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      JobDurationSeconds,
			Help:      "Wall time of finished jobs",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 2400, 3600},
		}, []string{WorkflowJobLabel}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      JobsRunning,
			Help:      "Number of jobs currently executing",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.runsSkipped,
		m.jobs,
		m.jobDuration,
		m.jobsRunning,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// WatchQueue exposes the number of queued runs, as reported by depth on every
// scrape. Failed reads are exposed as NaN.
func (m *Metrics) WatchQueue(depth func() (int64, error)) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      QueueDepth,
		Help:      "Number of runs waiting in the queue",
	}, func() float64 {
		n, err := depth()

		if err != nil {
			return math.NaN()
		}

		return float64(n)
	}))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RunFinished(status types.RunStatus, event types.EventType) {
	m.runs.WithLabelValues(string(status), string(event)).Inc()
}

func (m *Metrics) RunSkipped(event types.EventType) {
	m.runsSkipped.WithLabelValues(string(event)).Inc()
}

func (m *Metrics) JobStarted() {
	m.jobsRunning.Inc()
}

func (m *Metrics) JobFinished(workflowJob string, status types.JobStatus, kind types.FailureKind, seconds float64) {
	m.jobsRunning.Dec()
	m.jobs.WithLabelValues(workflowJob, string(status), string(kind)).Inc()
	m.jobDuration.WithLabelValues(workflowJob).Observe(seconds)
}
