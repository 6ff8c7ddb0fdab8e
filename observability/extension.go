package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/runlock/ext"
	"github.com/xraph/runlock/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobCompleted = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
	_ ext.JobRetrying  = (*MetricsExtension)(nil)
	_ ext.JobSkipped   = (*MetricsExtension)(nil)
	_ ext.JobDLQ       = (*MetricsExtension)(nil)
)

// MetricsExtension records per-job lifecycle metrics to a Prometheus
// registry. Register it as a runlock extension to automatically track
// completion, failure, retry, skip, and dead-letter rates alongside a
// duration histogram and a consecutive-failure gauge.
type MetricsExtension struct {
	completed    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	retried      *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	consecutive  *prometheus.GaugeVec
}

// NewMetricsExtension creates a MetricsExtension registered against the
// default Prometheus registerer.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsExtensionWithRegisterer creates a MetricsExtension with the
// provided registerer. Tests pass a fresh prometheus.NewRegistry().
func NewMetricsExtensionWithRegisterer(reg prometheus.Registerer) *MetricsExtension {
	m := &MetricsExtension{
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlock_jobs_completed_total",
			Help: "Total number of job executions that succeeded",
		}, []string{"job_id"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlock_jobs_failed_total",
			Help: "Total number of job executions that exhausted all attempts",
		}, []string{"job_id"}),
		retried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlock_jobs_retried_total",
			Help: "Total number of retry attempts scheduled",
		}, []string{"job_id"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlock_jobs_skipped_total",
			Help: "Total number of runs skipped (disabled, no handler, or locked)",
		}, []string{"job_id", "reason"}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlock_jobs_dead_lettered_total",
			Help: "Total number of executions recorded in the dead letter queue",
		}, []string{"job_id"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "runlock_job_duration_seconds",
			Help:    "Job execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_id"}),
		consecutive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "runlock_job_consecutive_failures",
			Help: "Current consecutive-failure streak per job",
		}, []string{"job_id"}),
	}

	reg.MustRegister(
		m.completed,
		m.failed,
		m.retried,
		m.skipped,
		m.deadLettered,
		m.duration,
		m.consecutive,
	)
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(_ context.Context, jc *job.Context, res *job.Result) error {
	m.completed.WithLabelValues(jc.JobID).Inc()
	m.duration.WithLabelValues(jc.JobID).Observe(res.Duration.Seconds())
	m.consecutive.WithLabelValues(jc.JobID).Set(0)
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(_ context.Context, jc *job.Context, res *job.Result) error {
	m.failed.WithLabelValues(jc.JobID).Inc()
	if res != nil {
		m.duration.WithLabelValues(jc.JobID).Observe(res.Duration.Seconds())
	}
	m.consecutive.WithLabelValues(jc.JobID).Inc()
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(_ context.Context, jc *job.Context, _ *job.Result, _ time.Duration) error {
	m.retried.WithLabelValues(jc.JobID).Inc()
	return nil
}

// OnJobSkipped implements ext.JobSkipped.
func (m *MetricsExtension) OnJobSkipped(_ context.Context, jobID, reason string) error {
	m.skipped.WithLabelValues(jobID, reason).Inc()
	return nil
}

// OnJobDLQ implements ext.JobDLQ.
func (m *MetricsExtension) OnJobDLQ(_ context.Context, jc *job.Context, _ *job.Result) error {
	m.deadLettered.WithLabelValues(jc.JobID).Inc()
	return nil
}
