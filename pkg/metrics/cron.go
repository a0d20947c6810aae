package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronMetrics tracks scheduled job runs in the cron worker.
type CronMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	affected *prometheus.CounterVec
}

// NewCronMetrics registers cron_job_runs_total, cron_job_duration_seconds and
// cron_job_rows_affected_total on reg.
func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	m := &CronMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of a cron job run.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		affected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_rows_affected_total",
			Help: "Rows changed by cron jobs, e.g. invoices marked overdue.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.affected)
	return m
}

// ObserveRun records one run. A non-nil err counts as a failure and its
// affected rows are ignored.
func (m *CronMetrics) ObserveRun(job string, took time.Duration, affected int64, err error) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	m.runs.WithLabelValues(job, "success").Inc()
	if affected > 0 {
		m.affected.WithLabelValues(job).Add(float64(affected))
	}
}

// normalizeLabel keeps empty label values out of the series set.
func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
