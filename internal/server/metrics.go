package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	jobsStarted       prometheus.Counter
	jobsFinished      *prometheus.CounterVec
	jobDuration       prometheus.Histogram
	jobsActive        prometheus.Gauge
	generations       prometheus.Counter
	evaluations       prometheus.Counter
	integrityWarnings prometheus.Counter
}

// NewMetrics creates the server collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dever_jobs_started_total",
			Help: "Optimization jobs accepted.",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dever_jobs_finished_total",
			Help: "Optimization jobs that reached a terminal state.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dever_job_duration_seconds",
			Help:    "Wall time spent running an optimization job.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dever_jobs_active",
			Help: "Optimization jobs currently holding a worker slot.",
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dever_generations_total",
			Help: "Differential evolution generations completed across all jobs.",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dever_objective_evaluations_total",
			Help: "Objective function evaluations across all jobs.",
		}),
		integrityWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dever_integrity_warnings_total",
			Help: "Coordinates found outside the search box after clamping.",
		}),
	}
	reg.MustRegister(
		m.jobsStarted,
		m.jobsFinished,
		m.jobDuration,
		m.jobsActive,
		m.generations,
		m.evaluations,
		m.integrityWarnings,
	)
	return m
}
