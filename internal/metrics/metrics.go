package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Metrics holds the process-wide run collectors. All methods are safe for
// concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	CandidatesScored  *prometheus.CounterVec
	CandidatesFailing *prometheus.CounterVec
	AdvisorFits       *prometheus.CounterVec
	AdvisorCVError    *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdant_runs_total",
				Help: "Total number of evaluation runs",
			},
			[]string{"profile", "outcome"},
		),

		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verdant_run_duration_seconds",
				Help:    "Evaluation run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"profile"},
		),

		CandidatesScored: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdant_candidates_scored_total",
				Help: "Total number of candidates scored",
			},
			[]string{"profile"},
		),

		CandidatesFailing: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdant_candidates_failing_total",
				Help: "Total number of candidates classified as failing",
			},
			[]string{"profile"},
		),

		AdvisorFits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdant_advisor_fits_total",
				Help: "Total number of advisor model selections",
			},
			[]string{"profile", "outcome"},
		),

		AdvisorCVError: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "verdant_advisor_cv_error",
				Help: "Cross-validated error of the last selected advisor model",
			},
			[]string{"profile"},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordRun records a finished evaluation run.
func (m *Metrics) RecordRun(profile, outcome string, d time.Duration, scored, failing int) {
	m.RunsTotal.WithLabelValues(profile, outcome).Inc()
	m.RunDuration.WithLabelValues(profile).Observe(d.Seconds())
	if outcome == OutcomeCompleted {
		m.CandidatesScored.WithLabelValues(profile).Add(float64(scored))
		m.CandidatesFailing.WithLabelValues(profile).Add(float64(failing))
	}
}

// RecordAdvisorFit records one advisor model selection.
func (m *Metrics) RecordAdvisorFit(profile, outcome string, cvError float64) {
	m.AdvisorFits.WithLabelValues(profile, outcome).Inc()
	if outcome == OutcomeCompleted {
		m.AdvisorCVError.WithLabelValues(profile).Set(cvError)
	}
}
