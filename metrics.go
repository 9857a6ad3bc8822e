package seam

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Commits        prometheus.Counter
	CommitParams   prometheus.Histogram
	SkippedCommits prometheus.Counter
	Transitions    *prometheus.CounterVec
	Fallbacks      *prometheus.CounterVec
	Results        prometheus.Counter
	Commands       *prometheus.CounterVec
	LaunchLatency  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commits: f.NewCounter(prometheus.CounterOpts{
			Name: "seam_surface_commits_total",
			Help: "Surface transactions handed to the compositor",
		}),
		CommitParams: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "seam_surface_commit_params",
			Help:    "Surface records per committed transaction",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
		}),
		SkippedCommits: f.NewCounter(prometheus.CounterOpts{
			Name: "seam_surface_commits_skipped_total",
			Help: "Frames dropped because their surfaces were released",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seam_transitions_total",
			Help: "Remote transitions started, by kind",
		}, []string{"kind"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seam_transition_fallbacks_total",
			Help: "Transitions that used the fallback animation, by reason",
		}, []string{"reason"}),
		Results: f.NewCounter(prometheus.CounterOpts{
			Name: "seam_transition_results_total",
			Help: "Completion callbacks delivered to the window manager",
		}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seam_overview_commands_total",
			Help: "Overview commands, by resolution",
		}, []string{"resolution"}),
		LaunchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "seam_overview_launch_latency_seconds",
			Help:    "Time from overview command to activity ready",
			Buckets: []float64{.01, .025, .05, .1, .15, .2, .3, .5, 1},
		}),
	}
}

func (m *Metrics) commit(params int) {
	if m == nil {
		return
	}
	m.Commits.Inc()
	m.CommitParams.Observe(float64(params))
}

func (m *Metrics) skippedCommit() {
	if m == nil {
		return
	}
	m.SkippedCommits.Inc()
}

func (m *Metrics) transition(kind TransitionKind) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) fallback(reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) result() {
	if m == nil {
		return
	}
	m.Results.Inc()
}

func (m *Metrics) command(r Resolution) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(r.String()).Inc()
}

func (m *Metrics) launchLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.LaunchLatency.Observe(d.Seconds())
}
