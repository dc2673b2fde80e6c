// Package metrics exposes batch run progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/glossator/internal/orchestrator"
)

var statuses = []orchestrator.ChapterStatus{
	orchestrator.StatusPending,
	orchestrator.StatusInProgress,
	orchestrator.StatusGlossaryReview,
	orchestrator.StatusTranslating,
	orchestrator.StatusCompleted,
	orchestrator.StatusFailed,
}

var phases = []orchestrator.Phase{
	orchestrator.PhaseIdle,
	orchestrator.PhaseGlossary,
	orchestrator.PhaseTranslation,
	orchestrator.PhaseDone,
}

// Source is the part of an orchestrator a Recorder listens to.
type Source interface {
	OnStateUpdate(fn func(orchestrator.State)) (off func())
	OnDone(fn func(orchestrator.State)) (off func())
}

// Recorder owns its registry so several recorders can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry
	progress prometheus.Gauge
	phase    *prometheus.GaugeVec
	chapters *prometheus.GaugeVec
	runs     prometheus.Counter
	terms    prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "glossator",
			Subsystem: "batch",
			Name:      "progress_ratio",
			Help:      "Fraction of the current phase's chapters that are finished.",
		}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "glossator",
			Subsystem: "batch",
			Name:      "phase",
			Help:      "1 for the phase the batch run is in, 0 otherwise.",
		}, []string{"phase"}),
		chapters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "glossator",
			Subsystem: "batch",
			Name:      "chapters",
			Help:      "Chapters of the current batch run by status.",
		}, []string{"status"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glossator",
			Subsystem: "batch",
			Name:      "runs_completed_total",
			Help:      "Batch runs that reached the done phase.",
		}),
		terms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glossator",
			Subsystem: "glossary",
			Name:      "terms_accepted_total",
			Help:      "Glossary terms accepted through review.",
		}),
	}
	r.registry.MustRegister(r.progress, r.phase, r.chapters, r.runs, r.terms)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Observe sets every gauge from a state snapshot.
func (r *Recorder) Observe(s orchestrator.State) {
	r.progress.Set(s.Progress)
	for _, p := range phases {
		v := 0.0
		if p == s.Phase {
			v = 1
		}
		r.phase.WithLabelValues(string(p)).Set(v)
	}
	for _, st := range statuses {
		r.chapters.WithLabelValues(st.String()).Set(float64(s.Count(st)))
	}
}

// TermsAccepted counts glossary terms added by review.
func (r *Recorder) TermsAccepted(n int) {
	r.terms.Add(float64(n))
}

// Attach feeds the recorder from src until detach is called or the run ends.
func (r *Recorder) Attach(src Source) (detach func()) {
	offState := src.OnStateUpdate(r.Observe)
	offDone := src.OnDone(func(s orchestrator.State) {
		r.Observe(s)
		r.runs.Inc()
	})
	return func() {
		offState()
		offDone()
	}
}
