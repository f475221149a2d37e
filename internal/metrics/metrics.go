// Package metrics exposes prometheus counters for generation requests and the
// viewer. All methods are safe on a nil *Recorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for generation requests.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeTransport  = "transport"
	OutcomeService    = "service"
	OutcomeMalformed  = "malformed"
	OutcomeStale      = "stale"
)

// Recorder owns a private registry so tests and multiple screens do not collide.
type Recorder struct {
	Registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     prometheus.Histogram
	renders      *prometheus.CounterVec
	libraryLoads *prometheus.CounterVec
	exports      prometheus.Counter
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		Registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crystalgen",
			Name:      "generation_requests_total",
			Help:      "Generation requests by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crystalgen",
			Name:      "generation_request_seconds",
			Help:      "Wall time of generation service calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crystalgen",
			Name:      "viewer_renders_total",
			Help:      "Viewer renders by result.",
		}, []string{"result"}),
		libraryLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crystalgen",
			Name:      "viewer_library_loads_total",
			Help:      "Viewer library acquisitions by result.",
		}, []string{"result"}),
		exports: f.NewCounter(prometheus.CounterOpts{
			Namespace: "crystalgen",
			Name:      "cif_exports_total",
			Help:      "CIF artifacts written.",
		}),
	}
}

func (r *Recorder) Request(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		r.duration.Observe(elapsed.Seconds())
	}
}

func (r *Recorder) Render(err error) {
	if r == nil {
		return
	}
	r.renders.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) LibraryLoad(err error) {
	if r == nil {
		return
	}
	r.libraryLoads.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) Export() {
	if r == nil {
		return
	}
	r.exports.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
