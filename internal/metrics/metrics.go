// Package metrics holds the domain Prometheus collectors: render cache traffic, invalidations,
// annotation paint failures and export latency. HTTP metrics live in the middleware package.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

type Metrics struct {
	RenderCacheRequests *prometheus.CounterVec
	Invalidations       prometheus.Counter
	AnnotationFailures  *prometheus.CounterVec
	ExportDuration      prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RenderCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfedit_render_cache_requests_total",
				Help: "Page render requests by cache result.",
			},
			[]string{"result"},
		),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdfedit_render_cache_invalidations_total",
			Help: "Render cache entries removed by page mutations.",
		}),
		AnnotationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfedit_annotation_failures_total",
				Help: "Annotations skipped during export, by annotation type.",
			},
			[]string{"type"},
		),
		ExportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdfedit_export_duration_seconds",
			Help:    "Time spent composing and storing an export.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	for _, c := range []prometheus.Collector{m.RenderCacheRequests, m.Invalidations, m.AnnotationFailures, m.ExportDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewNop returns collectors that are not registered anywhere.
func NewNop() *Metrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}
