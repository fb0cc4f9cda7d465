package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/pulse/pkg/domain"
)

// Metrics records engine activity as Prometheus collectors.
type Metrics struct {
	Binds         *prometheus.CounterVec
	BindSeconds   *prometheus.HistogramVec
	Renders       *prometheus.CounterVec
	CacheHits     *prometheus.CounterVec
	Samples       *prometheus.CounterVec
	SampleSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Binds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_binds_total",
				Help: "Total number of template binds",
			},
			[]string{"template", "result"},
		),
		BindSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_bind_duration_seconds",
				Help:    "Duration of template binds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"template"},
		),
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_renders_total",
				Help: "Total number of sampled waveforms",
			},
			[]string{"template", "result"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_cache_hits_total",
				Help: "Total number of waveforms served from the cache",
			},
			[]string{"template"},
		),
		Samples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_samples_total",
				Help: "Total number of grid points computed",
			},
			[]string{"template"},
		),
		SampleSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_sample_duration_seconds",
				Help:    "Duration of waveform sampling",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"template"},
		),
	}
	for _, c := range []prometheus.Collector{m.Binds, m.BindSeconds, m.Renders, m.CacheHits, m.Samples, m.SampleSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnBind: func(_ context.Context, e *domain.BindEvent) {
			m.Binds.WithLabelValues(e.TemplateID, result(e.Err)).Inc()
			m.BindSeconds.WithLabelValues(e.TemplateID).Observe(e.Elapsed.Seconds())
		},
		OnSample: func(_ context.Context, e *domain.SampleEvent) {
			if e.Cached {
				m.CacheHits.WithLabelValues(e.TemplateID).Inc()
				return
			}
			m.Renders.WithLabelValues(e.TemplateID, result(e.Err)).Inc()
			if e.Err != nil {
				return
			}
			m.Samples.WithLabelValues(e.TemplateID).Add(float64(e.Samples))
			m.SampleSeconds.WithLabelValues(e.TemplateID).Observe(e.Elapsed.Seconds())
		},
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
