// Package metric holds the Prometheus collectors of the viewer service.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "viewer"

// Metrics contains the session, pipeline and fetch metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActionsReduced   *prometheus.CounterVec
	PipelineRuns     *prometheus.CounterVec
	PipelineErrors   *prometheus.CounterVec
	PipelineDropped  *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	SessionsActive   prometheus.Gauge
	SessionsOpened   prometheus.Counter
	StreamSubscribed prometheus.Gauge
}

// New creates the viewer metrics.
func New() *Metrics {
	return &Metrics{
		ActionsReduced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "actions",
				Name:      "reduced_total",
				Help:      "Actions folded into a session store",
			},
			[]string{"type"},
		),

		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Pipeline activations",
			},
			[]string{"pipeline"},
		),

		PipelineErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "errors_total",
				Help:      "Pipeline activations that failed or panicked",
			},
			[]string{"pipeline"},
		),

		PipelineDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "superseded_total",
				Help:      "Async results discarded because a newer activation replaced them",
			},
			[]string{"pipeline"},
		),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ows",
				Name:      "fetch_duration_seconds",
				Help:      "OGC request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"request", "status"},
		),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Open sessions",
		}),

		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "opened_total",
			Help:      "Sessions opened since start",
		}),

		StreamSubscribed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Connected event stream clients",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.ActionsReduced,
		m.PipelineRuns,
		m.PipelineErrors,
		m.PipelineDropped,
		m.FetchDuration,
		m.SessionsActive,
		m.SessionsOpened,
		m.StreamSubscribed,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry creates a registry holding m plus the Go runtime collectors.
func NewRegistry(m *Metrics) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return nil, err
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, nil
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Reduced(actionType string) {
	if m == nil {
		return
	}
	m.ActionsReduced.WithLabelValues(actionType).Inc()
}

func (m *Metrics) PipelineRun(name string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(name).Inc()
}

func (m *Metrics) PipelineFailed(name string) {
	if m == nil {
		return
	}
	m.PipelineErrors.WithLabelValues(name).Inc()
}

func (m *Metrics) PipelineSuperseded(name string) {
	if m == nil {
		return
	}
	m.PipelineDropped.WithLabelValues(name).Inc()
}

// ObserveFetch records an OGC request. status is "ok" or "error".
func (m *Metrics) ObserveFetch(request, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(request, status).Observe(d.Seconds())
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsOpened.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.StreamSubscribed.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.StreamSubscribed.Dec()
}
