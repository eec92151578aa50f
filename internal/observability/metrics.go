package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages timed per voice turn.
const (
	StageTranscription = "transcription"
	StageCompletion    = "completion"
	StageSynthesis     = "synthesis"
	StageTurnTotal     = "turn_total"
)

// Metrics groups all Prometheus instruments used by the relay and HTTP layer.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	WSMessages        *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	StageLatency      *prometheus.HistogramVec

	gatherer prometheus.Gatherer
	window   *latencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers on reg; pass prometheus.NewRegistry() in tests.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of open voice relay connections.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Voice turn stage latency in milliseconds.",
			Buckets:   []float64{50, 100, 200, 300, 500, 800, 1200, 2000, 3500, 6000},
		}, []string{"stage"}),
		window: newLatencyWindow(256),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	ms := float64(d.Microseconds()) / 1000
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.window.add(stage, ms)
}

// ObserveOutcome counts a turn outcome in the rolling snapshot, e.g. "abandoned_synthesis".
func (m *Metrics) ObserveOutcome(name string) {
	m.window.mark(name)
}

func (m *Metrics) LatencySnapshot() LatencySnapshot {
	return m.window.snapshot()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
