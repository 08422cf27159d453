package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the client core.
type Metrics struct {
	SessionActive     prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	TransportEvents   *prometheus.CounterVec
	DecodeFailures    prometheus.Counter
	TurnsCommitted    *prometheus.CounterVec
	ScheduledAudioSec prometheus.Counter
	FirstAudioLatency prometheus.Histogram
}

// NewMetrics registers the instruments on the default registry, which is
// what /metrics serves.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers on an explicit registry; tests use this to avoid
// duplicate registration across cases.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_active",
			Help:      "Whether a realtime voice session is currently connected.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		TransportEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_events_total",
			Help:      "Transport events received by type.",
		}, []string{"type"}),
		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_decode_failures_total",
			Help:      "Inbound audio chunks dropped because decoding failed.",
		}),
		TurnsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_committed_total",
			Help:      "Finalized transcript turns by speaker.",
		}, []string{"speaker"}),
		ScheduledAudioSec: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_audio_seconds_total",
			Help:      "Total duration of assistant audio scheduled for playback.",
		}),
		FirstAudioLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_audio_latency_ms",
			Help:      "Latency from session start to first assistant audio chunk in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000},
		}),
	}
}

func (m *Metrics) ObserveFirstAudioLatency(d time.Duration) {
	m.FirstAudioLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
