package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveClients  prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec
	WSWriteErrors  prometheus.Counter
	AgentCalls     *prometheus.CounterVec
	AgentLatency   *prometheus.HistogramVec
	Turns          *prometheus.CounterVec
	UploadRejected *prometheus.CounterVec

	window *callWindow
}

// NewMetrics registers instruments on the default registry. namespace must be
// unique per process.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_clients",
			Help:      "Number of browser clients holding chat state.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Client and agent session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		WSWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_write_errors_total",
			Help:      "Failed WebSocket writes.",
		}),
		AgentCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_calls_total",
			Help:      "Agent host calls by operation and result class.",
		}, []string{"op", "class"}),
		AgentLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_call_latency_ms",
			Help:      "Agent host call latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
		}, []string{"op"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns by outcome.",
		}, []string{"outcome"}),
		UploadRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_rejected_total",
			Help:      "Rejected image uploads by reason.",
		}, []string{"reason"}),
		window: newCallWindow(256),
	}
}

// ObserveAgentCall records one agent host call.
func (m *Metrics) ObserveAgentCall(op, class string, d time.Duration) {
	m.AgentCalls.WithLabelValues(op, class).Inc()
	m.AgentLatency.WithLabelValues(op).Observe(millis(d))
	m.window.record(op, class, d)
}

// ObserveTurn counts a finished or rejected turn.
func (m *Metrics) ObserveTurn(outcome string) {
	m.Turns.WithLabelValues(outcome).Inc()
	m.window.recordTurn(outcome)
}

// SetLatencyTarget sets the p95 objective reported for op. Zero clears it.
func (m *Metrics) SetLatencyTarget(op string, p95 time.Duration) {
	m.window.setTarget(op, p95)
}

// SnapshotLatency returns per-operation latency and failure counts.
func (m *Metrics) SnapshotLatency() LatencySnapshot {
	return m.window.snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
