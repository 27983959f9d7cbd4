package livefeed

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Connected         prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	TerminalFailures  prometheus.Counter

	FramesReceived prometheus.Counter
	DecodeErrors   prometheus.Counter

	Dispatched    *prometheus.CounterVec // topic label
	HandlerErrors *prometheus.CounterVec // topic label

	Sent       *prometheus.CounterVec // topic label
	SendErrors *prometheus.CounterVec // topic label
}

// NewMetrics registers the live feed collectors on reg. A nil reg gets a
// private registry so multiple clients can coexist in one process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livefeed_connected",
			Help: "1 if the live feed connection is established, 0 otherwise.",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livefeed_reconnect_attempts_total",
			Help: "Total reconnect attempts scheduled.",
		}),
		TerminalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livefeed_terminal_failures_total",
			Help: "Times the client gave up after the maximum reconnect attempts.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livefeed_frames_received_total",
			Help: "Total inbound frames.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livefeed_decode_errors_total",
			Help: "Inbound frames dropped because they could not be decoded.",
		}),
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livefeed_messages_dispatched_total",
			Help: "Messages dispatched to subscribers.",
		}, []string{"topic"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livefeed_handler_errors_total",
			Help: "Subscriber failures isolated during dispatch.",
		}, []string{"topic"}),
		Sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livefeed_messages_sent_total",
			Help: "Outbound messages written to the connection.",
		}, []string{"topic"}),
		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livefeed_send_errors_total",
			Help: "Outbound messages that could not be written.",
		}, []string{"topic"}),
	}

	reg.MustRegister(
		m.Connected, m.ReconnectAttempts, m.TerminalFailures,
		m.FramesReceived, m.DecodeErrors,
		m.Dispatched, m.HandlerErrors,
		m.Sent, m.SendErrors,
	)

	return m
}

func (m *Metrics) setConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
	} else {
		m.Connected.Set(0)
	}
}
