package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConsoleMetrics provides observability for console operations.
//
// This interface is optional - components accept nil and fall back to a
// no-op implementation with zero overhead.
type ConsoleMetrics interface {
	// RecordCommand records a dispatched command with its verb, handling
	// time, and outcome.
	RecordCommand(verb string, duration time.Duration, err error)

	// RecordCommandDropped increments the dropped-command counter.
	// Reason is one of "too_long", "queue_full".
	RecordCommandDropped(reason string)

	// SetActiveConnections updates the current connection gauge.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted-connections counter.
	RecordConnectionAccepted()

	// RecordConnectionRejected increments the rejected-connections counter.
	// Reason is one of "capacity", "allowlist".
	RecordConnectionRejected(reason string)

	// RecordConnectionClosed increments the closed-connections counter.
	RecordConnectionClosed()
}

// consoleMetrics is the Prometheus implementation of ConsoleMetrics.
type consoleMetrics struct {
	commandsTotal       *prometheus.CounterVec
	commandDuration     *prometheus.HistogramVec
	commandsDropped     *prometheus.CounterVec
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsRejected *prometheus.CounterVec
	connectionsClosed   prometheus.Counter
}

// NewConsoleMetrics creates a Prometheus-backed ConsoleMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewConsoleMetrics() ConsoleMetrics {
	if !IsEnabled() {
		return NoopConsoleMetrics{}
	}

	factory := promauto.With(GetRegistry())

	return &consoleMetrics{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remcon",
			Name:      "commands_total",
			Help:      "Total commands dispatched, by verb and status.",
		}, []string{"verb", "status"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remcon",
			Name:      "command_duration_seconds",
			Help:      "Command handling time in seconds, by verb.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"verb"}),
		commandsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remcon",
			Name:      "commands_dropped_total",
			Help:      "Commands discarded before dispatch, by reason.",
		}, []string{"reason"}),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "remcon",
			Name:      "active_connections",
			Help:      "Current number of connected console clients.",
		}),
		connectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "remcon",
			Name:      "connections_accepted_total",
			Help:      "Total accepted console connections.",
		}),
		connectionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remcon",
			Name:      "connections_rejected_total",
			Help:      "Connections rejected before registration, by reason.",
		}, []string{"reason"}),
		connectionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "remcon",
			Name:      "connections_closed_total",
			Help:      "Total closed console connections.",
		}),
	}
}

func (m *consoleMetrics) RecordCommand(verb string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.commandsTotal.WithLabelValues(verb, status).Inc()
	m.commandDuration.WithLabelValues(verb).Observe(duration.Seconds())
}

func (m *consoleMetrics) RecordCommandDropped(reason string) {
	m.commandsDropped.WithLabelValues(reason).Inc()
}

func (m *consoleMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *consoleMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *consoleMetrics) RecordConnectionRejected(reason string) {
	m.connectionsRejected.WithLabelValues(reason).Inc()
}

func (m *consoleMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

// NoopConsoleMetrics is the zero-overhead implementation used when metrics
// are disabled.
type NoopConsoleMetrics struct{}

func (NoopConsoleMetrics) RecordCommand(verb string, duration time.Duration, err error) {}
func (NoopConsoleMetrics) RecordCommandDropped(reason string)                           {}
func (NoopConsoleMetrics) SetActiveConnections(count int32)                             {}
func (NoopConsoleMetrics) RecordConnectionAccepted()                                    {}
func (NoopConsoleMetrics) RecordConnectionRejected(reason string)                       {}
func (NoopConsoleMetrics) RecordConnectionClosed()                                      {}
