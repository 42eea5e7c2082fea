package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "extctl",
			Subsystem: "protocol",
			Name:      "commands_total",
			Help:      "Total External Control commands executed.",
		},
		[]string{"command", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "extctl",
			Subsystem: "protocol",
			Name:      "command_duration_seconds",
			Help:      "Command round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	handshakesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "extctl",
			Subsystem: "protocol",
			Name:      "handshakes_total",
			Help:      "Handshake attempts by outcome.",
		},
		[]string{"outcome"},
	)
	connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "extctl",
			Subsystem: "transport",
			Name:      "connections_total",
			Help:      "Connection attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsTotal, commandDuration, handshakesTotal, connectionsTotal)
	})
}

func RecordCommand(command string, duration time.Duration, success bool) {
	RegisterMetrics()
	commandsTotal.WithLabelValues(command, outcome(success)).Inc()
	commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func RecordHandshake(success bool) {
	RegisterMetrics()
	handshakesTotal.WithLabelValues(outcome(success)).Inc()
}

func RecordConnection(success bool) {
	RegisterMetrics()
	connectionsTotal.WithLabelValues(outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
