package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of facts published on the event bus",
		},
		[]string{"topic"},
	)
	eventsHandledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_handled_total",
			Help: "Total number of handler invocations by topic, dispatch mode and outcome",
		},
		[]string{"topic", "mode", "status"},
	)
	eventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Asynchronous deliveries dropped because the dispatch queue was full",
		},
		[]string{"topic"},
	)
	httpErrorResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_error_responses_total",
			Help: "Error responses written by the HTTP error responder",
		},
		[]string{"status"},
	)
	botRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_registrations_total",
			Help: "Bot registration attempts at startup by outcome",
		},
		[]string{"status"},
	)
)

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	command = orUnknown(command)
	status = orUnknown(status)

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

func RecordEventPublished(topic string) {
	eventsPublishedTotal.WithLabelValues(orUnknown(topic)).Inc()
}

func RecordEventHandled(topic, mode, status string) {
	eventsHandledTotal.WithLabelValues(orUnknown(topic), orUnknown(mode), orUnknown(status)).Inc()
}

func RecordEventDropped(topic string) {
	eventsDroppedTotal.WithLabelValues(orUnknown(topic)).Inc()
}

// RecordHTTPError counts responses produced by the error boundary.
func RecordHTTPError(status int) {
	httpErrorResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func RecordBotRegistration(status string) {
	botRegistrationsTotal.WithLabelValues(orUnknown(status)).Inc()
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
