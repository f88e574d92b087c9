package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for routing outcome metrics
	outcomeLabels = []string{"outcome", "channel"}
	// Labels for send failures
	sendLabels = []string{"kind"}

	// InboundReceivedTotal counts webhook deliveries handed to the dispatcher.
	InboundReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "missed_call_router_inbound_received_total",
			Help: "Total number of inbound messages received on the webhook.",
		},
	)

	// RoutingOutcomesTotal counts finished requests by outcome and channel.
	RoutingOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missed_call_router_routing_outcomes_total",
			Help: "Total number of routing outcomes, labeled by outcome and channel.",
		},
		outcomeLabels,
	)

	// SendFailuresTotal counts failed gateway sends by kind (alert, confirmation).
	SendFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missed_call_router_send_failures_total",
			Help: "Total number of failed outbound sends, labeled by kind.",
		},
		sendLabels,
	)

	// LogWriteFailuresTotal counts failed transaction log appends.
	LogWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "missed_call_router_log_write_failures_total",
			Help: "Total number of failed transaction log writes.",
		},
	)

	// ProcessingDurationSeconds observes end-to-end dispatch durations.
	ProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "missed_call_router_processing_duration_seconds",
			Help:    "Histogram of inbound message processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		outcomeLabels,
	)
)

// InitMetrics enables or disables metric collection.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IncInboundReceived increments the inbound counter.
func IncInboundReceived() {
	if !metricsEnabled {
		return
	}
	InboundReceivedTotal.Inc()
}

// ObserveOutcome records one finished request: outcome counter plus duration.
func ObserveOutcome(outcome, channel string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	RoutingOutcomesTotal.WithLabelValues(outcome, channel).Inc()
	ProcessingDurationSeconds.WithLabelValues(outcome, channel).Observe(duration.Seconds())
}

// IncSendFailure increments the send failure counter for the given kind.
func IncSendFailure(kind string) {
	if !metricsEnabled {
		return
	}
	SendFailuresTotal.WithLabelValues(kind).Inc()
}

// IncLogWriteFailure increments the log write failure counter.
func IncLogWriteFailure() {
	if !metricsEnabled {
		return
	}
	LogWriteFailuresTotal.Inc()
}
