// Package metrics declares the Prometheus collectors exported by the relay.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "roomchat"

	commandTypeLabelName = "command_type"
	outcomeLabelName     = "outcome"
)

// Outcome label values for JokeRequests.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// buckets for joke latency, in seconds.
	jokeBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

	RoomsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "number of rooms created since start",
		})

	Sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "number of connected sessions",
		})

	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "inbound commands dispatched, by type",
		}, []string{commandTypeLabelName})

	ProtocolErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "inbound frames rejected as malformed or unknown",
		})

	Broadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "room broadcasts issued",
		})

	DeliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "outbound sends that failed and were dropped",
		})

	JokeRequests = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "joke_request_duration_seconds",
			Help:      "latency of joke service calls",
			Buckets:   jokeBuckets,
		}, []string{outcomeLabelName})

	registerOnce sync.Once
)

// Register registers every collector with r. Only the first call has effect.
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			RoomsCreated,
			Sessions,
			Commands,
			ProtocolErrors,
			Broadcasts,
			DeliveryFailures,
			JokeRequests,
		)
	})
}
