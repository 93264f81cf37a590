// Package metrics registers the Prometheus counters the rest of the
// application increments:
//
//	cryptobridge_polling_errors_total
//	cryptobridge_ticks_dropped_total
//	cryptobridge_stream_reconnects_total
//	cryptobridge_listenkey_renewal_failures_total
//
// plus the go_* and process_* collectors. They are exposed through the
// Prometheus HTTP handler the dashboard mounts. Increment helpers are safe
// to call before Init; they just do nothing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	once            sync.Once
	pollingErrors   *prometheus.CounterVec
	ticksDropped    *prometheus.CounterVec
	reconnects      *prometheus.CounterVec
	renewalFailures *prometheus.CounterVec
)

func Init() {
	once.Do(func() {
		pollingErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobridge_polling_errors_total",
				Help: "Number of polling errors absorbed by the facade",
			},
			[]string{"exchange", "operation", "kind"},
		)

		ticksDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobridge_ticks_dropped_total",
				Help: "Number of book ticker events dropped because a price callback was still running",
			},
			[]string{"exchange", "symbol"},
		)

		reconnects = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobridge_stream_reconnects_total",
				Help: "Number of streaming session reconnect attempts",
			},
			[]string{"exchange", "symbol"},
		)

		renewalFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobridge_listenkey_renewal_failures_total",
				Help: "Number of failed listen key keepalive calls",
			},
			[]string{"exchange"},
		)

		_ = prometheus.Register(pollingErrors)
		_ = prometheus.Register(ticksDropped)
		_ = prometheus.Register(reconnects)
		_ = prometheus.Register(renewalFailures)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// IncrementPollingError counts one swallowed polling failure.
func IncrementPollingError(exchange, operation, kind string) {
	if pollingErrors != nil {
		pollingErrors.WithLabelValues(exchange, operation, kind).Inc()
	}
}

// IncrementTickDropped counts one discarded book ticker event.
func IncrementTickDropped(exchange, symbol string) {
	if ticksDropped != nil {
		ticksDropped.WithLabelValues(exchange, symbol).Inc()
	}
}

// IncrementReconnect counts one streaming reconnect attempt.
func IncrementReconnect(exchange, symbol string) {
	if reconnects != nil {
		reconnects.WithLabelValues(exchange, symbol).Inc()
	}
}

// IncrementRenewalFailure counts one failed listen key keepalive.
func IncrementRenewalFailure(exchange string) {
	if renewalFailures != nil {
		renewalFailures.WithLabelValues(exchange).Inc()
	}
}
