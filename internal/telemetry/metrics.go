// Package telemetry exposes Prometheus metrics for the pollers and notifiers.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle and delivery outcomes.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultSkipped  = "skipped"
	ResultDisabled = "disabled"
)

var (
	PollerCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_bot_poller_cycles_total",
		Help: "Number of poller cycles by outcome",
	}, []string{"poller", "result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_bot_notifications_total",
		Help: "Number of notification attempts by outcome",
	}, []string{"poller", "result"})

	PollerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "calendar_bot_poller_state",
		Help: "Current poller state (0=idle 1=waiting 2=fetching 3=notifying 4=suspended 5=disabled 6=stopped)",
	}, []string{"poller"})

	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calendar_bot_poller_cycle_duration_seconds",
		Help:    "Poller cycle duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"poller"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
