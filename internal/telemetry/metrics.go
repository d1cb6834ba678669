/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConfigWritesTotal counts configuration generation passes per
	// station prefix and outcome.
	ConfigWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_config_writes_total",
		Help: "Configuration generation passes by station prefix and status.",
	}, []string{"prefix", "status"})

	// ConfigWriteDuration observes how long one generation pass takes.
	ConfigWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skald_config_write_duration_seconds",
		Help:    "Duration of configuration generation passes.",
		Buckets: prometheus.DefBuckets,
	})

	// ControlCommandsTotal counts engine control commands by verb and
	// outcome.
	ControlCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_control_commands_total",
		Help: "Engine control commands by verb and status.",
	}, []string{"command", "status"})

	// CalloutRequestsTotal counts the internal API callouts generated
	// scripts make back into skald.
	CalloutRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_callout_requests_total",
		Help: "Internal API callouts from running engines by endpoint.",
	}, []string{"endpoint"})

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_api_requests_total",
		Help: "HTTP API requests by method, endpoint and status code.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_api_request_duration_seconds",
		Help:    "HTTP API request duration by method, endpoint and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})

	// EventsPublishedTotal counts events published to the bus.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_events_published_total",
		Help: "Events published to the event bus by type.",
	}, []string{"type"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
