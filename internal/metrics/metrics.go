// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus instrumentation for the ingest
// pipeline, the event bus, the SSE hub, and the Query API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disasterfeed_ingest_runs_total",
			Help: "Total number of adapter runs, by source and outcome.",
		},
		[]string{"source", "outcome"}, // outcome: ok, error, single_flight_skipped
	)

	IngestEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disasterfeed_ingest_events_emitted_total",
			Help: "Total number of events emitted by an adapter run, before insertion.",
		},
		[]string{"source"},
	)

	IngestEventsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disasterfeed_ingest_events_inserted_total",
			Help: "Total number of events successfully appended to the event log.",
		},
		[]string{"source"},
	)

	IngestCheckpointAdvanced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disasterfeed_ingest_checkpoint_advanced_total",
			Help: "Total number of times a source's checkpoint was advanced after a fully-successful run.",
		},
		[]string{"source"},
	)

	IngestRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disasterfeed_ingest_run_duration_seconds",
			Help:    "Duration of a single adapter run (fetch + parse + insert).",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	BusPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disasterfeed_bus_publish_total",
			Help: "Total number of event-bus publish attempts, by outcome.",
		},
		[]string{"outcome"}, // ok, error
	)

	BusMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "disasterfeed_bus_messages_received_total",
			Help: "Total number of event-bus messages received by this instance's subscriber.",
		},
	)

	SSEConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "disasterfeed_sse_connected_clients",
			Help: "Current number of open SSE connections on this instance.",
		},
	)

	SSEFramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disasterfeed_sse_frames_sent_total",
			Help: "Total number of SSE frames written to clients, by kind.",
		},
		[]string{"kind"}, // catch_up, live, ping
	)

	SSEBroadcastErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "disasterfeed_sse_broadcast_errors_total",
			Help: "Total number of SSE writes that failed and evicted their subscriber.",
		},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disasterfeed_api_requests_total",
			Help: "Total number of HTTP API requests, by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disasterfeed_api_request_duration_seconds",
			Help:    "HTTP API request duration.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "disasterfeed_api_active_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)
)

// RecordAPIRequest records a completed HTTP request's outcome and latency.
func RecordAPIRequest(method, path, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		ActiveRequests.Inc()
		return
	}
	ActiveRequests.Dec()
}

// RecordIngestRun records the outcome and duration of one adapter run.
func RecordIngestRun(source, outcome string, d time.Duration) {
	IngestRunsTotal.WithLabelValues(source, outcome).Inc()
	IngestRunDuration.WithLabelValues(source).Observe(d.Seconds())
}

// StatusClass buckets an HTTP status code into its "2xx"/"4xx"/"5xx" class
// for low-cardinality label use. APIRequestsTotal's status label carries the
// full code, not this class.
func StatusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
