package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bin Store Metrics
var (
	// BinsCurrent tracks the number of bins currently held in memory
	BinsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecotrack_bins_current",
			Help: "Current number of trash bins in the store",
		},
	)

	// BinMutationsTotal tracks store mutations by kind and result
	BinMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecotrack_bin_mutations_total",
			Help: "Total bin mutations by kind (create/delete/edit/status) and result (applied/not_found/no_match/invalid_status)",
		},
		[]string{"kind", "result"},
	)
)

// Message Processing Metrics
var (
	// MessagesReceivedTotal tracks inbound client messages by type
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecotrack_messages_received_total",
			Help: "Total inbound client messages by type",
		},
		[]string{"type"},
	)

	// MessageDecodeErrorsTotal tracks messages dropped because they could not be decoded
	MessageDecodeErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecotrack_message_decode_errors_total",
			Help: "Total inbound messages dropped due to decode or validation failure",
		},
	)

	// MessageProcessingDuration tracks decode, store and fan-out time per message
	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ecotrack_message_processing_duration_seconds",
			Help:    "Inbound message processing duration in seconds",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .025, .05},
		},
	)
)

// Hub Metrics
var (
	// HubConnectedClients tracks the number of registered observers
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Number of connections registered with the broadcast hub",
		},
	)

	// HubBroadcastsTotal tracks events fanned out by event type
	HubBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total events broadcast to all connections by event type",
		},
		[]string{"type"},
	)

	// HubSkippedDeliveriesTotal tracks deliveries skipped because the connection was not writable
	HubSkippedDeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_skipped_deliveries_total",
			Help: "Total deliveries skipped because the connection was no longer writable",
		},
	)

	// HubSlowClientsEvicted tracks number of slow clients evicted
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total number of slow WebSocket clients evicted due to buffer full",
		},
	)

	// HubPanicsTotal tracks hub panic recoveries
	HubPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_panics_total",
			Help: "Total hub panic recoveries",
		},
	)

	// HubStopTimeoutsTotal tracks hub stops that exceeded timeout
	HubStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_stop_timeouts_total",
			Help: "Hub stops that exceeded timeout",
		},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsTotal tracks total WebSocket connection attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connection attempts by result (success/error/rejected)",
		},
		[]string{"result"},
	)

	// WebSocketConnectionsRejected tracks rejected connection attempts by reason
	WebSocketConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_rejected_total",
			Help: "Total WebSocket connections rejected by reason (rate_limit/per_ip_limit/global_limit)",
		},
		[]string{"reason"},
	)

	// WebSocketMessageSendDuration tracks WebSocket message send duration
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// WebSocketWriteFailures tracks failed writes that took a connection out of rotation
	WebSocketWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_write_failures_total",
			Help: "Total WebSocket write failures",
		},
	)

	// WebSocketPingFailures tracks WebSocket ping failures
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures (client not responding)",
		},
	)

	// WebSocketConnectionDuration tracks WebSocket connection duration
	WebSocketConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_connection_duration_seconds",
			Help:    "WebSocket connection duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Metrics
var (
	// HTTPErrorsTotal tracks API errors by structured error type
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors by error type",
		},
		[]string{"type"},
	)
)
