package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbridge_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adbridge_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// coordinator operations labelled by op, platform and outcome
	AdOperationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbridge_ad_operations_total",
			Help: "Total banner lifecycle operations",
		},
		[]string{"op", "platform", "outcome"},
	)

	AdOperationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adbridge_ad_operation_duration_seconds",
			Help:    "Duration of banner lifecycle operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// current phase of the tracked banner, one series set to 1
	AdPhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adbridge_ad_phase",
			Help: "Current banner phase (1 for the active phase)",
		},
		[]string{"phase"},
	)

	PlaceholderVisible = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "adbridge_placeholder_visible",
			Help: "Whether the web placeholder should be rendered",
		},
	)

	// foreground/background transitions delivered to subscribers
	AppStateEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbridge_app_state_events_total",
			Help: "Total app state transitions",
		},
		[]string{"state"},
	)

	// calls forwarded to the native plugin bridge
	BridgeCallCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbridge_native_bridge_calls_total",
			Help: "Total native bridge calls",
		},
		[]string{"method", "outcome"},
	)

	BridgeCallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adbridge_native_bridge_duration_seconds",
			Help:    "Duration of native bridge calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ScreenMounts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbridge_screen_lifecycle_total",
			Help: "Screen mount and unmount events",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		AdOperationCount,
		AdOperationLatency,
		AdPhase,
		PlaceholderVisible,
		AppStateEvents,
		BridgeCallCount,
		BridgeCallLatency,
		ScreenMounts,
	)
}
