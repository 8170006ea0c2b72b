package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components receive it by injection instead of touching the Prometheus globals.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Banner lifecycle metrics
	IncrementAdOperations(op, platform, outcome string)
	RecordAdOperationLatency(op string, duration time.Duration)
	SetAdPhase(phase string)
	SetPlaceholderVisible(visible bool)

	// App state and screen metrics
	IncrementAppStateEvents(state string)
	IncrementScreenEvents(event string)

	// Native bridge metrics
	IncrementBridgeCalls(method, outcome string)
	RecordBridgeLatency(method string, duration time.Duration)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementAdOperations(op, platform, outcome string) {
	AdOperationCount.WithLabelValues(op, platform, outcome).Inc()
}

func (r *PrometheusRegistry) RecordAdOperationLatency(op string, duration time.Duration) {
	AdOperationLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// SetAdPhase leaves exactly one phase series at 1.
func (r *PrometheusRegistry) SetAdPhase(phase string) {
	AdPhase.Reset()
	AdPhase.WithLabelValues(phase).Set(1)
}

func (r *PrometheusRegistry) SetPlaceholderVisible(visible bool) {
	if visible {
		PlaceholderVisible.Set(1)
		return
	}
	PlaceholderVisible.Set(0)
}

func (r *PrometheusRegistry) IncrementAppStateEvents(state string) {
	AppStateEvents.WithLabelValues(state).Inc()
}

func (r *PrometheusRegistry) IncrementScreenEvents(event string) {
	ScreenMounts.WithLabelValues(event).Inc()
}

func (r *PrometheusRegistry) IncrementBridgeCalls(method, outcome string) {
	BridgeCallCount.WithLabelValues(method, outcome).Inc()
}

func (r *PrometheusRegistry) RecordBridgeLatency(method string, duration time.Duration) {
	BridgeCallLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementAdOperations(op, platform, outcome string)                   {}
func (r *NoOpRegistry) RecordAdOperationLatency(op string, duration time.Duration)           {}
func (r *NoOpRegistry) SetAdPhase(phase string)                                              {}
func (r *NoOpRegistry) SetPlaceholderVisible(visible bool)                                   {}
func (r *NoOpRegistry) IncrementAppStateEvents(state string)                                 {}
func (r *NoOpRegistry) IncrementScreenEvents(event string)                                   {}
func (r *NoOpRegistry) IncrementBridgeCalls(method, outcome string)                          {}
func (r *NoOpRegistry) RecordBridgeLatency(method string, duration time.Duration)            {}
