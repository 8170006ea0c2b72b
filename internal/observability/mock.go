package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry records the calls it receives so tests can assert on them.
type MockMetricsRegistry struct {
	mu                 sync.Mutex
	Requests           map[string]int
	AdOperations       map[string]int
	AppStateEvents     map[string]int
	ScreenEvents       map[string]int
	BridgeCalls        map[string]int
	Phase              string
	PlaceholderVisible bool
}

// NewMockMetricsRegistry returns an empty recording registry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		Requests:       make(map[string]int),
		AdOperations:   make(map[string]int),
		AppStateEvents: make(map[string]int),
		ScreenEvents:   make(map[string]int),
		BridgeCalls:    make(map[string]int),
	}
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint+":"+status]++
}

func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// IncrementAdOperations keys the count as "op:platform:outcome".
func (m *MockMetricsRegistry) IncrementAdOperations(op, platform, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdOperations[op+":"+platform+":"+outcome]++
}

func (m *MockMetricsRegistry) RecordAdOperationLatency(op string, duration time.Duration) {}

func (m *MockMetricsRegistry) SetAdPhase(phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Phase = phase
}

func (m *MockMetricsRegistry) SetPlaceholderVisible(visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlaceholderVisible = visible
}

func (m *MockMetricsRegistry) IncrementAppStateEvents(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppStateEvents[state]++
}

func (m *MockMetricsRegistry) IncrementScreenEvents(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScreenEvents[event]++
}

func (m *MockMetricsRegistry) IncrementBridgeCalls(method, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BridgeCalls[method+":"+outcome]++
}

func (m *MockMetricsRegistry) RecordBridgeLatency(method string, duration time.Duration) {}

// Count returns a snapshot value from one of the recorded maps.
func (m *MockMetricsRegistry) Count(counts map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counts[key]
}
