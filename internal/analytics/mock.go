package analytics

import (
	"context"
	"sync"

	"github.com/patrickwarner/adbridge/internal/ads"
)

var _ Service = (*MockAnalytics)(nil)

// MockAnalytics keeps transitions in memory for tests and local runs.
type MockAnalytics struct {
	mu     sync.Mutex
	Events []EventRecord
	// Err, when set, is returned by RecordTransition.
	Err error
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordTransition appends the transition as an EventRecord.
func (m *MockAnalytics) RecordTransition(_ context.Context, t ads.Transition) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EventRecord{
		Timestamp:  t.At,
		Op:         string(t.Op),
		Platform:   t.Platform,
		FromPhase:  t.From.String(),
		ToPhase:    t.To.String(),
		Outcome:    t.Outcome,
		Error:      t.Error,
		DurationMS: float64(t.Duration.Microseconds()) / 1000,
	})
	return nil
}

// RecentTransitions returns the newest events first.
func (m *MockAnalytics) RecentTransitions(_ context.Context, limit int) ([]EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventRecord, 0, len(m.Events))
	for i := len(m.Events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.Events[i])
	}
	return out, nil
}
