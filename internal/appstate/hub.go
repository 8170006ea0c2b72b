// Package appstate delivers app foreground/background transitions to the
// components that host a banner.
package appstate

import (
	"sync"

	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/observability"
)

// Listener receives a transition. isActive is true when the app returns to
// the foreground.
type Listener func(isActive bool)

// Source is a subscription capability for app state transitions.
type Source interface {
	OnAppStateChange(fn Listener) (unsubscribe func())
}

type subscription struct {
	id int
	fn Listener
}

// Hub is an in-process Source. A transition reaches listeners at most once:
// publishing the current state again is dropped. Listeners run one after the
// other on the publishing goroutine and must not publish themselves.
type Hub struct {
	logger  *zap.Logger
	metrics observability.MetricsRegistry

	deliverMu sync.Mutex

	mu        sync.Mutex
	active    bool
	nextID    int
	listeners []subscription
}

// NewHub returns a hub that starts in the active (foreground) state.
func NewHub(logger *zap.Logger, metrics observability.MetricsRegistry) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Hub{logger: logger, metrics: metrics, active: true}
}

var _ Source = (*Hub)(nil)

// OnAppStateChange registers fn. The returned function is safe to call twice.
func (h *Hub) OnAppStateChange(fn Listener) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, subscription{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.listeners {
				if s.id == id {
					h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers a transition. It returns false when isActive matches the
// current state and nothing was delivered.
func (h *Hub) Publish(isActive bool) bool {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	h.mu.Lock()
	if h.active == isActive {
		h.mu.Unlock()
		return false
	}
	h.active = isActive
	listeners := make([]subscription, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	state := stateLabel(isActive)
	h.metrics.IncrementAppStateEvents(state)
	h.logger.Info("app state changed",
		zap.String("state", state),
		zap.Int("listeners", len(listeners)))

	for _, s := range listeners {
		s.fn(isActive)
	}
	return true
}

// IsActive reports the last published state.
func (h *Hub) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func stateLabel(isActive bool) string {
	if isActive {
		return "active"
	}
	return "inactive"
}
