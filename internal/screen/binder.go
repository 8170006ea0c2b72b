// Package screen binds banner calls to the mount and unmount of the screen
// that hosts the banner.
package screen

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/appstate"
	"github.com/patrickwarner/adbridge/internal/observability"
)

var (
	ErrAlreadyMounted = errors.New("screen already mounted")
	ErrNotMounted     = errors.New("screen not mounted")
)

// DefaultShowDelay lets the screen's layout settle before the banner appears.
const DefaultShowDelay = time.Second

// Banner is the part of the coordinator a binder drives.
type Banner interface {
	ShowBanner(ctx context.Context) error
	HideBanner(ctx context.Context) error
	ResumeBanner(ctx context.Context) error
	RemoveBanner(ctx context.Context) error
	IsWebPlaceholderVisible() bool
}

// Journal persists the screen lifecycle. Failures are logged only.
type Journal interface {
	RecordMount(ctx context.Context, id, screen string, at time.Time) error
	RecordShowFired(ctx context.Context, id string) error
	RecordUnmount(ctx context.Context, id string, at time.Time) error
}

// afterFunc schedules f and returns a stop function, like time.AfterFunc.
type afterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Binder ties one screen instance to the banner. Every banner call it makes
// is serialised by its lock, and after Unmount it makes no further calls.
type Binder struct {
	id       string
	screen   string
	banner   Banner
	source   appstate.Source
	delay    time.Duration
	logger   *zap.Logger
	metrics  observability.MetricsRegistry
	journal  Journal
	schedule afterFunc
	onChange func(visible bool)

	mu          sync.Mutex
	ctx         context.Context
	mounted     bool
	unmounted   bool
	stopTimer   func() bool
	unsubscribe func()
	showFired   bool
	showSkipped bool
	background  bool
}

// ID returns the screen instance ID.
func (b *Binder) ID() string { return b.id }

// Screen returns the screen name.
func (b *Binder) Screen() string { return b.screen }

// Mounted reports whether the binder is between Mount and Unmount.
func (b *Binder) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounted
}

// ShowFired reports whether the deferred show has reached the banner.
func (b *Binder) ShowFired() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.showFired
}

// Summary describes a screen instance at one point in time.
type Summary struct {
	ID        string `json:"id"`
	Screen    string `json:"screen"`
	Mounted   bool   `json:"mounted"`
	ShowFired bool   `json:"show_fired"`
	// Background is true when the app was backgrounded at the last event the screen saw.
	Background bool `json:"background"`
}

// Summary snapshots the binder.
func (b *Binder) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Summary{
		ID:         b.id,
		Screen:     b.screen,
		Mounted:    b.mounted,
		ShowFired:  b.showFired,
		Background: b.background,
	}
}

// Mount subscribes to app state and schedules the deferred show. A binder
// mounts once; remounting needs a new instance.
func (b *Binder) Mount(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mounted || b.unmounted {
		return ErrAlreadyMounted
	}
	// deferred calls outlive the request that mounted the screen
	b.ctx = context.WithoutCancel(ctx)
	b.mounted = true
	b.unsubscribe = b.source.OnAppStateChange(b.handleAppState)
	b.stopTimer = b.schedule(b.delay, b.deferredShow)

	b.metrics.IncrementScreenEvents("mount")
	b.logger.Info("screen mounted", zap.Duration("show_delay", b.delay))
	if b.journal != nil {
		if err := b.journal.RecordMount(b.ctx, b.id, b.screen, time.Now()); err != nil {
			b.logger.Warn("failed to journal mount", zap.Error(err))
		}
	}
	return nil
}

// Unmount stops the deferred show, unsubscribes and removes the banner as
// its last action.
func (b *Binder) Unmount(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted {
		return ErrNotMounted
	}
	b.mounted = false
	b.unmounted = true
	if b.stopTimer != nil && b.stopTimer() {
		b.logger.Debug("deferred show cancelled before firing")
	}
	if b.unsubscribe != nil {
		b.unsubscribe()
	}

	// Nothing retries the remove once the screen is gone, so a caller that
	// hangs up must not cancel it.
	ctx = context.WithoutCancel(ctx)
	// Remove failures are logged by the coordinator.
	_ = b.banner.RemoveBanner(ctx)
	b.notify()

	b.metrics.IncrementScreenEvents("unmount")
	b.logger.Info("screen unmounted", zap.Bool("show_fired", b.showFired))
	if b.journal != nil {
		if err := b.journal.RecordUnmount(ctx, b.id, time.Now()); err != nil {
			b.logger.Warn("failed to journal unmount", zap.Error(err))
		}
	}
	return nil
}

// deferredShow runs when the show delay expires.
func (b *Binder) deferredShow() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted {
		b.logger.Debug("deferred show skipped, screen already unmounted")
		return
	}
	if b.background {
		// the foreground transition shows it instead
		b.showSkipped = true
		return
	}
	b.show()
}

func (b *Binder) show() {
	_ = b.banner.ShowBanner(b.ctx)
	b.showFired = true
	b.showSkipped = false
	b.notify()
	if b.journal != nil {
		if err := b.journal.RecordShowFired(b.ctx, b.id); err != nil {
			b.logger.Warn("failed to journal show", zap.Error(err))
		}
	}
}

func (b *Binder) handleAppState(isActive bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted {
		return
	}
	b.background = !isActive

	if !isActive {
		_ = b.banner.HideBanner(b.ctx)
		b.notify()
		return
	}
	switch {
	case b.showFired:
		_ = b.banner.ResumeBanner(b.ctx)
		b.notify()
	case b.showSkipped:
		b.show()
	}
	// otherwise the deferred show is still pending and will fire on its own
}

func (b *Binder) notify() {
	if b.onChange != nil {
		b.onChange(b.banner.IsWebPlaceholderVisible())
	}
}
