package screen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/appstate"
	"github.com/patrickwarner/adbridge/internal/observability"
)

// ErrUnknownScreen is returned for an ID that is not mounted.
var ErrUnknownScreen = errors.New("unknown screen")

// DefaultRetiredScreens bounds how many unmounted screens Lookup still knows.
const DefaultRetiredScreens = 256

// Options configures binders created by a Registry.
type Options struct {
	ShowDelay      time.Duration
	RetiredScreens int
	Logger         *zap.Logger
	Metrics        observability.MetricsRegistry
	Journal        Journal
	// OnChange is called with the placeholder flag after every banner call.
	OnChange func(screenID string, visible bool)
}

// Registry creates binders and tracks the mounted ones by instance ID.
type Registry struct {
	banner   Banner
	source   appstate.Source
	opts     Options
	schedule afterFunc

	mu      sync.Mutex
	binders map[string]*Binder
	retired *lru.Cache[string, Summary]
}

// NewRegistry returns a registry whose binders drive banner.
func NewRegistry(banner Banner, source appstate.Source, opts Options) *Registry {
	if opts.ShowDelay <= 0 {
		opts.ShowDelay = DefaultShowDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewNoOpRegistry()
	}
	if opts.RetiredScreens <= 0 {
		opts.RetiredScreens = DefaultRetiredScreens
	}
	// lru.New only fails for a non-positive size
	retired, _ := lru.New[string, Summary](opts.RetiredScreens)
	return &Registry{
		banner:   banner,
		source:   source,
		opts:     opts,
		schedule: realAfterFunc,
		binders:  make(map[string]*Binder),
		retired:  retired,
	}
}

// NewBinder builds an unmounted binder for screen.
func (r *Registry) NewBinder(screen string) *Binder {
	id := uuid.NewString()
	b := &Binder{
		id:       id,
		screen:   screen,
		banner:   r.banner,
		source:   r.source,
		delay:    r.opts.ShowDelay,
		logger:   r.opts.Logger.With(zap.String("screen_id", id), zap.String("screen", screen)),
		metrics:  r.opts.Metrics,
		journal:  r.opts.Journal,
		schedule: r.schedule,
	}
	if r.opts.OnChange != nil {
		b.onChange = func(visible bool) { r.opts.OnChange(id, visible) }
	}
	return b
}

// Mount creates, mounts and tracks a binder for screen.
func (r *Registry) Mount(ctx context.Context, screen string) (*Binder, error) {
	b := r.NewBinder(screen)
	if err := b.Mount(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.binders[b.id] = b
	r.mu.Unlock()
	return b, nil
}

// Unmount unmounts and forgets the binder with id.
func (r *Registry) Unmount(ctx context.Context, id string) error {
	r.mu.Lock()
	b, ok := r.binders[id]
	delete(r.binders, id)
	r.mu.Unlock()
	if !ok {
		return ErrUnknownScreen
	}
	err := b.Unmount(ctx)
	r.retired.Add(id, b.Summary())
	return err
}

// Lookup describes a mounted screen or one of the most recently unmounted ones.
func (r *Registry) Lookup(id string) (Summary, bool) {
	if b, ok := r.Get(id); ok {
		return b.Summary(), true
	}
	return r.retired.Get(id)
}

// Get returns the mounted binder with id.
func (r *Registry) Get(id string) (*Binder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.binders[id]
	return b, ok
}

// Len returns the number of mounted screens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.binders)
}

// UnmountAll unmounts every tracked screen, used on shutdown.
func (r *Registry) UnmountAll(ctx context.Context) {
	r.mu.Lock()
	binders := make([]*Binder, 0, len(r.binders))
	for id, b := range r.binders {
		binders = append(binders, b)
		delete(r.binders, id)
	}
	r.mu.Unlock()
	for _, b := range binders {
		_ = b.Unmount(ctx)
		r.retired.Add(b.id, b.Summary())
	}
}
