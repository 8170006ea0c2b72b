// Package ads owns the banner ad lifecycle. A Coordinator decides when the
// single tracked banner is initialized, shown, hidden, resumed or removed.
// On platforms without a native ad SDK it toggles a placeholder flag
// instead, which is the only state the rendering layer reads.
//
// SDK failures never escape as panics and never block the caller: every
// operation logs the failure, keeps the phase it had before the failed call
// and returns an *OpError the caller is free to ignore.
//
// The coordinator expects a sequential caller (the screen binder awaits each
// call before issuing the next). Its fields are guarded by a mutex, but the
// lock is not held across SDK calls, so two overlapping operations resolve
// as "last to complete wins".
package ads

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/observability"
	"github.com/patrickwarner/adbridge/internal/platform"
	"github.com/patrickwarner/adbridge/internal/sdk"
)

var errNoSDK = errors.New("native ad sdk not configured")

// Recorder receives every completed operation. Errors are logged and dropped.
type Recorder interface {
	RecordTransition(ctx context.Context, t Transition) error
}

// Coordinator is the single source of truth for banner state.
type Coordinator struct {
	probe     platform.Probe
	banner    sdk.BannerSDK
	logger    *zap.Logger
	metrics   observability.MetricsRegistry
	tracer    trace.Tracer
	recorders []Recorder

	mu    sync.Mutex
	state State
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for operation outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m observability.MetricsRegistry) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithRecorder adds a transition recorder. Recorders run in the order added.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

// New builds a coordinator. banner may be nil when the probe is not native.
func New(probe platform.Probe, banner sdk.BannerSDK, opts ...Option) *Coordinator {
	c := &Coordinator{
		probe:   probe,
		banner:  banner,
		logger:  zap.NewNop(),
		metrics: observability.NewNoOpRegistry(),
		tracer:  observability.Tracer("adbridge/ads"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Phase: Uninitialized, PlatformIsNative: probe.IsNative()}
	c.metrics.SetAdPhase(Uninitialized.String())
	c.metrics.SetPlaceholderVisible(false)
	return c
}

// IsNative reports whether the real SDK is used.
func (c *Coordinator) IsNative() bool {
	return c.probe.IsNative()
}

// Platform returns the probe's platform name.
func (c *Coordinator) Platform() string {
	return c.probe.Platform()
}

// IsWebPlaceholderVisible is the only state the rendering layer may read.
// It is always false on native platforms.
func (c *Coordinator) IsWebPlaceholderVisible() bool {
	if c.probe.IsNative() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.PlaceholderVisible
}

// State returns a copy of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
	if c.state.PlatformIsNative {
		c.state.PlaceholderVisible = false
	}
}

// Initialize performs one-time setup. Once setup has succeeded it never
// reaches the SDK again; from Removed it only re-enters Hidden.
func (c *Coordinator) Initialize(ctx context.Context) error {
	ctx, r := c.begin(ctx, OpInitialize)
	changed, err := c.initialize(ctx)
	if err != nil {
		return r.finish(ctx, false, &OpError{Op: OpInitialize, Kind: SetupFailure, Err: err})
	}
	return r.finish(ctx, changed, nil)
}

// ShowBanner shows the banner, running the initialize transition first when
// the banner is uninitialized or removed.
func (c *Coordinator) ShowBanner(ctx context.Context) error {
	ctx, r := c.begin(ctx, OpShow)
	// An initialized native banner leaves Removed only through an accepted
	// show, so a rejected one keeps it Removed.
	if s := c.State(); s.needsEntry() && !(s.Initialized && c.probe.IsNative()) {
		if _, err := c.initialize(ctx); err != nil {
			return r.finish(ctx, false, &OpError{Op: OpShow, Kind: SetupFailure, Err: err})
		}
	}
	return r.finish(ctx, true, c.apply(ctx, OpShow, Visible, true))
}

// HideBanner hides the banner for a transient reason such as backgrounding.
func (c *Coordinator) HideBanner(ctx context.Context) error {
	ctx, r := c.begin(ctx, OpHide)
	return r.finish(ctx, true, c.apply(ctx, OpHide, Hidden, false))
}

// ResumeBanner re-shows a banner hidden by HideBanner.
func (c *Coordinator) ResumeBanner(ctx context.Context) error {
	ctx, r := c.begin(ctx, OpResume)
	return r.finish(ctx, true, c.apply(ctx, OpResume, Visible, true))
}

// RemoveBanner tears the banner down. On the web path it always lands in Removed.
func (c *Coordinator) RemoveBanner(ctx context.Context) error {
	ctx, r := c.begin(ctx, OpRemove)
	return r.finish(ctx, true, c.apply(ctx, OpRemove, Removed, false))
}

// initialize runs the entry transition. changed is false when nothing had to happen.
func (c *Coordinator) initialize(ctx context.Context) (bool, error) {
	s := c.State()
	if s.Initialized && s.Phase != Uninitialized && s.Phase != Removed {
		return false, nil
	}
	if !s.Initialized && c.probe.IsNative() {
		if err := c.invoke(ctx, OpInitialize); err != nil {
			return false, err
		}
	}
	c.update(func(st *State) {
		st.Initialized = true
		if st.Phase == Uninitialized || st.Phase == Removed {
			st.Phase = Hidden
		}
	})
	return true, nil
}

// apply moves the banner to phase to. Without native support only the
// placeholder flag changes; otherwise the SDK must accept the call first.
func (c *Coordinator) apply(ctx context.Context, op Op, to Phase, placeholder bool) error {
	if !c.probe.IsNative() {
		c.update(func(st *State) {
			st.PlaceholderVisible = placeholder
			st.Phase = to
		})
		return nil
	}
	if err := c.invoke(ctx, op); err != nil {
		return &OpError{Op: op, Kind: DisplayFailure, Err: err}
	}
	c.update(func(st *State) { st.Phase = to })
	return nil
}

func (c *Coordinator) invoke(ctx context.Context, op Op) error {
	if c.banner == nil {
		return errNoSDK
	}
	switch op {
	case OpInitialize:
		return c.banner.Initialize(ctx, sdk.DefaultInitOptions)
	case OpShow:
		return c.banner.ShowBanner(ctx, sdk.DefaultBannerOptions)
	case OpHide:
		return c.banner.HideBanner(ctx)
	case OpResume:
		return c.banner.ResumeBanner(ctx)
	case OpRemove:
		return c.banner.RemoveBanner(ctx)
	}
	return errors.New("unknown operation " + string(op))
}

// run tracks one operation from begin to finish.
type run struct {
	c     *Coordinator
	span  trace.Span
	op    Op
	from  Phase
	start time.Time
}

func (c *Coordinator) begin(ctx context.Context, op Op) (context.Context, *run) {
	ctx, span := c.tracer.Start(ctx, "ads."+string(op),
		trace.WithAttributes(
			attribute.String("ad.op", string(op)),
			attribute.String("ad.platform", c.probe.Platform()),
		))
	return ctx, &run{c: c, span: span, op: op, from: c.State().Phase, start: time.Now()}
}

// finish logs, measures and records the outcome, then returns err unchanged.
func (r *run) finish(ctx context.Context, changed bool, err error) error {
	c := r.c
	s := c.State()
	platformName := c.probe.Platform()

	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeFailure
	case !changed:
		outcome = OutcomeNoop
	}

	t := Transition{
		At:       r.start,
		Op:       r.op,
		Platform: platformName,
		From:     r.from,
		To:       s.Phase,
		Outcome:  outcome,
		Duration: time.Since(r.start),
		State:    s,
	}

	if err != nil {
		kind, _ := KindOf(err)
		t.Error = err.Error()
		c.logger.Error("banner operation failed",
			zap.String("op", string(r.op)),
			zap.String("kind", kind.String()),
			zap.String("platform", platformName),
			zap.Stringer("phase", s.Phase),
			zap.Error(err))
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, kind.String())
	} else {
		c.logger.Debug("banner operation",
			zap.String("op", string(r.op)),
			zap.String("outcome", outcome),
			zap.Stringer("from", r.from),
			zap.Stringer("to", s.Phase),
			zap.Bool("placeholder_visible", s.PlaceholderVisible))
	}

	c.metrics.IncrementAdOperations(string(r.op), platformName, outcome)
	c.metrics.RecordAdOperationLatency(string(r.op), t.Duration)
	c.metrics.SetAdPhase(s.Phase.String())
	c.metrics.SetPlaceholderVisible(s.PlaceholderVisible)

	for _, rec := range c.recorders {
		if rerr := rec.RecordTransition(ctx, t); rerr != nil {
			c.logger.Warn("failed to record banner transition",
				zap.String("op", string(r.op)),
				zap.Error(rerr))
		}
	}

	r.span.SetAttributes(
		attribute.String("ad.phase", s.Phase.String()),
		attribute.String("ad.outcome", outcome),
	)
	r.span.End()
	return err
}
