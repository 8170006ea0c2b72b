package ads

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/patrickwarner/adbridge/internal/observability"
	"github.com/patrickwarner/adbridge/internal/platform"
	"github.com/patrickwarner/adbridge/internal/sdk"
)

type memRecorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (m *memRecorder) RecordTransition(_ context.Context, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, t)
	return nil
}

func newWeb(t *testing.T, fake *sdk.Fake) *Coordinator {
	t.Helper()
	return New(platform.Static(false), fake)
}

func newNative(t *testing.T, fake *sdk.Fake, opts ...Option) *Coordinator {
	t.Helper()
	return New(platform.Static(true), fake, opts...)
}

func TestWeb_InitializeThenShow(t *testing.T) {
	fake := sdk.NewFake()
	c := newWeb(t, fake)
	ctx := context.Background()

	require.NoError(t, c.Initialize(ctx))
	assert.Equal(t, Hidden, c.State().Phase)
	assert.True(t, c.State().Initialized)

	require.NoError(t, c.ShowBanner(ctx))
	assert.True(t, c.IsWebPlaceholderVisible())
	assert.Equal(t, Visible, c.State().Phase)
	assert.Empty(t, fake.Calls(), "web path must never reach the native sdk")
}

func TestWeb_BackgroundAndForeground(t *testing.T) {
	c := newWeb(t, sdk.NewFake())
	ctx := context.Background()

	require.NoError(t, c.ShowBanner(ctx))
	require.NoError(t, c.HideBanner(ctx))
	assert.False(t, c.IsWebPlaceholderVisible())
	assert.Equal(t, Hidden, c.State().Phase)

	require.NoError(t, c.ResumeBanner(ctx))
	assert.True(t, c.IsWebPlaceholderVisible())
	assert.Equal(t, Visible, c.State().Phase)
}

func TestWeb_RemoveIsUnconditional(t *testing.T) {
	c := newWeb(t, nil)
	ctx := context.Background()

	require.NoError(t, c.RemoveBanner(ctx))
	assert.Equal(t, Removed, c.State().Phase)
	require.NoError(t, c.RemoveBanner(ctx))
	assert.Equal(t, Removed, c.State().Phase)
	assert.False(t, c.IsWebPlaceholderVisible())
}

func TestWeb_ShowAfterRemoveRestartsCycle(t *testing.T) {
	c := newWeb(t, nil)
	ctx := context.Background()

	require.NoError(t, c.ShowBanner(ctx))
	require.NoError(t, c.RemoveBanner(ctx))
	require.NoError(t, c.ShowBanner(ctx))
	assert.Equal(t, Visible, c.State().Phase)
	assert.True(t, c.IsWebPlaceholderVisible())
}

// model mirrors the expected placeholder flag for sequential web calls.
func TestWeb_PlaceholderTracksLastSuccessfulOperation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		c := newWeb(t, nil)
		expected := false
		for step := 0; step < 20; step++ {
			op := Ops[rng.Intn(len(Ops))]
			var err error
			switch op {
			case OpInitialize:
				err = c.Initialize(ctx)
			case OpShow:
				err = c.ShowBanner(ctx)
				expected = true
			case OpHide:
				err = c.HideBanner(ctx)
				expected = false
			case OpResume:
				err = c.ResumeBanner(ctx)
				expected = true
			case OpRemove:
				err = c.RemoveBanner(ctx)
				expected = false
			}
			require.NoError(t, err, "web operations cannot fail")
			require.Equal(t, expected, c.IsWebPlaceholderVisible(), "round %d step %d op %s", round, step, op)
		}
	}
}

func TestNative_InitializeCallsSDKOnce(t *testing.T) {
	fake := sdk.NewFake()
	c := newNative(t, fake)
	ctx := context.Background()

	require.NoError(t, c.Initialize(ctx))
	require.NoError(t, c.Initialize(ctx))
	assert.Equal(t, 1, fake.CallCount(sdk.MethodInitialize))
	assert.Equal(t, Hidden, c.State().Phase)

	// re-entering from Removed does not repeat setup
	require.NoError(t, c.RemoveBanner(ctx))
	require.NoError(t, c.Initialize(ctx))
	assert.Equal(t, 1, fake.CallCount(sdk.MethodInitialize))
	assert.Equal(t, Hidden, c.State().Phase)
}

func TestNative_InitializeFailureIsRetried(t *testing.T) {
	fake := sdk.NewFake()
	fake.Fail(sdk.MethodInitialize, nil)
	c := newNative(t, fake)
	ctx := context.Background()

	err := c.Initialize(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSetupFailure)
	assert.ErrorIs(t, err, sdk.ErrFakeRejected)
	assert.False(t, c.State().Initialized)
	assert.Equal(t, Uninitialized, c.State().Phase)

	fake.Succeed(sdk.MethodInitialize)
	require.NoError(t, c.Initialize(ctx))
	assert.True(t, c.State().Initialized)
	assert.Equal(t, 2, fake.CallCount(sdk.MethodInitialize))
}

func TestNative_ShowLazilyInitializes(t *testing.T) {
	fake := sdk.NewFake()
	c := newNative(t, fake)

	require.NoError(t, c.ShowBanner(context.Background()))
	assert.Equal(t, []string{sdk.MethodInitialize, sdk.MethodShowBanner}, fake.Calls())
	assert.Equal(t, Visible, c.State().Phase)
	assert.False(t, c.IsWebPlaceholderVisible(), "native never exposes the placeholder")
}

func TestNative_ShowAbandonedWhenSetupFails(t *testing.T) {
	fake := sdk.NewFake()
	fake.Fail(sdk.MethodInitialize, nil)
	c := newNative(t, fake)

	err := c.ShowBanner(context.Background())
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, SetupFailure, kind)
	assert.Equal(t, 0, fake.CallCount(sdk.MethodShowBanner))
	assert.Equal(t, Uninitialized, c.State().Phase)
}

func TestNative_ShowRejectedKeepsPriorPhase(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	fake := sdk.NewFake()
	fake.Fail(sdk.MethodShowBanner, errors.New("no fill"))
	c := newNative(t, fake, WithLogger(zap.New(core)))

	err := c.ShowBanner(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisplayFailure)
	assert.Equal(t, Hidden, c.State().Phase)
	assert.False(t, c.IsWebPlaceholderVisible())

	entries := logs.FilterMessage("banner operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "display_failure", entries[0].ContextMap()["kind"])
	assert.Equal(t, "show", entries[0].ContextMap()["op"])
}

func TestNative_ShowRejectedAfterRemoveStaysRemoved(t *testing.T) {
	fake := sdk.NewFake()
	c := newNative(t, fake)
	ctx := context.Background()

	require.NoError(t, c.ShowBanner(ctx))
	require.NoError(t, c.RemoveBanner(ctx))
	require.Equal(t, Removed, c.State().Phase)

	fake.Fail(sdk.MethodShowBanner, errors.New("no fill"))
	err := c.ShowBanner(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisplayFailure)
	assert.Equal(t, Removed, c.State().Phase)
	assert.True(t, c.State().Initialized)
	assert.Equal(t, 1, fake.CallCount(sdk.MethodInitialize))

	fake.Succeed(sdk.MethodShowBanner)
	require.NoError(t, c.ShowBanner(ctx))
	assert.Equal(t, Visible, c.State().Phase)
	assert.Equal(t, 1, fake.CallCount(sdk.MethodInitialize))
}

func TestNative_FailuresLeavePhaseIntact(t *testing.T) {
	tests := []struct {
		name   string
		method string
		call   func(*Coordinator, context.Context) error
	}{
		{"hide", sdk.MethodHideBanner, (*Coordinator).HideBanner},
		{"resume", sdk.MethodResumeBanner, (*Coordinator).ResumeBanner},
		{"remove", sdk.MethodRemoveBanner, (*Coordinator).RemoveBanner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := sdk.NewFake()
			c := newNative(t, fake)
			ctx := context.Background()
			require.NoError(t, c.ShowBanner(ctx))

			fake.Fail(tt.method, nil)
			err := tt.call(c, ctx)
			assert.ErrorIs(t, err, ErrDisplayFailure)
			assert.Equal(t, Visible, c.State().Phase)
		})
	}
}

func TestNative_FullCycle(t *testing.T) {
	fake := sdk.NewFake()
	c := newNative(t, fake)
	ctx := context.Background()

	require.NoError(t, c.ShowBanner(ctx))
	require.NoError(t, c.HideBanner(ctx))
	assert.Equal(t, Hidden, c.State().Phase)
	require.NoError(t, c.ResumeBanner(ctx))
	assert.Equal(t, Visible, c.State().Phase)
	require.NoError(t, c.RemoveBanner(ctx))
	assert.Equal(t, Removed, c.State().Phase)

	assert.Equal(t, []string{
		sdk.MethodInitialize,
		sdk.MethodShowBanner,
		sdk.MethodHideBanner,
		sdk.MethodResumeBanner,
		sdk.MethodRemoveBanner,
	}, fake.Calls())
}

func TestNative_MissingSDKIsSetupFailure(t *testing.T) {
	c := New(platform.Static(true), nil)
	err := c.ShowBanner(context.Background())
	assert.ErrorIs(t, err, ErrSetupFailure)
	assert.Equal(t, Uninitialized, c.State().Phase)
}

func TestRecorderAndMetrics(t *testing.T) {
	rec := &memRecorder{}
	metrics := observability.NewMockMetricsRegistry()
	c := New(platform.Static(false), nil, WithRecorder(rec), WithMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, c.Initialize(ctx))
	require.NoError(t, c.Initialize(ctx))
	require.NoError(t, c.ShowBanner(ctx))

	require.Len(t, rec.transitions, 3)
	assert.Equal(t, OutcomeSuccess, rec.transitions[0].Outcome)
	assert.Equal(t, Uninitialized, rec.transitions[0].From)
	assert.Equal(t, Hidden, rec.transitions[0].To)
	assert.Equal(t, OutcomeNoop, rec.transitions[1].Outcome)
	assert.Equal(t, Visible, rec.transitions[2].To)
	assert.Equal(t, platform.Web, rec.transitions[2].Platform)

	assert.Equal(t, 1, metrics.Count(metrics.AdOperations, "initialize:web:noop"))
	assert.Equal(t, 1, metrics.Count(metrics.AdOperations, "show:web:success"))
	assert.Equal(t, "visible", metrics.Phase)
	assert.True(t, metrics.PlaceholderVisible)
}

func TestConcurrentOperationsLastToCompleteWins(t *testing.T) {
	fake := sdk.NewFake()
	c := newNative(t, fake)
	ctx := context.Background()
	require.NoError(t, c.Initialize(ctx))

	showEntered := make(chan struct{})
	releaseShow := make(chan struct{})
	fake.Hook = func(method string) {
		if method == sdk.MethodShowBanner {
			close(showEntered)
			<-releaseShow
		}
	}

	done := make(chan error, 1)
	go func() { done <- c.ShowBanner(ctx) }()
	<-showEntered

	// hide completes while show is still in flight
	require.NoError(t, c.HideBanner(ctx))
	assert.Equal(t, Hidden, c.State().Phase)

	close(releaseShow)
	require.NoError(t, <-done)
	assert.Equal(t, Visible, c.State().Phase)
}

func TestPhaseText(t *testing.T) {
	var p Phase
	require.NoError(t, p.UnmarshalText([]byte("removed")))
	assert.Equal(t, Removed, p)
	assert.Error(t, p.UnmarshalText([]byte("gone")))
	assert.Equal(t, "phase(9)", Phase(9).String())
}
