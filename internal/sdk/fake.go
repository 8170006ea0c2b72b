package sdk

import (
	"context"
	"errors"
	"sync"
)

// ErrFakeRejected is the default error returned by a failing Fake method.
var ErrFakeRejected = errors.New("fake sdk: call rejected")

// Fake is a scriptable BannerSDK used by tests and by local runs without a
// native host. It records every call in order.
type Fake struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
	// Hook, when set, runs inside every call before the outcome is decided.
	Hook func(method string)
}

// NewFake returns a Fake that accepts every call.
func NewFake() *Fake {
	return &Fake{failures: make(map[string]error)}
}

// Fail makes method return err (ErrFakeRejected when err is nil) until Succeed is called.
func (f *Fake) Fail(method string, err error) {
	if err == nil {
		err = ErrFakeRejected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// Succeed clears a failure set with Fail.
func (f *Fake) Succeed(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, method)
}

// Calls returns the recorded method names.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount counts recorded calls of method.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *Fake) record(ctx context.Context, method string) error {
	if f.Hook != nil {
		f.Hook(method)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	return f.failures[method]
}

var _ BannerSDK = (*Fake)(nil)

func (f *Fake) Initialize(ctx context.Context, _ InitOptions) error {
	return f.record(ctx, MethodInitialize)
}

func (f *Fake) ShowBanner(ctx context.Context, _ BannerOptions) error {
	return f.record(ctx, MethodShowBanner)
}

func (f *Fake) HideBanner(ctx context.Context) error {
	return f.record(ctx, MethodHideBanner)
}

func (f *Fake) ResumeBanner(ctx context.Context) error {
	return f.record(ctx, MethodResumeBanner)
}

func (f *Fake) RemoveBanner(ctx context.Context) error {
	return f.record(ctx, MethodRemoveBanner)
}
