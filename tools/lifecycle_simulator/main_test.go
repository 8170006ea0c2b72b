package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/ads"
	"github.com/patrickwarner/adbridge/internal/api"
	"github.com/patrickwarner/adbridge/internal/appstate"
	"github.com/patrickwarner/adbridge/internal/platform"
	"github.com/patrickwarner/adbridge/internal/screen"
)

func TestExpectationMet(t *testing.T) {
	want := expectation{phase: "visible", visible: true}
	assert.True(t, want.met(adState{Phase: "visible", PlaceholderVisible: true}))
	assert.False(t, want.met(adState{Phase: "visible", PlaceholderVisible: false}))
	// native banners have no placeholder to check
	assert.True(t, want.met(adState{Phase: "visible", Native: true}))
	assert.False(t, want.met(adState{Phase: "hidden", Native: true}))
}

func TestCycleAgainstServer(t *testing.T) {
	c := ads.New(platform.Static(false), nil)
	hub := appstate.NewHub(nil, nil)
	reg := screen.NewRegistry(c, hub, screen.Options{ShowDelay: 10 * time.Millisecond})
	srv := api.NewServer(zap.NewNop(), c, hub, reg, []byte("secret"), time.Hour, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	showDelay = 20 * time.Millisecond
	settle = time.Second
	skipAppState = false

	sim := &simulator{base: ts.URL, client: &http.Client{Timeout: time.Second}, logger: zap.NewNop()}
	before := atomic.LoadUint64(&countFailed)
	require.NoError(t, sim.cycle(context.Background(), "home"))
	assert.Equal(t, before, atomic.LoadUint64(&countFailed))
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, ads.Removed, c.State().Phase)
}
