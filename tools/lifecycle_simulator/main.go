package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/patrickwarner/adbridge/internal/appstate"
	"github.com/patrickwarner/adbridge/internal/config"
	"github.com/patrickwarner/adbridge/internal/observability"
)

var (
	server       string
	cycles       int
	screens      string
	showDelay    time.Duration
	settle       time.Duration
	redisAddr    string
	channel      string
	skipAppState bool
	debug        bool
	label        string
)

var (
	countCycles uint64
	countPassed uint64
	countFailed uint64
	countErrors uint64
)

type adState struct {
	Initialized        bool   `json:"initialized"`
	Phase              string `json:"phase"`
	Native             bool   `json:"native"`
	PlaceholderVisible bool   `json:"placeholder_visible"`
	Error              string `json:"error,omitempty"`
	Kind               string `json:"kind,omitempty"`
}

type mountResp struct {
	ID     string `json:"id"`
	Screen string `json:"screen"`
	Token  string `json:"token"`
}

// expectation is what the banner should look like after a step.
type expectation struct {
	phase   string
	visible bool
}

func (e expectation) met(s adState) bool {
	if s.Native {
		return s.Phase == e.phase
	}
	return s.Phase == e.phase && s.PlaceholderVisible == e.visible
}

type simulator struct {
	base   string
	client *http.Client
	redis  *redis.Client
	logger *zap.Logger
}

func main() {
	flag.StringVar(&server, "server", "http://localhost:8787", "adbridge base URL")
	flag.IntVar(&cycles, "cycles", 10, "number of mount/background/foreground/unmount cycles")
	flag.StringVar(&screens, "screens", "home,feed,settings", "comma-separated screen names to rotate through")
	flag.DurationVar(&showDelay, "show-delay", time.Second, "deferred show delay configured on the server")
	flag.DurationVar(&settle, "settle", 2*time.Second, "how long to wait for each expected state")
	flag.StringVar(&redisAddr, "redis", "", "publish app state on redis instead of HTTP (defaults to REDIS_ADDR when set to \"env\")")
	flag.StringVar(&channel, "channel", appstate.DefaultChannel, "redis channel for app state")
	flag.BoolVar(&skipAppState, "skip-app-state", false, "only mount and unmount screens")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	logger, err := observability.InitLoggerWithLevel(level, "lifecycle-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	sim := &simulator{
		base: strings.TrimRight(server, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ResponseHeaderTimeout: 5 * time.Second,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		logger: logger,
	}

	if redisAddr == "env" {
		redisAddr = config.Load().RedisAddr
	}
	if redisAddr != "" {
		sim.redis = redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = sim.redis.Close() }()
		if err := sim.redis.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("redis connect", zap.String("addr", redisAddr), zap.Error(err))
		}
		logger.Info("publishing app state on redis", zap.String("addr", redisAddr), zap.String("channel", channel))
	}

	names := strings.Split(screens, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	ctx := context.Background()
	for i := 0; i < cycles; i++ {
		atomic.AddUint64(&countCycles, 1)
		name := names[i%len(names)]
		if err := sim.cycle(ctx, name); err != nil {
			atomic.AddUint64(&countErrors, 1)
			logger.Error("cycle failed", zap.Int("cycle", i), zap.String("screen", name), zap.Error(err))
		}
	}
	printStats(logger)
	if atomic.LoadUint64(&countFailed) > 0 || atomic.LoadUint64(&countErrors) > 0 {
		os.Exit(1)
	}
}

// cycle mounts a screen, waits for the deferred show, backgrounds and
// foregrounds the app, then unmounts, checking the banner after each step.
func (s *simulator) cycle(ctx context.Context, name string) error {
	m, err := s.mount(ctx, name)
	if err != nil {
		return err
	}
	logger := s.logger.With(zap.String("screen", name), zap.String("screen_id", m.ID))
	logger.Debug("mounted")

	time.Sleep(showDelay)
	s.check(ctx, logger, "deferred show", expectation{phase: "visible", visible: true})

	if !skipAppState {
		if err := s.appState(ctx, false); err != nil {
			return err
		}
		s.check(ctx, logger, "background", expectation{phase: "hidden", visible: false})

		if err := s.appState(ctx, true); err != nil {
			return err
		}
		s.check(ctx, logger, "foreground", expectation{phase: "visible", visible: true})
	}

	if err := s.unmount(ctx, m); err != nil {
		return err
	}
	s.check(ctx, logger, "unmount", expectation{phase: "removed", visible: false})
	return nil
}

// check polls the banner state until want is met or settle elapses.
func (s *simulator) check(ctx context.Context, logger *zap.Logger, step string, want expectation) {
	deadline := time.Now().Add(settle)
	var last adState
	for {
		if err := s.do(ctx, http.MethodGet, "/ads/state", nil, &last); err != nil {
			atomic.AddUint64(&countErrors, 1)
			logger.Error("state request", zap.String("step", step), zap.Error(err))
			return
		}
		if want.met(last) {
			atomic.AddUint64(&countPassed, 1)
			logger.Debug("step ok", zap.String("step", step), zap.String("phase", last.Phase))
			return
		}
		if time.Now().After(deadline) {
			atomic.AddUint64(&countFailed, 1)
			logger.Warn("unexpected banner state",
				zap.String("step", step),
				zap.String("want_phase", want.phase),
				zap.Bool("want_visible", want.visible),
				zap.String("phase", last.Phase),
				zap.Bool("placeholder_visible", last.PlaceholderVisible),
				zap.Bool("native", last.Native))
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *simulator) mount(ctx context.Context, name string) (mountResp, error) {
	var out mountResp
	err := s.do(ctx, http.MethodPost, "/screens", map[string]string{"screen": name}, &out)
	return out, err
}

func (s *simulator) unmount(ctx context.Context, m mountResp) error {
	var out json.RawMessage
	return s.do(ctx, http.MethodDelete, "/screens/"+url.PathEscape(m.ID)+"?t="+url.QueryEscape(m.Token), nil, &out)
}

func (s *simulator) appState(ctx context.Context, isActive bool) error {
	if s.redis != nil {
		return appstate.PublishRedis(ctx, s.redis, channel, isActive)
	}
	var out json.RawMessage
	return s.do(ctx, http.MethodPost, "/app-state", map[string]bool{"is_active": isActive}, &out)
}

func (s *simulator) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(blob)
	}
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, s.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return errors.New(resp.Status + ": " + strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}

func printStats(logger *zap.Logger) {
	logger.Info("stats",
		zap.String("run", label),
		zap.Uint64("cycles", atomic.LoadUint64(&countCycles)),
		zap.Uint64("checks_passed", atomic.LoadUint64(&countPassed)),
		zap.Uint64("checks_failed", atomic.LoadUint64(&countFailed)),
		zap.Uint64("errors", atomic.LoadUint64(&countErrors)))
}
