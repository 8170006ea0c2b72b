package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/ads"
	"github.com/patrickwarner/adbridge/internal/analytics"
	"github.com/patrickwarner/adbridge/internal/api"
	"github.com/patrickwarner/adbridge/internal/appstate"
	"github.com/patrickwarner/adbridge/internal/config"
	"github.com/patrickwarner/adbridge/internal/db"
	"github.com/patrickwarner/adbridge/internal/observability"
	"github.com/patrickwarner/adbridge/internal/platform"
	"github.com/patrickwarner/adbridge/internal/screen"
	"github.com/patrickwarner/adbridge/internal/sdk"
)

func main() {
	cfg := config.Load()
	if path := os.Getenv("ADBRIDGE_CONFIG"); path != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = fileCfg
	}

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdownTracing()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	probe := platform.FromConfig(cfg.Platform, cfg.ShellUserAgent)
	logger.Info("platform detected",
		zap.String("platform", probe.Platform()),
		zap.Bool("native", probe.IsNative()))

	var banner sdk.BannerSDK
	if probe.IsNative() {
		banner = sdk.NewBridgeClient(cfg.NativeBridgeURL, cfg.NativeBridgeTimeout, logger, metricsRegistry)
	}

	opts := []ads.Option{ads.WithLogger(logger), ads.WithMetrics(metricsRegistry)}

	var store *db.RedisStore
	if cfg.RedisAddr != "" {
		var err error
		store, err = db.InitRedis(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer store.Close()
		if snap, ok, err := store.LoadSnapshot(ctx); err != nil {
			logger.Warn("failed to read previous banner state", zap.Error(err))
		} else if ok {
			// informational only: the SDK does not survive a restart of the shell
			logger.Info("previous banner state",
				zap.Stringer("phase", snap.State.Phase),
				zap.String("last_op", snap.LastOp),
				zap.Time("updated_at", snap.UpdatedAt))
		}
		opts = append(opts, ads.WithRecorder(store))
	}

	var analyticsSvc *analytics.Analytics
	if cfg.ClickHouseDSN != "" {
		var err error
		analyticsSvc, err = analytics.InitClickHouse(cfg.ClickHouseDSN, logger)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer analyticsSvc.Close()
		opts = append(opts, ads.WithRecorder(analyticsSvc))
	}

	var pg *db.Postgres
	if cfg.PostgresDSN != "" {
		var err error
		pg, err = db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer pg.Close()
	}

	coordinator := ads.New(probe, banner, opts...)
	// Initialization happens once when the app starts; failures are logged
	// and the first show retries it.
	_ = coordinator.Initialize(ctx)

	hub := appstate.NewHub(logger, metricsRegistry)
	if store != nil {
		relay := appstate.NewRedisRelay(store.Client, cfg.AppStateChannel, hub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("app state relay stopped", zap.Error(err))
			}
		}()
	}

	screenOpts := screen.Options{
		ShowDelay:      cfg.ShowDelay,
		RetiredScreens: cfg.RetiredScreens,
		Logger:         logger,
		Metrics:        metricsRegistry,
		OnChange: func(screenID string, visible bool) {
			logger.Debug("placeholder visibility",
				zap.String("screen_id", screenID),
				zap.Bool("visible", visible))
		},
	}
	if pg != nil {
		screenOpts.Journal = pg
	}
	screens := screen.NewRegistry(coordinator, hub, screenOpts)

	if cfg.TokenSecret == "" {
		logger.Warn("TOKEN_SECRET is empty; screen handles are signed with an empty key")
	}
	srvDeps := api.NewServer(logger, coordinator, hub, screens, []byte(cfg.TokenSecret), cfg.TokenTTL, metricsRegistry)
	srvDeps.Store = store
	srvDeps.PG = pg
	if analyticsSvc != nil {
		srvDeps.Analytics = analyticsSvc
	}

	r := srvDeps.Router()
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, cfg.ServiceName),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("adbridge running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	// screens still mounted at exit take the banner down with them
	screens.UnmountAll(shutdownCtx)

	return nil
}
