package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"inspector.onebusaway.org/internal/app"
	"inspector.onebusaway.org/internal/appconf"
	"inspector.onebusaway.org/internal/clock"
	"inspector.onebusaway.org/internal/fetch"
	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/logging"
	"inspector.onebusaway.org/internal/memo"
	"inspector.onebusaway.org/internal/metrics"
	"inspector.onebusaway.org/internal/registry"
	"inspector.onebusaway.org/internal/restapi"
	"inspector.onebusaway.org/internal/webui"
)

const (
	decodeCacheSize = 64
	filterCacheSize = 256
	dbStatsInterval = 15 * time.Second
)

// newLogger writes JSON in production and text elsewhere.
func newLogger(cfg appconf.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return logging.NewStructuredLogger(os.Stdout, level, cfg.Env == appconf.Production)
}

func newClock(cfg appconf.ClockConfig, logger *slog.Logger) (clock.Clock, error) {
	if !cfg.Enabled() {
		return clock.RealClock{}, nil
	}
	var loc *time.Location
	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to load clock location: %w", err)
		}
		loc = l
	}
	logging.LogOperation(logger, "replay_clock_enabled",
		slog.String("env", cfg.ReplayEnv),
		slog.String("file", cfg.ReplayFile))
	return clock.NewReplayClock(cfg.ReplayEnv, cfg.ReplayFile, loc), nil
}

// BuildApplication opens the registry and wires the load pipeline.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	logger := newLogger(cfg)

	c, err := newClock(cfg.Clock, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := registry.Open(ctx, registry.Config{
		Backend: cfg.Registry.Backend,
		URL:     cfg.Registry.URL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open source registry: %w", err)
	}

	m := metrics.NewWithLogger(logger)
	if sqlStore, ok := store.(*registry.SQLStore); ok {
		m.StartDBStatsCollector(sqlStore.DB(), dbStatsInterval)
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:     cfg.Fetch.Timeout,
		MaxBodySize: cfg.Fetch.MaxBodySize,
		Headers:     cfg.Fetch.Headers,
		Retries:     cfg.Fetch.Retries,
	}, logger)

	in := inspector.New(inspector.Config{
		Registry:    store,
		Fetcher:     fetcher,
		DecodeCache: memo.NewLRU(decodeCacheSize, cfg.Snapshots.TTL),
		FilterCache: memo.NewLRU(filterCacheSize, cfg.Snapshots.TTL),
		Snapshots:   memo.NewLRU(cfg.Snapshots.CacheSize, cfg.Snapshots.TTL),
		Clock:       c,
		Metrics:     m,
		Logger:      logger,
	})

	return &app.Application{
		Config:    cfg,
		Logger:    logger,
		Inspector: in,
		Registry:  store,
		Clock:     c,
		Metrics:   m,
	}, nil
}

// CreateServer builds the HTTP server. The caller must Shutdown the
// returned API once the server has stopped.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)
	webUI := &webui.WebUI{Application: coreApp}

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webUI.SetWebUIRoutes(mux)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      api.Middleware(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger.With(slog.String("component", "server"))

	errCh := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting",
			slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logging.LogOperation(logger, "server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	api.Shutdown()
	coreApp.Metrics.Shutdown()
	logging.SafeCloseWithLogging(coreApp.Registry, logger, "source registry")
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logging.LogOperation(logger, "server_stopped")
	return nil
}

// notifyContext is cancelled on SIGINT or SIGTERM.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
