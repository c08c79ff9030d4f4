package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/salesbonus/internal/adapters/history"
	"github.com/okian/salesbonus/internal/adapters/http/api"
	"github.com/okian/salesbonus/internal/adapters/repository"
	service "github.com/okian/salesbonus/internal/app"
	"github.com/okian/salesbonus/internal/config"
	"github.com/okian/salesbonus/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 35 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	svc, closer, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn(ctx, "snapshot backend close failed", logger.Error(err))
		}
	}()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildHandler(cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildService wires the snapshot store and optional history source into a new service.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, io.Closer, error) {
	store, closer, err := repository.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot backend: %w", err)
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithStore(store),
		service.WithChannel(cfg.LogChannelID),
		service.WithBonusRate(cfg.BonusRate),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupe(cfg.DedupeMessages, cfg.DedupeSize),
		service.WithSchedule(time.Weekday(cfg.ResetWeekday), cfg.ResetHour, cfg.ResetMinute, cfg.Location()),
		service.WithPollInterval(cfg.SchedulerPollInterval),
	}
	if cfg.HistoryURL != "" {
		src := history.NewHTTPSource(cfg.HistoryURL, cfg.LogChannelID, cfg.HistoryToken, cfg.HistoryTimeout)
		opts = append(opts, service.WithHistorySource(src))
	} else {
		log.Info(ctx, "history_url not set; backfill disabled")
	}
	return service.New(opts...), closer, nil
}

// buildHandler returns the routed HTTP handler for svc.
func buildHandler(cfg *config.Config, svc *service.Service, log logger.Logger) http.Handler {
	return api.NewServer(svc, svc,
		api.WithAdminTokens(cfg.AdminTokens),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithLocation(cfg.Location()),
		api.WithLogger(log),
	).Routes()
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the queue and employee gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
