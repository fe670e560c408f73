// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/notify"
	"github.com/holomush/warden/internal/observability"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background worker",
		Long: `Run the long-lived worker: the metrics and health endpoints, the
Redis notification worker when Redis is configured, and the periodic
purge of expired tokens.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, cmd)
		},
	}
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (overrides metrics.addr)")
	return cmd
}

func (a *app) runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg := a.cfg
	logger := a.logger

	if err := a.autoMigrate(); err != nil {
		return err
	}

	backend, err := a.deps.BackendFactory(ctx, cfg)
	if err != nil {
		return err
	}
	if backend.Close != nil {
		defer backend.Close()
	}

	notifier, flush, err := a.deps.NotifierFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifierFlushTimeout)
		defer cancel()
		if flushErr := flush(flushCtx); flushErr != nil {
			logger.Warn("flushing notifications", "error", flushErr)
		}
	}()

	svc, err := newService(cfg, backend, notifier, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obs := a.deps.ObservabilityServerFactory(cfg.Metrics.Addr, backend.Ready,
		observability.Registrar(auth.RegisterMetrics),
		observability.Registrar(notify.RegisterMetrics))
	obs.Metrics().BuildInfo.WithLabelValues(version).Set(1)
	obsErrCh, err := obs.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, obsErrCh, "observability")

	var wg sync.WaitGroup
	if cfg.Redis.URL != "" {
		client, err := openRedis(cfg.Redis.URL)
		if err != nil {
			stopServer(obs, logger)
			return err
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("closing redis worker client", "error", closeErr)
			}
		}()
		worker := notify.NewRedisWorker(client, cfg.Redis.Queue, notify.NewLogSender(logger), cfg.RetryConfig(), logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			//nolint:errcheck // Run only returns nil on cancellation
			worker.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		purgeLoop(ctx, svc, obs.Metrics(), cfg.Purge.Interval.Std(), logger)
	}()

	cmd.Println("Warden worker started")
	logger.Info("warden worker ready",
		"metrics_addr", obs.Addr(),
		"redis_queue", cfg.Redis.URL != "",
		"purge_interval", cfg.Purge.Interval.String())

	<-ctx.Done()
	logger.Info("shutting down...")

	wg.Wait()
	stopServer(obs, logger)
	logger.Info("shutdown complete")
	return nil
}

// autoMigrate applies pending migrations when a database is configured
// and database.auto_migrate is on.
func (a *app) autoMigrate() error {
	if !a.cfg.Database.AutoMigrate || a.cfg.Database.URL == "" {
		return nil
	}
	migrator, err := a.deps.MigratorFactory(a.cfg.Database.URL)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			a.logger.Warn("closing migrator", "error", closeErr)
		}
	}()
	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	a.logger.Info("database migrations applied")
	return nil
}

// purgeLoop purges once at start and then every interval until ctx ends.
func purgeLoop(ctx context.Context, svc *auth.Service, metrics *observability.Metrics, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		purgeOnce(ctx, svc, metrics, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func purgeOnce(ctx context.Context, svc *auth.Service, metrics *observability.Metrics, logger *slog.Logger) {
	result, err := svc.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			metrics.PurgeRuns.WithLabelValues("error").Inc()
			logger.WarnContext(ctx, "purging expired tokens failed", "error", err)
		}
		return
	}
	metrics.PurgeRuns.WithLabelValues("success").Inc()
	for kind, n := range result {
		metrics.PurgedTokens.WithLabelValues(string(kind)).Add(float64(n))
	}
}

func stopServer(obs ObservabilityServer, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when the server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
