package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneylog/internal/amqp"
	"moneylog/internal/backend"
	"moneylog/internal/backup"
	"moneylog/internal/cache"
	"moneylog/internal/cli"
	"moneylog/internal/config"
	apphttp "moneylog/internal/http"
	"moneylog/internal/ledger"
	applog "moneylog/internal/log"
	"moneylog/internal/services"
)

const cacheCleanupInterval = time.Minute

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger)

	persist, err := factory.CreatePersistence(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	defer closeQuietly(logger, "persistence", persist.Cleanup)

	remote, err := factory.CreateRemote(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("remote backup: %w", err)
	}
	defer closeQuietly(logger, "remote", remote.Cleanup)

	storeOpts := []ledger.Option{ledger.WithLogger(logger)}

	var (
		syncer  *backup.Syncer
		backups apphttp.Backups
	)
	if remote.Remote != nil {
		syncer = backup.NewSyncer(remote.Remote,
			backup.WithDelay(cfg.BackupDebounce),
			backup.WithTimeout(cfg.BackupTimeout),
			backup.WithLogger(logger))
		defer syncer.Close()
		backups = syncer
		storeOpts = append(storeOpts, ledger.WithBackup(syncer))
	}

	if cfg.EventsEnabled() {
		events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// the ledger works without events; the worker catches up on start
			logger.Warn("AMQP unavailable, change events disabled", applog.FieldError, err)
		} else {
			defer events.Close()
			storeOpts = append(storeOpts, ledger.WithNotifier(events))
		}
	}

	store := ledger.New(persist.Adapter, storeOpts...)
	defer store.Close()

	summaries := services.NewSummaryService(store, cfg.SummaryCacheSize, cfg.SummaryCacheTTL, logger)
	caches := cache.NewManager(logger)
	caches.Register(summaries.Cache())
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Ledger:    store,
		Summaries: summaries,
		Backups:   backups,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return store.Load(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting moneylog server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.PersistenceBackend,
			applog.FieldRemote, cfg.RemoteBackend,
			"events", cfg.EventsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if syncer != nil && cfg.FlushOnShutdown && syncer.Flush() {
			logger.Info("Flushed pending backup", applog.FieldOperation, applog.OpShutdown)
		}
		return err
	})
	return g.Wait()
}

func closeQuietly(logger *applog.Logger, what string, cleanup backend.CleanupFunc) {
	if cleanup == nil {
		return
	}
	if err := cleanup(); err != nil {
		logger.Warn("Cleanup failed", "resource", what, applog.FieldError, err)
	}
}
