package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"moneylog/internal/amqp"
	"moneylog/internal/backend"
	"moneylog/internal/backup"
	"moneylog/internal/cli"
	"moneylog/internal/config"
	applog "moneylog/internal/log"
	"moneylog/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(applog.ComponentWorker)

	logger.Info("Starting moneylog-worker")
	if err := run(cfg, logger); err != nil {
		logger.Error("Worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	if cfg.PersistenceBackend != string(backend.SQLitePersistence) {
		return fmt.Errorf("worker reads the shared SQLite store; PERSISTENCE_BACKEND must be sqlite, got %q", cfg.PersistenceBackend)
	}
	if !cfg.EventsEnabled() {
		return errors.New("worker needs AMQP_URL")
	}

	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath, cfg.StorageKey)
	defer repo.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	remote, err := backend.NewFactory(logger).CreateRemote(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("remote backup: %w", err)
	}
	if remote.Cleanup != nil {
		defer remote.Cleanup()
	}
	if remote.Remote == nil {
		return errors.New("worker needs a REMOTE_BACKEND to back up to")
	}

	syncer := backup.NewSyncer(remote.Remote,
		backup.WithDelay(cfg.BackupDebounce),
		backup.WithTimeout(cfg.BackupTimeout),
		backup.WithLogger(logger),
		backup.WithRecorder(repo))
	defer syncer.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("amqp: %w", err)
	}
	defer client.Close()

	backups := worker.NewBackupWorker(repo, syncer, logger)

	// catch up on changes made while the worker was down
	logger.Info("Performing startup sync check...")
	if err := backups.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	err = client.ConsumeLedgerChanged(ctx, backups.HandleLedgerChanged)
	if cfg.FlushOnShutdown && syncer.Flush() {
		logger.Info("Flushed pending backup", applog.FieldOperation, applog.OpShutdown)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume ledger changes: %w", err)
	}
	return nil
}
