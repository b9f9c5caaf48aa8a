package worker

import (
	"context"
	"fmt"
	"sync"

	"moneylog/internal/amqp"
	"moneylog/internal/core"
	applog "moneylog/internal/log"
	"moneylog/internal/storage"
)

// SnapshotSource is the shared SQLite state the API process writes.
type SnapshotSource interface {
	LoadRevision(ctx context.Context) (core.Snapshot, int64, error)
	LastBackup(ctx context.Context) (storage.BackupRecord, bool, error)
}

// Scheduler queues debounced remote saves. backup.Syncer implements it.
type Scheduler interface {
	SessionActive() bool
	ScheduleRevision(snap core.Snapshot, revision int64)
}

// BackupWorker turns ledger change events into remote backups. Events only
// carry a revision hint; the snapshot is always re-read from storage.
type BackupWorker struct {
	source    SnapshotSource
	scheduler Scheduler
	logger    *applog.Logger

	mu        sync.Mutex
	scheduled int64
}

func NewBackupWorker(source SnapshotSource, scheduler Scheduler, logger *applog.Logger) *BackupWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &BackupWorker{
		source:    source,
		scheduler: scheduler,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerChanged processes one change event from AMQP
func (w *BackupWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		applog.FieldCommand, msg.Command,
		applog.FieldRevision, msg.Revision)

	_, err := w.scheduleLatest(ctx)
	return err
}

// StartupSyncCheck schedules a backup when storage moved past the last
// recorded successful backup while the worker was down.
func (w *BackupWorker) StartupSyncCheck(ctx context.Context) error {
	rec, ok, err := w.source.LastBackup(ctx)
	if err != nil {
		return fmt.Errorf("read backup state: %w", err)
	}

	_, rev, err := w.source.LoadRevision(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if rev == 0 {
		w.logger.InfoContext(ctx, "No stored ledger found on startup")
		return nil
	}
	if ok && rec.Revision >= rev {
		w.logger.InfoContext(ctx, "Remote backup is up to date",
			applog.FieldRevision, rev,
			"last_sync", rec.LastSyncTime)
		return nil
	}

	w.logger.InfoContext(ctx, "Stored ledger is ahead of the last backup, scheduling",
		applog.FieldRevision, rev,
		"backed_up_revision", rec.Revision)
	_, err = w.scheduleLatest(ctx)
	return err
}

// scheduleLatest reports whether a save was queued.
func (w *BackupWorker) scheduleLatest(ctx context.Context) (bool, error) {
	if !w.scheduler.SessionActive() {
		w.logger.DebugContext(ctx, "No active backup session, skipping")
		return false, nil
	}

	snap, rev, err := w.source.LoadRevision(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if !snap.Settings.AutoBackup {
		w.logger.DebugContext(ctx, "Auto backup disabled, skipping", applog.FieldRevision, rev)
		return false, nil
	}

	w.mu.Lock()
	if rev <= w.scheduled {
		w.mu.Unlock()
		w.logger.DebugContext(ctx, "Revision already scheduled", applog.FieldRevision, rev)
		return false, nil
	}
	w.scheduled = rev
	w.mu.Unlock()

	w.scheduler.ScheduleRevision(snap, rev)
	w.logger.InfoContext(ctx, "Backup scheduled",
		applog.FieldRevision, rev,
		applog.FieldExpenses, len(snap.Expenses),
		applog.FieldIncome, len(snap.Income))
	return true, nil
}
