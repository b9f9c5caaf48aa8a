// Package storage keeps the ledger snapshot and backup bookkeeping in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"moneylog/internal/core"
	"moneylog/internal/persistence"
)

const timeLayout = time.RFC3339Nano

// BackupRecord is the last known outcome of a remote backup.
type BackupRecord struct {
	Revision     int64
	LastSyncTime time.Time
	LastError    string
	UpdatedAt    time.Time
}

// SQLiteRepository stores one snapshot row per key. Every save bumps the
// row's revision so readers in other processes can tell a change happened.
type SQLiteRepository struct {
	db  *sql.DB
	key string
	now func() time.Time
}

func NewSQLiteRepository(dbPath, key string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if key == "" {
		key = persistence.DefaultKey
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, key: key, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Key() string { return r.key }

// Load implements persistence.Adapter.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Snapshot, persistence.Outcome) {
	data, _, err := r.read(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.LoadBytes(nil, nil)
	}
	return persistence.LoadBytes(data, err)
}

// Save implements persistence.Adapter.
func (r *SQLiteRepository) Save(ctx context.Context, snap core.Snapshot) persistence.Outcome {
	data, err := persistence.Marshal(snap)
	if err != nil {
		return persistence.Outcome{Err: err}
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, revision, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			revision = snapshots.revision + 1,
			updated_at = excluded.updated_at`,
		r.key, string(data), r.now().UTC().Format(timeLayout))
	if err != nil {
		return persistence.Outcome{Err: fmt.Errorf("save snapshot: %w", err)}
	}
	return persistence.Outcome{Bytes: len(data)}
}

// Revision returns the number of saves so far, 0 when nothing was stored.
func (r *SQLiteRepository) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := r.db.QueryRowContext(ctx, `SELECT revision FROM snapshots WHERE key = ?`, r.key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

// LoadRevision returns the stored snapshot with the revision it was read at.
func (r *SQLiteRepository) LoadRevision(ctx context.Context) (core.Snapshot, int64, error) {
	data, rev, err := r.read(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.EmptySnapshot(), 0, nil
	}
	if err != nil {
		return core.EmptySnapshot(), 0, err
	}
	snap, err := persistence.Unmarshal(data)
	if err != nil {
		return core.EmptySnapshot(), rev, err
	}
	return snap, rev, nil
}

func (r *SQLiteRepository) read(ctx context.Context) ([]byte, int64, error) {
	var (
		data string
		rev  int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT data, revision FROM snapshots WHERE key = ?`, r.key).Scan(&data, &rev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("read snapshot: %w", err)
	}
	return []byte(data), rev, nil
}

// RecordBackup stores the outcome of a backup attempt. A failed attempt keeps
// the previous successful sync time.
func (r *SQLiteRepository) RecordBackup(ctx context.Context, revision int64, syncedAt time.Time, syncErr error) error {
	var (
		lastSync any
		errText  string
	)
	if syncErr != nil {
		errText = syncErr.Error()
	} else {
		lastSync = syncedAt.UTC().Format(timeLayout)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backup_state (key, revision, last_sync_time, last_error, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			revision = CASE WHEN excluded.last_sync_time IS NULL THEN backup_state.revision ELSE excluded.revision END,
			last_sync_time = COALESCE(excluded.last_sync_time, backup_state.last_sync_time),
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`,
		r.key, revision, lastSync, errText, r.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record backup: %w", err)
	}
	return nil
}

// LastBackup returns the stored backup outcome; ok is false if none exists.
func (r *SQLiteRepository) LastBackup(ctx context.Context) (BackupRecord, bool, error) {
	var (
		rec       BackupRecord
		lastSync  sql.NullString
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT revision, last_sync_time, last_error, updated_at FROM backup_state WHERE key = ?`, r.key).
		Scan(&rec.Revision, &lastSync, &rec.LastError, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BackupRecord{}, false, nil
	}
	if err != nil {
		return BackupRecord{}, false, fmt.Errorf("read backup state: %w", err)
	}
	if lastSync.Valid {
		if rec.LastSyncTime, err = time.Parse(timeLayout, lastSync.String); err != nil {
			return BackupRecord{}, false, fmt.Errorf("parse last sync time: %w", err)
		}
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return BackupRecord{}, false, fmt.Errorf("parse updated_at: %w", err)
	}
	return rec, true, nil
}
