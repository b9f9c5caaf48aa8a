package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"moneylog/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "moneylog.db"), "")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	snap, out := repo.Load(ctx)
	if out.Err != nil || !out.Defaulted {
		t.Fatalf("empty db should default, got %+v", out)
	}
	if rev, err := repo.Revision(ctx); err != nil || rev != 0 {
		t.Fatalf("revision = %d, %v", rev, err)
	}

	snap.Expenses = append(snap.Expenses, core.ExpenseRecord{
		ID: "e1", Date: core.NewDate(2024, 3, 15), Amount: core.MustMoney("50"), Category: "food",
	})
	snap.Budgets["food"] = core.MustMoney("200")
	for i := 0; i < 2; i++ {
		if out := repo.Save(ctx, snap); !out.OK() {
			t.Fatalf("save %d: %v", i, out.Err)
		}
	}

	got, rev, err := repo.LoadRevision(ctx)
	if err != nil {
		t.Fatalf("load revision: %v", err)
	}
	if rev != 2 {
		t.Fatalf("revision = %d, want 2", rev)
	}
	if len(got.Expenses) != 1 || !got.Budgets["food"].Equal(core.MustMoney("200")) {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestRecordBackup(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, ok, err := repo.LastBackup(ctx); err != nil || ok {
		t.Fatalf("expected no backup record, got ok=%v err=%v", ok, err)
	}

	synced := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	if err := repo.RecordBackup(ctx, 3, synced, nil); err != nil {
		t.Fatalf("record success: %v", err)
	}
	if err := repo.RecordBackup(ctx, 4, synced.Add(time.Hour), errors.New("token expired")); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	rec, ok, err := repo.LastBackup(ctx)
	if err != nil || !ok {
		t.Fatalf("last backup: ok=%v err=%v", ok, err)
	}
	if !rec.LastSyncTime.Equal(synced) || rec.Revision != 3 {
		t.Fatalf("failure must keep the last successful sync, got %+v", rec)
	}
	if rec.LastError != "token expired" {
		t.Fatalf("last error = %q", rec.LastError)
	}
}
