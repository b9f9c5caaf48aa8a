package file

import (
	"context"
	"os"
	"testing"

	"moneylog/internal/core"
)

func TestStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	snap, out := s.Load(ctx)
	if out.Err != nil || !out.Defaulted || len(snap.Expenses) != 0 {
		t.Fatalf("first load should default cleanly, got %+v %+v", out, snap)
	}

	snap.Income = append(snap.Income, core.IncomeRecord{
		ID: "i1", Date: core.NewDate(2024, 1, 5), Amount: core.MustMoney("1500"), Source: "salary",
	})
	snap.SetupComplete = true
	if out := s.Save(ctx, snap); !out.OK() || out.Bytes == 0 {
		t.Fatalf("save failed: %+v", out)
	}

	got, out := s.Load(ctx)
	if out.Err != nil || out.Defaulted {
		t.Fatalf("load failed: %+v", out)
	}
	if len(got.Income) != 1 || !got.Income[0].Amount.Equal(core.MustMoney("1500")) || !got.SetupComplete {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestStoreCorruptFileDefaults(t *testing.T) {
	s, err := New(t.TempDir(), "ledger")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := os.WriteFile(s.Path(), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, out := s.Load(context.Background())
	if out.Err == nil || !out.Defaulted {
		t.Fatalf("expected defaulted outcome with error, got %+v", out)
	}
	if snap.Settings.Currency != core.DefaultCurrency {
		t.Fatalf("expected default snapshot, got %+v", snap)
	}
}

func TestStoreCancelledContext(t *testing.T) {
	s, err := New(t.TempDir(), "ledger")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if out := s.Save(ctx, core.EmptySnapshot()); out.OK() {
		t.Fatal("save with cancelled context should report an error")
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Fatal("nothing should be written")
	}
}
