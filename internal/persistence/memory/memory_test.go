package memory

import (
	"context"
	"errors"
	"testing"

	"moneylog/internal/core"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, out := s.Load(ctx); !out.Defaulted || out.Err != nil {
		t.Fatalf("empty store should default, got %+v", out)
	}

	snap := core.EmptySnapshot()
	snap.Budgets["food"] = core.MustMoney("100")
	if out := s.Save(ctx, snap); !out.OK() {
		t.Fatalf("save: %v", out.Err)
	}
	if s.Saves() != 1 || !s.Stored().Budgets["food"].Equal(core.MustMoney("100")) {
		t.Fatalf("unexpected state after save: %d %+v", s.Saves(), s.Stored())
	}

	s.SaveErr = errors.New("quota exceeded")
	if out := s.Save(ctx, core.EmptySnapshot()); out.OK() {
		t.Fatal("expected injected failure")
	}
	if s.Saves() != 1 || len(s.Stored().Budgets) != 1 {
		t.Fatal("failed save must not change stored data")
	}
}
