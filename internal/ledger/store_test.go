package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"moneylog/internal/backup"
	backupmem "moneylog/internal/backup/memory"
	"moneylog/internal/core"
	"moneylog/internal/exchange"
	applog "moneylog/internal/log"
	"moneylog/internal/persistence/memory"
	"moneylog/internal/report"
)

type fakeBackup struct {
	mu        sync.Mutex
	active    bool
	scheduled []core.Snapshot
	cancels   int
}

func (f *fakeBackup) SessionActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeBackup) Schedule(snap core.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, snap)
}

func (f *fakeBackup) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

type fakeNotifier struct {
	events []ChangeEvent
	err    error
}

func (f *fakeNotifier) LedgerChanged(_ context.Context, ev ChangeEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, adapter *memory.Store, opts ...Option) *Store {
	t.Helper()
	n := 0
	base := []Option{
		WithLogger(applog.Discard()),
		WithClock(func() time.Time { return fixedNow }),
		WithIDFunc(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	}
	s := New(adapter, append(base, opts...)...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func lunch() NewExpense {
	return NewExpense{
		Date:          core.NewDate(2024, 3, 15),
		Amount:        core.MustMoney("50"),
		Category:      "food",
		Description:   "lunch",
		PaymentMethod: "cash",
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), WithLogger(applog.Discard()))

	if s.State() != Loading {
		t.Fatalf("initial state = %v", s.State())
	}
	if _, err := s.Snapshot(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("snapshot before load: %v", err)
	}
	if _, err := s.AddExpense(ctx, lunch()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("command before load: %v", err)
	}

	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.State() != Ready {
		t.Fatalf("state after load = %v", s.State())
	}
	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	if err := s.Load(ctx); !errors.Is(err, ErrAlreadyLoaded) {
		t.Fatalf("second load: %v", err)
	}
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	adapter := memory.New()
	adapter.LoadErr = errors.New("permission denied")
	s := newTestStore(t, adapter)

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Expenses) != 0 || snap.Settings.Currency != core.DefaultCurrency {
		t.Fatalf("expected empty default snapshot, got %+v", snap)
	}
}

func TestLoadRestoresPersisted(t *testing.T) {
	prev := core.EmptySnapshot()
	prev.Budgets["food"] = core.MustMoney("200")
	prev.SetupComplete = true
	s := newTestStore(t, memory.NewWith(prev))

	snap, _ := s.Snapshot()
	if !snap.SetupComplete || !snap.Budgets["food"].Equal(core.MustMoney("200")) {
		t.Fatalf("persisted snapshot not restored: %+v", snap)
	}
}

func TestExpenseCommands(t *testing.T) {
	ctx := context.Background()
	adapter := memory.New()
	s := newTestStore(t, adapter)

	rec, err := s.AddExpense(ctx, lunch())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.ID != "id-1" || !rec.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if adapter.Saves() != 1 || len(adapter.Stored().Expenses) != 1 {
		t.Fatal("add must persist")
	}

	desc := "team lunch"
	amount := core.MustMoney("62.5")
	updated, found, err := s.UpdateExpense(ctx, rec.ID, ExpensePatch{Description: &desc, Amount: &amount})
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	if updated.Description != desc || !updated.Amount.Equal(amount) || updated.Category != "food" || !updated.CreatedAt.Equal(fixedNow) {
		t.Fatalf("patch not merged: %+v", updated)
	}

	found, err = s.DeleteExpense(ctx, rec.ID)
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	snap, _ := s.Snapshot()
	if len(snap.Expenses) != 0 {
		t.Fatalf("expense not deleted: %+v", snap.Expenses)
	}
	if s.Revision() != 3 || adapter.Saves() != 3 {
		t.Fatalf("revision=%d saves=%d", s.Revision(), adapter.Saves())
	}
}

func TestUnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	adapter := memory.New()
	s := newTestStore(t, adapter)
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddIncome(ctx, NewIncome{Date: core.NewDate(2024, 3, 1), Amount: core.MustMoney("10"), Source: "gifts"}); err != nil {
		t.Fatal(err)
	}

	before := s.snap.Load()
	rev, saves := s.Revision(), adapter.Saves()

	desc := "x"
	if _, found, err := s.UpdateExpense(ctx, "missing", ExpensePatch{Description: &desc}); err != nil || found {
		t.Fatalf("update unknown: found=%v err=%v", found, err)
	}
	if found, err := s.DeleteExpense(ctx, "missing"); err != nil || found {
		t.Fatalf("delete unknown: found=%v err=%v", found, err)
	}
	if _, found, err := s.UpdateIncome(ctx, "missing", IncomePatch{Notes: &desc}); err != nil || found {
		t.Fatalf("update income unknown: found=%v err=%v", found, err)
	}
	if found, err := s.DeleteIncome(ctx, "missing"); err != nil || found {
		t.Fatalf("delete income unknown: found=%v err=%v", found, err)
	}
	if found, err := s.RemoveBudget(ctx, "missing"); err != nil || found {
		t.Fatalf("remove unknown budget: found=%v err=%v", found, err)
	}

	if s.snap.Load() != before {
		t.Fatal("no-op commands must keep the same snapshot")
	}
	if s.Revision() != rev || adapter.Saves() != saves {
		t.Fatal("no-op commands must not persist")
	}
}

func TestSnapshotsAreNotMutatedByLaterCommands(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	old, _ := s.Snapshot()

	amount := core.MustMoney("1")
	if _, _, err := s.UpdateExpense(ctx, "id-1", ExpensePatch{Amount: &amount}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBudget(ctx, "food", core.MustMoney("5")); err != nil {
		t.Fatal(err)
	}
	if !old.Expenses[0].Amount.Equal(core.MustMoney("50")) {
		t.Fatal("earlier snapshot was modified in place")
	}
	if _, ok := old.Budgets["food"]; ok {
		t.Fatal("earlier budget map was modified in place")
	}
}

func TestIncomeCommands(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())

	rec, err := s.AddIncome(ctx, NewIncome{Date: core.NewDate(2024, 3, 1), Amount: core.MustMoney("2500"), Source: "salary"})
	if err != nil {
		t.Fatal(err)
	}
	notes := "march"
	updated, found, err := s.UpdateIncome(ctx, rec.ID, IncomePatch{Notes: &notes})
	if err != nil || !found || updated.Notes != notes || updated.Source != "salary" {
		t.Fatalf("update income: %+v found=%v err=%v", updated, found, err)
	}
	if found, err := s.DeleteIncome(ctx, rec.ID); err != nil || !found {
		t.Fatalf("delete income: found=%v err=%v", found, err)
	}
}

func TestBudgets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())

	if err := s.SetBudget(ctx, "food", core.MustMoney("200")); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBudget(ctx, "bills", core.Zero); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	if v, ok := snap.Budgets["bills"]; !ok || !v.IsZero() {
		t.Fatal("zero budget must be stored as an explicit zero")
	}

	rev := s.Revision()
	if err := s.SetBudget(ctx, "food", core.MustMoney("200.00")); err != nil {
		t.Fatal(err)
	}
	if s.Revision() != rev {
		t.Fatal("setting an equal budget should be a no-op")
	}

	if found, err := s.RemoveBudget(ctx, "food"); err != nil || !found {
		t.Fatalf("remove: found=%v err=%v", found, err)
	}
	snap, _ = s.Snapshot()
	if _, ok := snap.Budgets["food"]; ok {
		t.Fatal("removed budget still present")
	}
}

func TestRemoveBudgetClearsProgress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())
	today := core.DateOf(fixedNow)

	if err := s.SetBudget(ctx, "food", core.MustMoney("200")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	progress := report.BudgetProgress(report.MonthlyExpenses(snap.Expenses, today), snap.Budgets)
	if len(progress) != 1 || !progress[0].Spent.Equal(core.MustMoney("50")) {
		t.Fatalf("progress before removal = %+v", progress)
	}

	if found, err := s.RemoveBudget(ctx, "food"); err != nil || !found {
		t.Fatalf("remove: found=%v err=%v", found, err)
	}
	snap, _ = s.Snapshot()
	progress = report.BudgetProgress(report.MonthlyExpenses(snap.Expenses, today), snap.Budgets)
	if progress == nil || len(progress) != 0 {
		t.Fatalf("progress after removal = %#v, want empty list", progress)
	}
}

func TestCustomCategories(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())

	pets := core.Category{ID: "custom-pets", Name: "Pets", Icon: "tag", Color: "#10B981"}
	gym := core.Category{ID: "custom-gym", Name: "Gym", Icon: "tag", Color: "#EF4444"}

	added, err := s.AddCustomCategories(ctx, []core.Category{pets, gym, pets})
	if err != nil || len(added) != 2 {
		t.Fatalf("add: %v %v", added, err)
	}
	added, err = s.AddCustomCategories(ctx, []core.Category{pets})
	if err != nil || len(added) != 0 {
		t.Fatalf("duplicate add: %v %v", added, err)
	}

	if _, err := s.AddExpense(ctx, NewExpense{Date: core.NewDate(2024, 3, 2), Amount: core.MustMoney("9"), Category: pets.ID}); err != nil {
		t.Fatal(err)
	}
	if found, err := s.RemoveCustomCategory(ctx, pets.ID); err != nil || !found {
		t.Fatalf("remove: found=%v err=%v", found, err)
	}
	snap, _ := s.Snapshot()
	if len(snap.CustomCategories) != 1 || snap.CustomCategories[0].ID != gym.ID {
		t.Fatalf("unexpected categories %+v", snap.CustomCategories)
	}
	if snap.Expenses[0].Category != pets.ID {
		t.Fatal("removing a category must not touch expenses")
	}
}

func TestSettingsAndBackupScheduling(t *testing.T) {
	ctx := context.Background()
	backup := &fakeBackup{active: true}
	s := newTestStore(t, memory.New(), WithBackup(backup))

	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	if len(backup.scheduled) != 0 {
		t.Fatal("backup must not be scheduled while auto-backup is off")
	}

	on := true
	settings, err := s.UpdateSettings(ctx, SettingsPatch{AutoBackup: &on})
	if err != nil || !settings.AutoBackup || settings.Currency != core.DefaultCurrency {
		t.Fatalf("update settings: %+v %v", settings, err)
	}
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	if len(backup.scheduled) != 2 || len(backup.scheduled[1].Expenses) != 2 {
		t.Fatalf("expected latest snapshot scheduled, got %d schedules", len(backup.scheduled))
	}

	backup.active = false
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	if len(backup.scheduled) != 2 {
		t.Fatal("backup must not be scheduled without an active session")
	}

	off := false
	if _, err := s.UpdateSettings(ctx, SettingsPatch{AutoBackup: &off}); err != nil {
		t.Fatal(err)
	}
	if backup.cancels != 1 {
		t.Fatalf("disabling auto-backup should cancel the pending save, cancels=%d", backup.cancels)
	}

	s.Close()
	if backup.cancels != 2 {
		t.Fatal("close must cancel the pending save")
	}
}

func TestAutoBackupOffCancelsPendingSave(t *testing.T) {
	ctx := context.Background()
	withAutoBackup := func(on bool) core.Snapshot {
		snap := core.EmptySnapshot()
		snap.Settings.AutoBackup = on
		return snap
	}

	tests := []struct {
		name       string
		run        func(s *Store) error
		wantCancel int
	}{
		{
			name: "settings turn it off",
			run: func(s *Store) error {
				off := false
				_, err := s.UpdateSettings(ctx, SettingsPatch{AutoBackup: &off})
				return err
			},
			wantCancel: 1,
		},
		{
			name:       "clear all",
			run:        func(s *Store) error { return s.ClearAll(ctx) },
			wantCancel: 1,
		},
		{
			name:       "import with auto-backup off",
			run:        func(s *Store) error { return s.ImportSnapshot(ctx, withAutoBackup(false)) },
			wantCancel: 1,
		},
		{
			name:       "import with auto-backup on",
			run:        func(s *Store) error { return s.ImportSnapshot(ctx, withAutoBackup(true)) },
			wantCancel: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackup{active: true}
			s := newTestStore(t, memory.New(), WithBackup(fb))
			on := true
			if _, err := s.UpdateSettings(ctx, SettingsPatch{AutoBackup: &on}); err != nil {
				t.Fatal(err)
			}
			if _, err := s.AddExpense(ctx, lunch()); err != nil {
				t.Fatal(err)
			}

			if err := tt.run(s); err != nil {
				t.Fatal(err)
			}
			if fb.cancels != tt.wantCancel {
				t.Errorf("cancels = %d, want %d", fb.cancels, tt.wantCancel)
			}
		})
	}
}

func TestClearAllDropsScheduledBackup(t *testing.T) {
	ctx := context.Background()
	remote := backupmem.New()
	syncer := backup.NewSyncer(remote, backup.WithDelay(30*time.Millisecond), backup.WithLogger(applog.Discard()))
	defer syncer.Close()
	s := newTestStore(t, memory.New(), WithBackup(syncer))

	on := true
	if _, err := s.UpdateSettings(ctx, SettingsPatch{AutoBackup: &on}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	if !syncer.Pending() {
		t.Fatal("expected a pending backup after the expense")
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if syncer.Pending() {
		t.Fatal("clear all must drop the pending backup")
	}

	time.Sleep(100 * time.Millisecond)
	if remote.Saves() != 0 {
		t.Fatalf("superseded snapshot uploaded, saves = %d", remote.Saves())
	}
}

func TestImportAssignsFreshIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())

	snap := core.EmptySnapshot()
	for _, id := range []string{"", "dup", "dup"} {
		rec := lunch().Record(id, fixedNow)
		snap.Expenses = append(snap.Expenses, rec)
	}
	snap.Income = []core.IncomeRecord{{ID: "dup", Date: core.NewDate(2024, 3, 1), Amount: core.MustMoney("100"), Source: "salary"}}

	if err := s.ImportSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Snapshot()
	seen := map[string]bool{}
	for _, e := range got.Expenses {
		if e.ID == "" || seen[e.ID] {
			t.Fatalf("expense id %q is empty or repeated", e.ID)
		}
		seen[e.ID] = true
	}
	if got.Income[0].ID == "" || seen[got.Income[0].ID] {
		t.Fatalf("income id %q is empty or repeated", got.Income[0].ID)
	}
	if got.Expenses[1].ID != "dup" {
		t.Fatalf("first occurrence should keep its id, got %q", got.Expenses[1].ID)
	}
	if snap.Expenses[0].ID != "" {
		t.Fatal("import must not modify the caller's snapshot")
	}

	if found, err := s.DeleteExpense(ctx, "dup"); err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	got, _ = s.Snapshot()
	if len(got.Expenses) != 2 || got.ExpenseIndex("dup") >= 0 {
		t.Fatalf("delete by id should remove exactly one record: %+v", got.Expenses)
	}
}

func TestImportRejectLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	adapter := memory.New()
	s := newTestStore(t, adapter)
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	before := s.snap.Load()
	saves := adapter.Saves()

	err := s.ImportDocument(ctx, []byte(`{"expenses":"not-an-array","income":[]}`))
	if !errors.Is(err, exchange.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if s.snap.Load() != before || adapter.Saves() != saves {
		t.Fatal("rejected import must leave the ledger untouched")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddIncome(ctx, NewIncome{Date: core.NewDate(2024, 3, 1), Amount: core.MustMoney("2500"), Source: "salary"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBudget(ctx, "food", core.MustMoney("200")); err != nil {
		t.Fatal(err)
	}
	data, err := s.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	original, _ := s.Snapshot()

	other := newTestStore(t, memory.New())
	if err := other.ImportDocument(ctx, data); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, _ := other.Snapshot()
	if !got.SetupComplete {
		t.Fatal("import must mark setup complete")
	}
	if len(got.Expenses) != 1 || !sameExpense(got.Expenses[0], original.Expenses[0]) {
		t.Fatalf("expenses differ: %+v vs %+v", got.Expenses, original.Expenses)
	}
	if len(got.Income) != 1 || !sameIncome(got.Income[0], original.Income[0]) {
		t.Fatalf("income differs: %+v", got.Income)
	}
	if !got.Budgets["food"].Equal(original.Budgets["food"]) || got.Settings != original.Settings {
		t.Fatal("budgets or settings differ")
	}
}

func TestClearAllAndCompleteSetup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())

	if err := s.CompleteSetup(ctx); err != nil {
		t.Fatal(err)
	}
	rev := s.Revision()
	if err := s.CompleteSetup(ctx); err != nil || s.Revision() != rev {
		t.Fatal("completing setup twice should be a no-op")
	}
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	if snap.SetupComplete || len(snap.Expenses) != 0 {
		t.Fatalf("clear must return to first-run state, got %+v", snap)
	}
}

func TestSaveFailureDoesNotBlockCommand(t *testing.T) {
	ctx := context.Background()
	adapter := memory.New()
	s := newTestStore(t, adapter)
	adapter.SaveErr = errors.New("disk full")

	rec, err := s.AddExpense(ctx, lunch())
	if err != nil {
		t.Fatalf("save failures must not surface: %v", err)
	}
	snap, _ := s.Snapshot()
	if len(snap.Expenses) != 1 || snap.Expenses[0].ID != rec.ID {
		t.Fatal("in-memory state must reflect the command")
	}
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	n := &fakeNotifier{err: errors.New("broker down")}
	s := newTestStore(t, memory.New(), WithNotifier(n))

	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatalf("notifier errors must not surface: %v", err)
	}
	if err := s.SetBudget(ctx, "food", core.MustMoney("10")); err != nil {
		t.Fatal(err)
	}
	if len(n.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(n.events))
	}
	ev := n.events[1]
	if ev.Revision != 2 || ev.Command != CmdSetBudget || ev.Expenses != 1 || !ev.At.Equal(fixedNow) {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestConcurrentCommands(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), WithLogger(applog.Discard()))
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddExpense(ctx, lunch()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	snap, _ := s.Snapshot()
	if len(snap.Expenses) != 50 || s.Revision() != 50 {
		t.Fatalf("expected 50 expenses, got %d (rev %d)", len(snap.Expenses), s.Revision())
	}
	ids := map[string]bool{}
	for _, e := range snap.Expenses {
		ids[e.ID] = true
	}
	if len(ids) != 50 {
		t.Fatal("ids must be unique")
	}
}
