// Package ledger owns the in-memory snapshot and is its only writer.
//
// Every command builds a new snapshot and swaps it in atomically; readers
// get the value current at the time of the call and must treat it as
// read-only. After each change the snapshot is written through the
// persistence adapter and, when auto-backup is on and a remote session is
// active, a debounced remote backup is scheduled.
package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"moneylog/internal/core"
	"moneylog/internal/exchange"
	applog "moneylog/internal/log"
	"moneylog/internal/persistence"
)

// State is the store lifecycle. It moves from Loading to Ready once.
type State int32

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

var (
	ErrNotReady      = errors.New("ledger is not loaded yet")
	ErrAlreadyLoaded = errors.New("ledger already loaded")
)

// BackupScheduler is the remote backup as seen by the store.
type BackupScheduler interface {
	SessionActive() bool
	Schedule(snap core.Snapshot)
	Cancel()
}

// ChangeNotifier is told about every committed change. Failures are logged
// and never undo the change.
type ChangeNotifier interface {
	LedgerChanged(ctx context.Context, ev ChangeEvent) error
}

// ChangeEvent describes one committed command.
type ChangeEvent struct {
	Revision uint64    `json:"revision"`
	Command  string    `json:"command"`
	Expenses int       `json:"expenses"`
	Income   int       `json:"income"`
	At       time.Time `json:"at"`
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDFunc(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(applog.ComponentLedger) }
}

func WithBackup(b BackupScheduler) Option {
	return func(s *Store) { s.backup = b }
}

func WithNotifier(n ChangeNotifier) Option {
	return func(s *Store) { s.notifier = n }
}

type Store struct {
	adapter  persistence.Adapter
	backup   BackupScheduler
	notifier ChangeNotifier
	logger   *applog.Logger
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex // serializes commands
	state    atomic.Int32
	snap     atomic.Pointer[core.Snapshot]
	revision atomic.Uint64
	ready    chan struct{}
}

func New(adapter persistence.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter: adapter,
		logger:  applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentLedger),
		now:     time.Now,
		newID:   uuid.NewString,
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := core.EmptySnapshot()
	s.snap.Store(&empty)
	return s
}

// Load reads the persisted snapshot and makes the store Ready. A failed read
// is logged and the store starts from the empty snapshot.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == Ready {
		return ErrAlreadyLoaded
	}

	snap, out := s.adapter.Load(ctx)
	if out.Err != nil {
		s.logger.WarnContext(ctx, "Failed to load snapshot, starting empty",
			applog.FieldError, out.Err, applog.FieldOperation, applog.OpLoad)
	}
	snap = snap.Normalize()
	s.snap.Store(&snap)
	s.state.Store(int32(Ready))
	close(s.ready)

	s.logger.InfoContext(ctx, "Ledger loaded",
		applog.FieldExpenses, len(snap.Expenses),
		applog.FieldIncome, len(snap.Income),
		applog.FieldBytes, out.Bytes,
		"defaulted", out.Defaulted)
	return nil
}

func (s *Store) State() State { return State(s.state.Load()) }

// WaitReady blocks until Load has completed or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (s *Store) Snapshot() (core.Snapshot, error) {
	if s.State() != Ready {
		return core.Snapshot{}, ErrNotReady
	}
	return *s.snap.Load(), nil
}

// Revision counts committed changes since Load.
func (s *Store) Revision() uint64 { return s.revision.Load() }

// Close drops any pending remote backup.
func (s *Store) Close() {
	if s.backup != nil {
		s.backup.Cancel()
	}
}

// Export encodes the current snapshot as a backup file.
func (s *Store) Export() ([]byte, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return exchange.Encode(snap, s.now())
}

// mutate applies fn to the current snapshot. When fn reports no change the
// snapshot, revision and persisted data are left untouched.
func (s *Store) mutate(ctx context.Context, cmd string, fn func(cur core.Snapshot) (core.Snapshot, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Ready {
		return ErrNotReady
	}
	prev := *s.snap.Load()
	next, changed := fn(prev)
	if !changed {
		s.logger.DebugContext(ctx, "Command left ledger unchanged", applog.FieldCommand, cmd)
		return nil
	}
	// any command that turns auto-backup off drops the pending save
	if s.backup != nil && prev.Settings.AutoBackup && !next.Settings.AutoBackup {
		s.backup.Cancel()
	}
	s.snap.Store(&next)
	rev := s.revision.Add(1)
	s.afterCommit(ctx, cmd, rev, next)
	return nil
}

func (s *Store) afterCommit(ctx context.Context, cmd string, rev uint64, snap core.Snapshot) {
	fields := applog.NewFields().WithMutation(cmd, rev, len(snap.Expenses), len(snap.Income))

	if out := s.adapter.Save(ctx, snap); out.Err != nil {
		s.logger.WarnContext(ctx, "Failed to save snapshot",
			fields.WithError(out.Err).WithOperation(applog.OpSave).ToSlice()...)
	} else {
		s.logger.DebugContext(ctx, "Snapshot saved", append(fields.ToSlice(), applog.FieldBytes, out.Bytes)...)
	}

	if s.backup != nil && snap.Settings.AutoBackup && s.backup.SessionActive() {
		s.backup.Schedule(snap)
	}

	if s.notifier != nil {
		ev := ChangeEvent{
			Revision: rev,
			Command:  cmd,
			Expenses: len(snap.Expenses),
			Income:   len(snap.Income),
			At:       s.now(),
		}
		if err := s.notifier.LedgerChanged(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish ledger change",
				applog.FieldCommand, cmd, applog.FieldRevision, rev, applog.FieldError, err)
		}
	}
}

// AddExpense appends a new expense with a fresh id and creation time.
// Fields are trusted to have been validated by the caller.
func (s *Store) AddExpense(ctx context.Context, in NewExpense) (core.ExpenseRecord, error) {
	var rec core.ExpenseRecord
	err := s.mutate(ctx, CmdAddExpense, func(cur core.Snapshot) (core.Snapshot, bool) {
		rec = in.Record(s.newID(), s.now())
		cur.Expenses = appendCopy(cur.Expenses, rec)
		return cur, true
	})
	return rec, err
}

// UpdateExpense merges patch into the expense with id. found is false and
// nothing changes when no expense matches.
func (s *Store) UpdateExpense(ctx context.Context, id string, patch ExpensePatch) (rec core.ExpenseRecord, found bool, err error) {
	err = s.mutate(ctx, CmdUpdateExpense, func(cur core.Snapshot) (core.Snapshot, bool) {
		i := cur.ExpenseIndex(id)
		if i < 0 {
			return cur, false
		}
		found = true
		old := cur.Expenses[i]
		rec = patch.Apply(old)
		rec.ID = old.ID
		if sameExpense(old, rec) {
			return cur, false
		}
		cur.Expenses = replaceAt(cur.Expenses, i, rec)
		return cur, true
	})
	return rec, found, err
}

func (s *Store) DeleteExpense(ctx context.Context, id string) (found bool, err error) {
	err = s.mutate(ctx, CmdDeleteExpense, func(cur core.Snapshot) (core.Snapshot, bool) {
		i := cur.ExpenseIndex(id)
		if i < 0 {
			return cur, false
		}
		found = true
		cur.Expenses = removeAt(cur.Expenses, i)
		return cur, true
	})
	return found, err
}

func (s *Store) AddIncome(ctx context.Context, in NewIncome) (core.IncomeRecord, error) {
	var rec core.IncomeRecord
	err := s.mutate(ctx, CmdAddIncome, func(cur core.Snapshot) (core.Snapshot, bool) {
		rec = in.Record(s.newID())
		cur.Income = appendCopy(cur.Income, rec)
		return cur, true
	})
	return rec, err
}

func (s *Store) UpdateIncome(ctx context.Context, id string, patch IncomePatch) (rec core.IncomeRecord, found bool, err error) {
	err = s.mutate(ctx, CmdUpdateIncome, func(cur core.Snapshot) (core.Snapshot, bool) {
		i := cur.IncomeIndex(id)
		if i < 0 {
			return cur, false
		}
		found = true
		old := cur.Income[i]
		rec = patch.Apply(old)
		rec.ID = old.ID
		if sameIncome(old, rec) {
			return cur, false
		}
		cur.Income = replaceAt(cur.Income, i, rec)
		return cur, true
	})
	return rec, found, err
}

func (s *Store) DeleteIncome(ctx context.Context, id string) (found bool, err error) {
	err = s.mutate(ctx, CmdDeleteIncome, func(cur core.Snapshot) (core.Snapshot, bool) {
		i := cur.IncomeIndex(id)
		if i < 0 {
			return cur, false
		}
		found = true
		cur.Income = removeAt(cur.Income, i)
		return cur, true
	})
	return found, err
}

// SetBudget upserts the monthly limit for category. A zero amount is stored
// as an explicit zero; use RemoveBudget to clear a budget.
func (s *Store) SetBudget(ctx context.Context, category string, amount core.Money) error {
	return s.mutate(ctx, CmdSetBudget, func(cur core.Snapshot) (core.Snapshot, bool) {
		if old, ok := cur.Budgets[category]; ok && old.Equal(amount) {
			return cur, false
		}
		budgets := cur.Budgets.Clone()
		budgets[category] = amount
		cur.Budgets = budgets
		return cur, true
	})
}

func (s *Store) RemoveBudget(ctx context.Context, category string) (found bool, err error) {
	err = s.mutate(ctx, CmdRemoveBudget, func(cur core.Snapshot) (core.Snapshot, bool) {
		if _, ok := cur.Budgets[category]; !ok {
			return cur, false
		}
		found = true
		budgets := cur.Budgets.Clone()
		delete(budgets, category)
		cur.Budgets = budgets
		return cur, true
	})
	return found, err
}

// AddCustomCategories appends the categories whose id is not already in the
// custom list, dropping duplicates within cats too. It returns those added.
func (s *Store) AddCustomCategories(ctx context.Context, cats []core.Category) ([]core.Category, error) {
	var added []core.Category
	err := s.mutate(ctx, CmdAddCustomCategories, func(cur core.Snapshot) (core.Snapshot, bool) {
		added = added[:0]
		seen := make(map[string]bool, len(cur.CustomCategories)+len(cats))
		for _, c := range cur.CustomCategories {
			seen[c.ID] = true
		}
		for _, c := range cats {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			added = append(added, c)
		}
		if len(added) == 0 {
			return cur, false
		}
		cur.CustomCategories = appendCopy(cur.CustomCategories, added...)
		return cur, true
	})
	return added, err
}

// RemoveCustomCategory removes the category only; expenses keep its id.
func (s *Store) RemoveCustomCategory(ctx context.Context, id string) (found bool, err error) {
	err = s.mutate(ctx, CmdRemoveCustomCategory, func(cur core.Snapshot) (core.Snapshot, bool) {
		for i, c := range cur.CustomCategories {
			if c.ID == id {
				found = true
				cur.CustomCategories = removeAt(cur.CustomCategories, i)
				return cur, true
			}
		}
		return cur, false
	})
	return found, err
}

func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (core.Settings, error) {
	var settings core.Settings
	err := s.mutate(ctx, CmdUpdateSettings, func(cur core.Snapshot) (core.Snapshot, bool) {
		settings = patch.Apply(cur.Settings)
		if settings == cur.Settings {
			return cur, false
		}
		cur.Settings = settings
		return cur, true
	})
	return settings, err
}

// ImportSnapshot replaces all data with snap and marks setup complete.
// Records with an empty or repeated id get a fresh one.
func (s *Store) ImportSnapshot(ctx context.Context, snap core.Snapshot) error {
	next := snap.Clone()
	next.SetupComplete = true
	return s.mutate(ctx, CmdImportSnapshot, func(core.Snapshot) (core.Snapshot, bool) {
		seen := make(map[string]bool, len(next.Expenses)+len(next.Income))
		for i := range next.Expenses {
			next.Expenses[i].ID = s.uniqueID(next.Expenses[i].ID, seen)
		}
		for i := range next.Income {
			next.Income[i].ID = s.uniqueID(next.Income[i].ID, seen)
		}
		return next, true
	})
}

func (s *Store) uniqueID(id string, seen map[string]bool) string {
	for id == "" || seen[id] {
		id = s.newID()
	}
	seen[id] = true
	return id
}

// ImportDocument decodes an export file and imports it. A malformed file is
// rejected with exchange.ErrInvalidFormat and the ledger is left as it was.
func (s *Store) ImportDocument(ctx context.Context, data []byte) error {
	if s.State() != Ready {
		return ErrNotReady
	}
	snap, err := exchange.Decode(data)
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected import",
			applog.FieldOperation, applog.OpImport, applog.FieldError, err)
		return err
	}
	return s.ImportSnapshot(ctx, snap)
}

// ClearAll resets to the empty first-run snapshot.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, CmdClearAll, func(core.Snapshot) (core.Snapshot, bool) {
		return core.EmptySnapshot(), true
	})
}

func (s *Store) CompleteSetup(ctx context.Context) error {
	return s.mutate(ctx, CmdCompleteSetup, func(cur core.Snapshot) (core.Snapshot, bool) {
		if cur.SetupComplete {
			return cur, false
		}
		cur.SetupComplete = true
		return cur, true
	})
}

// Slice helpers never write into the backing array of their input, which
// may be shared with snapshots handed out earlier.

func appendCopy[T any](s []T, items ...T) []T {
	out := make([]T, 0, len(s)+len(items))
	out = append(out, s...)
	return append(out, items...)
}

func replaceAt[T any](s []T, i int, v T) []T {
	out := append([]T(nil), s...)
	out[i] = v
	return out
}

func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
