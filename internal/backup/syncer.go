package backup

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"moneylog/internal/core"
	"moneylog/internal/debounce"
	applog "moneylog/internal/log"
)

const DefaultTimeout = 30 * time.Second

// Recorder persists backup outcomes, e.g. storage.SQLiteRepository.
type Recorder interface {
	RecordBackup(ctx context.Context, revision int64, syncedAt time.Time, syncErr error) error
}

type Option func(*Syncer)

func WithDelay(d time.Duration) Option { return func(s *Syncer) { s.delay = d } }

func WithTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Syncer) { s.logger = l.WithComponent(applog.ComponentBackup) }
}

func WithClock(now func() time.Time) Option { return func(s *Syncer) { s.now = now } }

func WithRecorder(r Recorder) Option { return func(s *Syncer) { s.recorder = r } }

// job is one debounced save.
type job struct {
	snap     core.Snapshot
	revision int64
}

// Syncer owns the debounce timer for one remote. The latest scheduled
// snapshot wins; a save that is already running is not interrupted.
type Syncer struct {
	remote   Remote
	recorder Recorder
	logger   *applog.Logger
	now      func() time.Time
	delay    time.Duration
	timeout  time.Duration

	debouncer *debounce.Debouncer[string, job]
	restores  singleflight.Group

	mu     sync.Mutex
	status Status
	// saveMu keeps saves to the remote strictly one at a time.
	saveMu sync.Mutex
}

// NewSyncer returns a syncer for remote. A nil remote gives a syncer whose
// session is never active.
func NewSyncer(remote Remote, opts ...Option) *Syncer {
	s := &Syncer{
		remote:  remote,
		logger:  applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentBackup),
		now:     time.Now,
		delay:   debounce.DefaultDelay,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.Remote = s.remoteName()
	s.debouncer = debounce.New[string, job](s.delay, func(_ string, j job) {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_ = s.save(ctx, j)
	})
	return s
}

func (s *Syncer) remoteName() string {
	if s.remote == nil {
		return "none"
	}
	return s.remote.Name()
}

func (s *Syncer) SessionActive() bool {
	return s.remote != nil && s.remote.SessionActive()
}

// Schedule queues snap for a save after the quiet window, replacing any
// snapshot already waiting.
func (s *Syncer) Schedule(snap core.Snapshot) {
	s.ScheduleRevision(snap, 0)
}

// ScheduleRevision is Schedule with the ledger revision recorded alongside
// the outcome.
func (s *Syncer) ScheduleRevision(snap core.Snapshot, revision int64) {
	if !s.SessionActive() {
		return
	}
	s.debouncer.Schedule(s.remoteName(), job{snap: snap, revision: revision})
}

// Cancel drops a save that has not started yet.
func (s *Syncer) Cancel() {
	if s.debouncer.Cancel(s.remoteName()) {
		s.logger.Debug("Pending backup cancelled", applog.FieldRemote, s.remoteName())
	}
}

// Pending reports whether a debounced save is waiting to run.
func (s *Syncer) Pending() bool {
	return s.debouncer.Pending(s.remoteName())
}

// SaveNow drops any pending save and writes snap immediately.
func (s *Syncer) SaveNow(ctx context.Context, snap core.Snapshot) error {
	if !s.SessionActive() {
		return ErrNoSession
	}
	s.debouncer.Cancel(s.remoteName())
	return s.save(ctx, job{snap: snap})
}

// Flush runs a pending save now. It reports whether there was one.
func (s *Syncer) Flush() bool {
	return s.debouncer.Flush(s.remoteName())
}

// Restore fetches the remote snapshot. Concurrent calls share one fetch,
// which is bounded by the syncer timeout rather than by any one caller;
// each caller stops waiting when its own ctx is done.
func (s *Syncer) Restore(ctx context.Context) (*RemoteSnapshot, error) {
	if !s.SessionActive() {
		return nil, ErrNoSession
	}
	flight := context.WithoutCancel(ctx)
	ch := s.restores.DoChan(s.remoteName(), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(flight, s.timeout)
		defer cancel()
		return s.remote.Load(loadCtx)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	v, err := res.Val, res.Err
	if err != nil {
		s.logger.WarnContext(ctx, "Restore failed",
			applog.FieldRemote, s.remoteName(), applog.FieldOperation, applog.OpRestore, applog.FieldError, err)
		return nil, err
	}
	rs, _ := v.(*RemoteSnapshot)
	if rs == nil {
		return nil, ErrNoBackup
	}
	return rs, nil
}

func (s *Syncer) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	st.Active = s.SessionActive()
	st.Pending = s.Pending()
	return st
}

// Close drops the pending save and waits for one already running.
func (s *Syncer) Close() {
	s.debouncer.Stop()
}

func (s *Syncer) save(ctx context.Context, j job) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.status.IsSyncing = true
	s.mu.Unlock()

	start := s.now()
	err := s.remote.Save(ctx, j.snap)
	finished := s.now()

	s.mu.Lock()
	s.status.IsSyncing = false
	if err != nil {
		s.status.SyncError = err.Error()
	} else {
		s.status.SyncError = ""
		s.status.LastSyncTime = &finished
	}
	s.mu.Unlock()

	fields := []any{
		applog.FieldRemote, s.remoteName(),
		applog.FieldOperation, applog.OpBackup,
		applog.FieldExpenses, len(j.snap.Expenses),
		applog.FieldIncome, len(j.snap.Income),
		applog.FieldDuration, finished.Sub(start).Milliseconds(),
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Remote backup failed", append(fields, applog.FieldError, err)...)
	} else {
		s.logger.InfoContext(ctx, "Remote backup saved", fields...)
	}

	if s.recorder != nil {
		// a cancelled ctx must not lose the bookkeeping
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := s.recorder.RecordBackup(rctx, j.revision, finished, err); rerr != nil {
			s.logger.WarnContext(ctx, "Failed to record backup outcome", applog.FieldError, rerr)
		}
	}
	return err
}
