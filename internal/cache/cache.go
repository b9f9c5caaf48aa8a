package cache

import (
	"sync"
	"time"

	applog "moneylog/internal/log"
)

// Cache defines a generic cache interface
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, data V)
	Delete(key K)
	Size() int
}

var _ Cache[string, int] = (*LRUCache[string, int])(nil)

// Versioned is an LRU whose entries belong to one source revision. Reading
// or writing under a newer revision drops everything cached for older ones.
type Versioned[K comparable, V any] struct {
	mu       sync.Mutex
	revision uint64
	lru      *LRUCache[K, V]
}

func NewVersioned[K comparable, V any](maxSize int, ttl time.Duration) *Versioned[K, V] {
	return &Versioned[K, V]{lru: NewLRUCache[K, V](maxSize, ttl)}
}

// WithClock replaces the time source, for tests.
func (v *Versioned[K, V]) WithClock(now func() time.Time) *Versioned[K, V] {
	v.lru.WithClock(now)
	return v
}

func (v *Versioned[K, V]) Get(revision uint64, key K) (V, bool) {
	if !v.advance(revision) {
		var zero V
		return zero, false
	}
	return v.lru.Get(key)
}

// Set ignores values computed for a revision older than the current one.
func (v *Versioned[K, V]) Set(revision uint64, key K, data V) {
	if !v.advance(revision) {
		return
	}
	v.lru.Set(key, data)
}

// Revision is the revision the cached entries belong to.
func (v *Versioned[K, V]) Revision() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.revision
}

func (v *Versioned[K, V]) Size() int { return v.lru.Size() }

func (v *Versioned[K, V]) CleanExpired() int { return v.lru.CleanExpired() }

// advance reports false when revision is stale.
func (v *Versioned[K, V]) advance(revision uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case revision < v.revision:
		return false
	case revision > v.revision:
		v.revision = revision
		v.lru.Purge()
	}
	return true
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	logger      *applog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(applog.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// CleanAll runs one cleanup pass and returns the number of entries removed.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
