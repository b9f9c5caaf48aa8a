// Package memory is an in-process backup remote used by tests and the
// "memory" remote backend.
package memory

import (
	"context"
	"sync"
	"time"

	"moneylog/internal/backup"
	"moneylog/internal/core"
)

type Remote struct {
	mu       sync.Mutex
	data     []byte
	modified time.Time
	saves    int
	active   bool
	now      func() time.Time

	// SaveErr and LoadErr are returned by the next calls when set.
	SaveErr error
	LoadErr error
	// SaveDelay and LoadDelay simulate a slow transfer.
	SaveDelay time.Duration
	LoadDelay time.Duration
}

var _ backup.Remote = (*Remote)(nil)

func New() *Remote {
	return &Remote{active: true, now: time.Now}
}

func (r *Remote) Name() string { return "memory" }

func (r *Remote) SessionActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SetActive opens or closes the simulated session.
func (r *Remote) SetActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = active
}

func (r *Remote) Save(ctx context.Context, snap core.Snapshot) error {
	if r.SaveDelay > 0 {
		select {
		case <-time.After(r.SaveDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.SaveErr != nil {
		return r.SaveErr
	}
	at := r.now()
	data, err := backup.Encode(snap, at)
	if err != nil {
		return err
	}
	r.data = data
	r.modified = at
	r.saves++
	return nil
}

func (r *Remote) Load(ctx context.Context) (*backup.RemoteSnapshot, error) {
	if r.LoadDelay > 0 {
		select {
		case <-time.After(r.LoadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	if r.data == nil {
		return nil, nil
	}
	return backup.Decode(r.data, r.modified)
}

func (r *Remote) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
