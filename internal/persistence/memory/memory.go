// Package memory is an in-process snapshot store for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"moneylog/internal/core"
	"moneylog/internal/persistence"
)

type Store struct {
	mu    sync.Mutex
	data  []byte
	saves int

	// Injected failures, returned through the outcome.
	LoadErr error
	SaveErr error
}

func New() *Store { return &Store{} }

// NewWith starts from an existing snapshot.
func NewWith(snap core.Snapshot) *Store {
	s := &Store{}
	s.data, _ = persistence.Marshal(snap)
	return s
}

func (s *Store) Load(_ context.Context) (core.Snapshot, persistence.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return persistence.LoadBytes(s.data, s.LoadErr)
}

func (s *Store) Save(_ context.Context, snap core.Snapshot) persistence.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return persistence.Outcome{Err: s.SaveErr}
	}
	data, err := persistence.Marshal(snap)
	if err != nil {
		return persistence.Outcome{Err: err}
	}
	s.data = data
	s.saves++
	return persistence.Outcome{Bytes: len(data)}
}

// Saves counts successful saves.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Stored decodes the last saved snapshot.
func (s *Store) Stored() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, _ := persistence.LoadBytes(s.data, nil)
	return snap
}
