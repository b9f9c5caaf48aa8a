// Package file stores the snapshot as a JSON document on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"moneylog/internal/core"
	"moneylog/internal/persistence"
)

// Store keeps one snapshot per key at <dir>/<key>.json. Writes go to a temp
// file first and are renamed into place.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(dir, key string) (*Store, error) {
	if key == "" {
		key = persistence.DefaultKey
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: filepath.Join(dir, key+".json")}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) (core.Snapshot, persistence.Outcome) {
	if err := ctx.Err(); err != nil {
		return persistence.LoadBytes(nil, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.LoadBytes(nil, nil)
	}
	if err != nil {
		err = fmt.Errorf("read %s: %w", s.path, err)
	}
	return persistence.LoadBytes(data, err)
}

func (s *Store) Save(ctx context.Context, snap core.Snapshot) persistence.Outcome {
	if err := ctx.Err(); err != nil {
		return persistence.Outcome{Err: err}
	}
	data, err := persistence.Marshal(snap)
	if err != nil {
		return persistence.Outcome{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return persistence.Outcome{Err: fmt.Errorf("create temp file: %w", err)}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return persistence.Outcome{Err: fmt.Errorf("write snapshot: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return persistence.Outcome{Err: fmt.Errorf("close temp file: %w", err)}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return persistence.Outcome{Err: fmt.Errorf("replace snapshot: %w", err)}
	}
	return persistence.Outcome{Bytes: len(data)}
}
