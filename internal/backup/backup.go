// Package backup mirrors the ledger snapshot to a remote store. Saves are
// debounced and best-effort: their outcome is reported through Status and
// never affects the local ledger.
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moneylog/internal/core"
	"moneylog/internal/exchange"
)

var (
	ErrNoSession = errors.New("no active remote backup session")
	ErrNoBackup  = errors.New("no remote backup found")
)

// RemoteSnapshot is a snapshot read back from a remote with the time the
// remote copy was last written.
type RemoteSnapshot struct {
	Data         core.Snapshot `json:"data"`
	ModifiedTime time.Time     `json:"modifiedTime"`
}

// Remote is a third-party store holding one snapshot.
type Remote interface {
	Name() string
	SessionActive() bool
	Save(ctx context.Context, snap core.Snapshot) error
	// Load returns nil, nil when nothing has been backed up yet.
	Load(ctx context.Context) (*RemoteSnapshot, error)
}

// Status is what the UI shows about remote sync.
type Status struct {
	Remote       string     `json:"remote"`
	Active       bool       `json:"active"`
	IsSyncing    bool       `json:"isSyncing"`
	Pending      bool       `json:"pending"`
	LastSyncTime *time.Time `json:"lastSyncTime"`
	SyncError    string     `json:"syncError,omitempty"`
}

// Encode renders snap in the same document format as a user export.
func Encode(snap core.Snapshot, at time.Time) ([]byte, error) {
	return exchange.Encode(snap, at)
}

// Decode parses a remote document, applying the import validation.
func Decode(data []byte, modified time.Time) (*RemoteSnapshot, error) {
	snap, err := exchange.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode remote backup: %w", err)
	}
	return &RemoteSnapshot{Data: snap, ModifiedTime: modified}, nil
}
