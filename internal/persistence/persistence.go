// Package persistence defines the local snapshot store the ledger writes
// through after every mutation.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"moneylog/internal/core"
)

// DefaultKey names the stored snapshot when no key is configured.
const DefaultKey = "moneylog-data"

// Outcome reports what a load or save did. Adapters never fail a call;
// problems are carried here and the caller decides whether to log them.
type Outcome struct {
	Err       error
	Bytes     int
	Defaulted bool // load found nothing usable and returned the empty snapshot
}

func (o Outcome) OK() bool { return o.Err == nil }

// Adapter loads and saves the whole snapshot.
type Adapter interface {
	Load(ctx context.Context) (core.Snapshot, Outcome)
	Save(ctx context.Context, snap core.Snapshot) Outcome
}

// Marshal encodes a snapshot in its stored form.
func Marshal(snap core.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap.Normalize())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal decodes stored data over the empty snapshot, so missing keys keep
// their defaults.
func Unmarshal(data []byte) (core.Snapshot, error) {
	snap := core.EmptySnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.EmptySnapshot(), fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap.Normalize(), nil
}

// LoadBytes turns raw stored bytes into a snapshot and its outcome. Empty
// input is a first run, not an error.
func LoadBytes(data []byte, readErr error) (core.Snapshot, Outcome) {
	if readErr != nil {
		return core.EmptySnapshot(), Outcome{Err: readErr, Defaulted: true}
	}
	if len(data) == 0 {
		return core.EmptySnapshot(), Outcome{Defaulted: true}
	}
	snap, err := Unmarshal(data)
	if err != nil {
		return snap, Outcome{Err: err, Bytes: len(data), Defaulted: true}
	}
	return snap, Outcome{Bytes: len(data)}
}
