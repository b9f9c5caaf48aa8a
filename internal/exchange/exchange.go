// Package exchange reads and writes the user-facing backup file.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"moneylog/internal/core"
)

var ErrInvalidFormat = errors.New("invalid backup file format")

// Document is the export file: the snapshot plus when it was written.
type Document struct {
	core.Snapshot
	ExportedAt time.Time `json:"exportedAt"`
}

// FileName is the suggested download name for an export taken on day.
func FileName(day core.Date) string {
	return fmt.Sprintf("moneylog-backup-%s.json", day)
}

// Encode writes snap as an indented export document.
func Encode(snap core.Snapshot, exportedAt time.Time) ([]byte, error) {
	doc := Document{Snapshot: snap.Normalize(), ExportedAt: exportedAt.UTC()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// Decode parses an export document. expenses and income must be present
// and be arrays; everything else is optional and defaulted. exportedAt is
// ignored.
func Decode(data []byte) (core.Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for _, key := range []string{"expenses", "income"} {
		raw, ok := fields[key]
		if !ok {
			return core.Snapshot{}, fmt.Errorf("%w: missing %q", ErrInvalidFormat, key)
		}
		if !isArray(raw) {
			return core.Snapshot{}, fmt.Errorf("%w: %q must be a list", ErrInvalidFormat, key)
		}
	}

	snap := core.EmptySnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return snap.Normalize(), nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
