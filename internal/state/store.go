// Package state persists export index snapshots in SQLite so index
// contents can be compared across process starts.
package state

import (
	"context"
	"time"
)

// Store is the snapshot persistence contract.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	SaveSnapshot(ctx context.Context, label string, entries []Entry) (*Snapshot, error)
	ListSnapshots(ctx context.Context) ([]*Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*Snapshot, []Entry, error)
}

// Snapshot describes one saved export index.
type Snapshot struct {
	ID         string    `json:"id" yaml:"id"`
	Label      string    `json:"label,omitempty" yaml:"label,omitempty"`
	TakenAt    time.Time `json:"taken_at" yaml:"taken_at"`
	EntryCount int       `json:"entry_count" yaml:"entry_count"`
}

// Entry is one exported name and the unit that owns it.
type Entry struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Unit   string `json:"unit" yaml:"unit"`
}
