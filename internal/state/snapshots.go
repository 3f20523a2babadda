package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSnapshotNotFound is returned when a snapshot id is unknown.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SaveSnapshot stores entries under a new snapshot id.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, label string, entries []Entry) (*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not open")
	}

	snap := &Snapshot{
		ID:         uuid.New().String(),
		Label:      label,
		TakenAt:    time.Now().UTC(),
		EntryCount: len(entries),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, label, taken_at, entry_count)
		VALUES (?, ?, ?, ?)
	`, snap.ID, snap.Label, snap.TakenAt, snap.EntryCount); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_entries (snapshot_id, symbol, unit_id)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, snap.ID, e.Symbol, e.Unit); err != nil {
			return nil, fmt.Errorf("insert entry %s: %w", e.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("snapshot saved", "id", snap.ID, "entries", snap.EntryCount)
	return snap, nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not open")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, taken_at, entry_count FROM snapshots
		ORDER BY taken_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []*Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Label, &snap.TakenAt, &snap.EntryCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

// GetSnapshot returns a snapshot and its entries ordered by symbol.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, []Entry, error) {
	if s.db == nil {
		return nil, nil, fmt.Errorf("database not open")
	}

	var snap Snapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, taken_at, entry_count FROM snapshots WHERE id = ?
	`, id).Scan(&snap.ID, &snap.Label, &snap.TakenAt, &snap.EntryCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, unit_id FROM snapshot_entries
		WHERE snapshot_id = ?
		ORDER BY symbol
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Symbol, &e.Unit); err != nil {
			return nil, nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &snap, entries, nil
}

// Diff compares two entry lists and returns names added, removed or moved
// to another unit in next.
func Diff(prev, next []Entry) (added, removed, moved []Entry) {
	before := make(map[string]string, len(prev))
	for _, e := range prev {
		before[e.Symbol] = e.Unit
	}
	after := make(map[string]string, len(next))
	for _, e := range next {
		after[e.Symbol] = e.Unit
		owner, ok := before[e.Symbol]
		switch {
		case !ok:
			added = append(added, e)
		case owner != e.Unit:
			moved = append(moved, e)
		}
	}
	for _, e := range prev {
		if _, ok := after[e.Symbol]; !ok {
			removed = append(removed, e)
		}
	}
	return added, removed, moved
}
