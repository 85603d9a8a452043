package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/quoteboard/internal/model"
)

// SnapshotStore is the local ledger of uploaded database snapshots. The
// bucket holds the data; this table only tells us what is there.
type SnapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db, now: time.Now}
}

const snapshotCols = `id, filename, s3_key, size_bytes, status, error_message, completed_at, created_at`

func scanSnapshot(scanner interface{ Scan(...any) error }) (*model.Snapshot, error) {
	var s model.Snapshot
	var failure sql.NullString
	var doneAt sql.NullTime
	if err := scanner.Scan(&s.ID, &s.Filename, &s.ObjectKey, &s.SizeBytes, &s.State, &failure, &doneAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Failure = failure.String
	if doneAt.Valid {
		t := doneAt.Time
		s.DoneAt = &t
	}
	return &s, nil
}

// Create records a pending snapshot that will be uploaded to objectKey.
func (s *SnapshotStore) Create(ctx context.Context, filename, objectKey string) (*model.Snapshot, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO backups (filename, s3_key, status, created_at) VALUES (?, ?, ?, ?)`,
		filename, objectKey, model.SnapshotPending, s.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("snapshot id: %w", err)
	}
	return s.Get(ctx, id)
}

// Get returns nil, nil when no snapshot has the id.
func (s *SnapshotStore) Get(ctx context.Context, id int64) (*model.Snapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, `SELECT `+snapshotCols+` FROM backups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %d: %w", id, err)
	}
	return snap, nil
}

// List returns newest first.
func (s *SnapshotStore) List(ctx context.Context, limit int) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotCols+` FROM backups ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// SetState moves a snapshot to state. failure is stored only when non-empty.
func (s *SnapshotStore) SetState(ctx context.Context, id int64, state model.SnapshotState, failure string) error {
	var msg sql.NullString
	if failure != "" {
		msg = sql.NullString{String: failure, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE backups SET status = ?, error_message = ? WHERE id = ?`, state, msg, id,
	); err != nil {
		return fmt.Errorf("set snapshot %d state: %w", id, err)
	}
	return nil
}

// MarkDone records a finished upload of size bytes.
func (s *SnapshotStore) MarkDone(ctx context.Context, id, size int64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE backups SET status = ?, size_bytes = ?, error_message = NULL, completed_at = ? WHERE id = ?`,
		model.SnapshotCompleted, size, s.now().UTC(), id,
	); err != nil {
		return fmt.Errorf("mark snapshot %d done: %w", id, err)
	}
	return nil
}

// DeleteOlderThan drops ledger rows created before the cutoff and returns
// their object keys so the caller can remove the objects as well.
func (s *SnapshotStore) DeleteOlderThan(ctx context.Context, before time.Time) ([]string, error) {
	snaps, err := s.List(ctx, -1)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, snap := range snaps {
		if !snap.CreatedAt.Before(before) {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE id = ?`, snap.ID); err != nil {
			return keys, fmt.Errorf("delete snapshot %d: %w", snap.ID, err)
		}
		keys = append(keys, snap.ObjectKey)
	}
	return keys, nil
}
