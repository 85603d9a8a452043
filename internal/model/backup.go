package model

import "time"

// SnapshotState tracks an encrypted database snapshot through upload.
type SnapshotState string

const (
	SnapshotPending   SnapshotState = "pending"
	SnapshotUploading SnapshotState = "uploading"
	SnapshotCompleted SnapshotState = "completed"
	SnapshotFailed    SnapshotState = "failed"
)

// Snapshot is one row of the local backup ledger. ObjectKey is where the
// sealed file lives in the bucket.
type Snapshot struct {
	ID        int64         `json:"id"`
	Filename  string        `json:"filename"`
	ObjectKey string        `json:"object_key"`
	SizeBytes int64         `json:"size_bytes"`
	State     SnapshotState `json:"state"`
	Failure   string        `json:"failure,omitempty"`
	DoneAt    *time.Time    `json:"done_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Restorable reports whether the snapshot finished uploading.
func (s *Snapshot) Restorable() bool {
	return s.State == SnapshotCompleted && s.DoneAt != nil
}
