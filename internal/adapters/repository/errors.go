package repository

import "errors"

// Sentinel errors for snapshot storage.
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrCorruptSnapshot  = errors.New("snapshot is corrupt")
	ErrUnknownBackend   = errors.New("unknown snapshot backend")
)
