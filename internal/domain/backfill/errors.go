package backfill

import "errors"

var (
	// ErrInvalidRequest is returned when a request sets neither or both of cutoff and limit.
	ErrInvalidRequest = errors.New("backfill needs exactly one of a cutoff date or a message count")
	// ErrInvalidCount is returned for a count outside [MinCount, MaxCount].
	ErrInvalidCount = errors.New("backfill count must be between 1 and 1000")
	// ErrBackfillRunning is returned by Runner.Start while a job is in progress.
	ErrBackfillRunning = errors.New("a backfill is already running")
	// ErrNoProgress is returned by Fetch when the source keeps returning messages already seen.
	ErrNoProgress = errors.New("history source did not advance past the cursor")
)
