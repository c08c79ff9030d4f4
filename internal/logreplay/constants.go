package logreplay

import "time"

// Retry policy for backpressure (429) responses.
const (
	maxRetries     = 5
	initialBackoff = 50 * time.Millisecond
)

// Scanner limit for one log line.
const maxLineBytes = 1 << 20
