package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrStopped            = errors.New("service stopped")
	ErrQueueFull          = errors.New("inbound queue full")
	ErrHistoryUnavailable = errors.New("history source not configured")
)
