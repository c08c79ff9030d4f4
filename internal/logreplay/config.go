package logreplay

import "time"

// Config holds configuration for a replay run.
type Config struct {
	BaseURL string        // Base URL of the service
	File    string        // Text log, one message per line
	Channel string        // Channel id the lines are posted as
	Token   string        // Admin token, only needed for the report
	Report  bool          // Fetch and print the bonus report afterwards
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every line
}

// Message is the payload posted to /messages.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// AckResponse represents the response from message submission.
type AckResponse struct {
	Status string `json:"status"`
}

// Stats holds replay statistics.
type Stats struct {
	Lines     int
	Accepted  int
	Ignored   int
	Failed    int
	Retried   int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
