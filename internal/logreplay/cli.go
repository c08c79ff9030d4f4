package logreplay

import (
	"fmt"
	"io"

	"github.com/okian/salesbonus/pkg/logger"
)

// SetupLogging initializes the global logger writing text to w.
func SetupLogging(w io.Writer, verbose bool) error {
	if err := logger.InitWithFormat("text", w); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Sales Bonus Log Replay
======================

Posts every line of a text log to a running service, in order, as messages of one channel.

Usage:
  go run ./cmd/log-replay -file <path> [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -file string
        Log file to replay, one message per line (required)
  -channel string
        Channel id to post the lines as (must match the service's log_channel_id)
  -token string
        Administrator token, needed with -report
  -report
        Print the bonus report after replaying
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Log every line
  -help
        Show this help message

Examples:
  go run ./cmd/log-replay -file week.log -channel 1234
  go run ./cmd/log-replay -file week.log -channel 1234 -token $ADMIN_TOKEN -report
`)
}
