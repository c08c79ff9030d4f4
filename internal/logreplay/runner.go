// Package logreplay posts a text chat log to a running service, line by line and in order.
package logreplay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/salesbonus/pkg/logger"
)

// ErrInvalidConfig is returned when required flags are missing.
var ErrInvalidConfig = errors.New("invalid replay config")

// ReadLines returns the non-blank lines of r with surrounding whitespace trimmed.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	return lines, nil
}

// Run replays config.File and, when asked, writes the report to out.
func Run(ctx context.Context, config *Config, out io.Writer) (*Stats, error) {
	switch {
	case config.File == "":
		return nil, fmt.Errorf("%w: -file is required", ErrInvalidConfig)
	case config.Channel == "":
		return nil, fmt.Errorf("%w: -channel is required", ErrInvalidConfig)
	case config.Report && config.Token == "":
		return nil, fmt.Errorf("%w: -report needs -token", ErrInvalidConfig)
	}

	f, err := os.Open(config.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, err
	}

	log := logger.Get()
	stats := &Stats{StartTime: time.Now(), Lines: len(lines)}
	log.Info(ctx, "starting log replay",
		logger.String("baseURL", config.BaseURL),
		logger.String("file", config.File),
		logger.String("channel", config.Channel),
		logger.Int("lines", len(lines)))

	client := newHTTPClient(config.BaseURL, config.Token, config.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Ids are stable per file and line, so a service with dedupe on skips a repeated replay.
	prefix := filepath.Base(config.File)
	for i, line := range lines {
		msg := Message{
			ID:        fmt.Sprintf("%s:%d", prefix, i+1),
			ChannelID: config.Channel,
			Content:   line,
		}
		result, retries, err := client.postMessage(ctx, msg)
		stats.Retried += retries
		switch result {
		case resultAccepted:
			stats.Accepted++
		case resultIgnored:
			stats.Ignored++
		default:
			stats.Failed++
			log.Warn(ctx, "line failed", logger.String("id", msg.ID), logger.Error(err))
			if ctx.Err() != nil {
				return stats, fmt.Errorf("replay interrupted: %w", ctx.Err())
			}
		}
		log.Debug(ctx, "line posted", logger.String("id", msg.ID), logger.String("result", result))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "log replay finished",
		logger.Int("accepted", stats.Accepted),
		logger.Int("ignored", stats.Ignored),
		logger.Int("failed", stats.Failed),
		logger.Int("retried", stats.Retried),
		logger.Duration("took", stats.Duration))

	if config.Report {
		report, err := client.fetchReport(ctx)
		if err != nil {
			return stats, fmt.Errorf("report retrieval failed: %w", err)
		}
		_, _ = io.WriteString(out, report)
	}
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
