// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers an optional YAML file and env vars on top.
// - Load validates value ranges; Validate reports missing required runtime settings.
// - Errors wrap this package's sentinel kinds.
package config

import (
	"time"
	_ "time/tzdata" // zone database for minimal images
)

// Snapshot backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// LogChannelID is the only channel whose messages are ingested.
	LogChannelID string `koanf:"log_channel_id"`

	// AdminTokens are bearer tokens allowed to run privileged commands.
	AdminTokens []string `koanf:"admin_tokens"`

	// CORSAllowedOrigins lists browser origins allowed to call the command API. Empty disables CORS.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// BonusRate is the percentage of total sales paid as bonus, 0-100.
	BonusRate float64 `koanf:"bonus_rate"`

	// Timezone is the IANA zone used for the weekly reset and by-date backfills.
	Timezone string `koanf:"timezone"`

	// ResetWeekday (0 = Sunday), ResetHour and ResetMinute define the weekly reset.
	ResetWeekday int `koanf:"reset_weekday"`
	ResetHour    int `koanf:"reset_hour"`
	ResetMinute  int `koanf:"reset_minute"`

	// SchedulerPollInterval is how often the weekly trigger is checked. Must not exceed one minute.
	SchedulerPollInterval time.Duration `koanf:"scheduler_poll_interval"`

	// SnapshotBackend selects the snapshot store: file or redis.
	SnapshotBackend string `koanf:"snapshot_backend"`

	// SnapshotPath is the JSON document path for the file backend.
	SnapshotPath string `koanf:"snapshot_path"`

	// RedisURL and RedisKey configure the redis backend.
	RedisURL string `koanf:"redis_url"`
	RedisKey string `koanf:"redis_key"`

	// HistoryURL is the paginated history endpoint used by backfills. Empty disables backfill.
	HistoryURL     string        `koanf:"history_url"`
	HistoryToken   string        `koanf:"history_token"`
	HistoryTimeout time.Duration `koanf:"history_timeout"`

	// QueueSize bounds the inbound message queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeMessages skips messages whose id was already processed in the current period.
	DedupeMessages bool `koanf:"dedupe_messages"`

	// DedupeSize bounds the processed-id set; 0 or less is unbounded.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		BonusRate:             20,
		Timezone:              "Europe/Madrid",
		ResetWeekday:          int(time.Sunday),
		ResetHour:             23,
		ResetMinute:           59,
		SchedulerPollInterval: 30 * time.Second,
		SnapshotBackend:       BackendFile,
		SnapshotPath:          "data/ledger.json",
		RedisKey:              "salesbonus:ledger",
		HistoryTimeout:        15 * time.Second,
		QueueSize:             10_000,
		DedupeMessages:        false,
		DedupeSize:            0,
	}
}

// Location resolves Timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
