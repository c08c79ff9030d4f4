package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix   = "SALESBONUS_"
	envFileVar  = "SALESBONUS_CONFIG"
	maxPollTick = time.Minute
)

// listKeys are comma separated when they come from the environment.
var listKeys = map[string]bool{ //nolint:gochecknoglobals // static lookup table
	"admin_tokens":         true,
	"cors_allowed_origins": true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if SALESBONUS_CONFIG is set
//  3. env (prefix SALESBONUS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SALESBONUS_BONUS_RATE -> bonus_rate. Underscores are kept to match the flat koanf tags.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// check validates value ranges. It does not require the runtime-only settings.
func (c *Config) check() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BonusRate < 0 || c.BonusRate > 100:
		return fmt.Errorf("%w: bonus_rate must be between 0 and 100, got %v", ErrInvalidConfig, c.BonusRate)
	case c.ResetWeekday < 0 || c.ResetWeekday > 6:
		return fmt.Errorf("%w: reset_weekday must be 0-6, got %d", ErrInvalidConfig, c.ResetWeekday)
	case c.ResetHour < 0 || c.ResetHour > 23:
		return fmt.Errorf("%w: reset_hour must be 0-23, got %d", ErrInvalidConfig, c.ResetHour)
	case c.ResetMinute < 0 || c.ResetMinute > 59:
		return fmt.Errorf("%w: reset_minute must be 0-59, got %d", ErrInvalidConfig, c.ResetMinute)
	case c.SchedulerPollInterval <= 0 || c.SchedulerPollInterval > maxPollTick:
		return fmt.Errorf("%w: scheduler_poll_interval must be in (0, 1m], got %s", ErrInvalidConfig, c.SchedulerPollInterval)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	switch c.SnapshotBackend {
	case BackendFile:
		if strings.TrimSpace(c.SnapshotPath) == "" {
			return fmt.Errorf("%w: snapshot_path must not be empty", ErrInvalidConfig)
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("%w: redis_url is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown snapshot_backend %q", ErrInvalidConfig, c.SnapshotBackend)
	}
	return nil
}

// Validate reports settings the service cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LogChannelID) == "" {
		return fmt.Errorf("%w: log_channel_id", ErrMissingConfig)
	}
	if len(c.AdminTokens) == 0 {
		return fmt.Errorf("%w: admin_tokens", ErrMissingConfig)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
