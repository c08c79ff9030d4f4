package service

import (
	"time"

	"github.com/okian/salesbonus/internal/adapters/repository"
	"github.com/okian/salesbonus/internal/domain/backfill"
	"github.com/okian/salesbonus/internal/domain/bonus"
	"github.com/okian/salesbonus/internal/domain/week"
	"github.com/okian/salesbonus/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the snapshot store. Without one nothing is persisted.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithHistorySource enables backfills against src.
func WithHistorySource(src backfill.Source) Option {
	return func(s *Service) {
		s.history = src
	}
}

// WithClock sets the time source used for periods and the weekly trigger.
func WithClock(c week.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBonusRate sets the initial bonus percentage. Invalid rates are ignored.
func WithBonusRate(rate float64) Option {
	return func(s *Service) {
		if bonus.ValidateRate(rate) == nil {
			s.rate = rate
		}
	}
}

// WithQueueSize sets the maximum size of the inbound queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupe turns on skipping of already processed message ids. size <= 0 is unbounded.
func WithDedupe(enabled bool, size int) Option {
	return func(s *Service) {
		s.dedupe = enabled
		s.dedupeSize = size
	}
}

// WithChannel restricts live ingestion to one channel.
func WithChannel(channelID string) Option {
	return func(s *Service) {
		s.channelID = channelID
	}
}

// WithSchedule sets the weekly reset wall time in loc.
func WithSchedule(weekday time.Weekday, hour, minute int, loc *time.Location) Option {
	return func(s *Service) {
		s.weekday = weekday
		s.hour = hour
		s.minute = minute
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithPollInterval sets how often the weekly trigger is checked.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for the queue to drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}
