package week

import (
	"context"
	"time"

	"github.com/okian/salesbonus/pkg/logger"
)

const defaultPollInterval = 30 * time.Second

// Scheduler polls a Trigger on a fixed interval.
type Scheduler struct {
	trigger  Trigger
	interval time.Duration
	log      logger.Logger
}

// NewScheduler returns a Scheduler. The interval must stay at or below one minute or a target
// minute can be skipped; non-positive values select the default.
func NewScheduler(trigger Trigger, interval time.Duration, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{trigger: trigger, interval: interval, log: log}
}

// Run polls until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info(ctx, "scheduler started", logger.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "scheduler stopped")
			return
		case <-ticker.C:
			if s.trigger.Check(ctx) {
				s.log.Info(ctx, "scheduled trigger fired")
			}
		}
	}
}
