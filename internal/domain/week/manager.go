package week

import (
	"context"
	"sync"
	"time"
)

// Resetter is the part of the aggregate the manager drives.
type Resetter interface {
	Reset(periodStart time.Time)
	PeriodStart() time.Time
}

// ResetHook runs after every reset, with the new period start and what caused it.
type ResetHook func(ctx context.Context, periodStart time.Time, trigger string)

// Reset triggers.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// Manager resets the period on demand.
type Manager struct {
	target Resetter
	clock  Clock

	mu    sync.Mutex
	hooks []ResetHook
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the time source.
func WithClock(c Clock) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithResetHook appends a hook run after each reset.
func WithResetHook(h ResetHook) ManagerOption {
	return func(m *Manager) {
		if h != nil {
			m.hooks = append(m.hooks, h)
		}
	}
}

// NewManager returns a Manager over target.
func NewManager(target Resetter, opts ...ManagerOption) *Manager {
	m := &Manager{target: target, clock: SystemClock{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reset empties the aggregate, starts a period at clock.Now() and returns that time.
func (m *Manager) Reset(ctx context.Context, trigger string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.target.Reset(now)
	for _, h := range m.hooks {
		h(ctx, now, trigger)
	}
	return now
}

// PeriodStart returns the start of the current period.
func (m *Manager) PeriodStart() time.Time {
	return m.target.PeriodStart()
}
