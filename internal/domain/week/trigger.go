package week

import (
	"context"
	"sync"
	"time"
)

// Trigger is polled by the Scheduler. Check fires the trigger's action when due and reports
// whether it did.
type Trigger interface {
	Check(ctx context.Context) bool
}

// WeeklyTrigger fires once when local time reaches weekday, hour and minute.
type WeeklyTrigger struct {
	weekday time.Weekday
	hour    int
	minute  int
	loc     *time.Location
	clock   Clock
	fire    func(ctx context.Context)

	mu        sync.Mutex
	lastFired time.Time
}

// NewWeeklyTrigger builds a trigger that calls fire at the given local wall time. A nil loc
// means UTC.
func NewWeeklyTrigger(weekday time.Weekday, hour, minute int, loc *time.Location, clock Clock, fire func(ctx context.Context)) *WeeklyTrigger {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &WeeklyTrigger{
		weekday: weekday,
		hour:    hour,
		minute:  minute,
		loc:     loc,
		clock:   clock,
		fire:    fire,
	}
}

// Check implements Trigger. A target minute that is sampled more than once fires only on the
// first sample.
func (t *WeeklyTrigger) Check(ctx context.Context) bool {
	now := t.clock.Now().In(t.loc)
	if now.Weekday() != t.weekday || now.Hour() != t.hour || now.Minute() != t.minute {
		return false
	}
	minute := now.Truncate(time.Minute)

	t.mu.Lock()
	if t.lastFired.Equal(minute) {
		t.mu.Unlock()
		return false
	}
	t.lastFired = minute
	t.mu.Unlock()

	if t.fire != nil {
		t.fire(ctx)
	}
	return true
}

// NextFire returns the first target minute strictly after now.
func (t *WeeklyTrigger) NextFire(now time.Time) time.Time {
	local := now.In(t.loc)
	days := (int(t.weekday) - int(local.Weekday()) + 7) % 7
	y, mo, d := local.Date()
	next := time.Date(y, mo, d+days, t.hour, t.minute, 0, 0, t.loc)
	if !next.After(local) {
		next = time.Date(y, mo, d+days+7, t.hour, t.minute, 0, 0, t.loc)
	}
	return next
}

// LastFired returns the last fired minute, or the zero time.
func (t *WeeklyTrigger) LastFired() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFired
}
