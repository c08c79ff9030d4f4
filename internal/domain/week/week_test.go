package week_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/salesbonus/internal/domain/aggregate"
	"github.com/okian/salesbonus/internal/domain/week"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func madrid(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestManager(t *testing.T) {
	Convey("Given a manager over an aggregate with sales", t, func() {
		start := time.Date(2026, 10, 4, 12, 0, 0, 0, time.UTC)
		clock := &fakeClock{now: start}
		agg := aggregate.New(start.Add(-7 * 24 * time.Hour))
		agg.RecordSale("ABC12345", 100, start, "m1")

		var hookCalls []string
		var hookStart time.Time
		m := week.NewManager(agg,
			week.WithClock(clock),
			week.WithResetHook(func(_ context.Context, periodStart time.Time, trigger string) {
				hookCalls = append(hookCalls, trigger)
				hookStart = periodStart
			}),
		)

		Convey("When reset is called", func() {
			clock.Advance(time.Hour)
			got := m.Reset(context.Background(), week.TriggerManual)

			Convey("Then reads see an empty set starting at the reset time", func() {
				want := start.Add(time.Hour)
				So(got, ShouldEqual, want)
				So(agg.Snapshot().Employees, ShouldBeEmpty)
				So(agg.Snapshot().PeriodStart, ShouldEqual, want)
				So(m.PeriodStart(), ShouldEqual, want)
			})

			Convey("Then the hooks see the new period and trigger", func() {
				So(hookCalls, ShouldResemble, []string{week.TriggerManual})
				So(hookStart, ShouldEqual, start.Add(time.Hour))
			})
		})
	})
}

func TestWeeklyTrigger(t *testing.T) {
	loc := madrid(t)

	Convey("Given a Sunday 23:59 trigger in Madrid", t, func() {
		clock := &fakeClock{now: time.Date(2026, 10, 4, 23, 58, 30, 0, loc)}
		var fired atomic.Int32
		trig := week.NewWeeklyTrigger(time.Sunday, 23, 59, loc, clock, func(context.Context) {
			fired.Add(1)
		})
		ctx := context.Background()

		Convey("When polled before the target minute", func() {
			So(trig.Check(ctx), ShouldBeFalse)

			Convey("Then nothing fires", func() {
				So(fired.Load(), ShouldEqual, int32(0))
			})
		})

		Convey("When the target minute is sampled several times", func() {
			clock.Set(time.Date(2026, 10, 4, 23, 59, 0, 0, loc))
			first := trig.Check(ctx)
			clock.Advance(20 * time.Second)
			second := trig.Check(ctx)
			clock.Advance(20 * time.Second)
			third := trig.Check(ctx)

			Convey("Then it fires exactly once", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(third, ShouldBeFalse)
				So(fired.Load(), ShouldEqual, int32(1))
				So(trig.LastFired().Equal(time.Date(2026, 10, 4, 23, 59, 0, 0, loc)), ShouldBeTrue)
			})

			Convey("And the following week fires again", func() {
				clock.Set(time.Date(2026, 10, 11, 23, 59, 10, 0, loc))
				So(trig.Check(ctx), ShouldBeTrue)
				So(fired.Load(), ShouldEqual, int32(2))
			})
		})

		Convey("When the clock reads UTC", func() {
			// 21:59 UTC is 23:59 in Madrid during summer time.
			clock.Set(time.Date(2026, 10, 4, 21, 59, 5, 0, time.UTC))

			Convey("Then the local wall time is what matters", func() {
				So(trig.Check(ctx), ShouldBeTrue)
			})
		})

		Convey("When the weekday does not match", func() {
			clock.Set(time.Date(2026, 10, 5, 23, 59, 0, 0, loc))

			Convey("Then nothing fires", func() {
				So(trig.Check(ctx), ShouldBeFalse)
			})
		})
	})

	Convey("Given NextFire", t, func() {
		trig := week.NewWeeklyTrigger(time.Sunday, 23, 59, loc, nil, nil)

		Convey("When asked on a Wednesday", func() {
			next := trig.NextFire(time.Date(2026, 10, 7, 10, 0, 0, 0, loc))

			Convey("Then it is the coming Sunday", func() {
				So(next.Equal(time.Date(2026, 10, 11, 23, 59, 0, 0, loc)), ShouldBeTrue)
			})
		})

		Convey("When asked exactly at the target minute", func() {
			next := trig.NextFire(time.Date(2026, 10, 4, 23, 59, 0, 0, loc))

			Convey("Then it is a week later", func() {
				So(next.Equal(time.Date(2026, 10, 11, 23, 59, 0, 0, loc)), ShouldBeTrue)
			})
		})

		Convey("When asked earlier on the target day", func() {
			next := trig.NextFire(time.Date(2026, 10, 4, 8, 0, 0, 0, loc))

			Convey("Then it is the same day", func() {
				So(next.Equal(time.Date(2026, 10, 4, 23, 59, 0, 0, loc)), ShouldBeTrue)
			})
		})
	})
}

type countingTrigger struct {
	calls atomic.Int32
}

func (c *countingTrigger) Check(context.Context) bool {
	c.calls.Add(1)
	return true
}

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler with a short interval", t, func() {
		trig := &countingTrigger{}
		s := week.NewScheduler(trig, 5*time.Millisecond, nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		Convey("When it runs for a while and is cancelled", func() {
			go func() {
				s.Run(ctx)
				close(done)
			}()
			time.Sleep(40 * time.Millisecond)
			cancel()

			Convey("Then it polled the trigger and returned", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("scheduler did not stop")
				}
				So(trig.calls.Load(), ShouldBeGreaterThan, int32(0))
			})
		})

		Reset(func() { cancel() })
	})
}
