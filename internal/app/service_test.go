package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/salesbonus/internal/adapters/history"
	"github.com/okian/salesbonus/internal/adapters/repository"
	service "github.com/okian/salesbonus/internal/app"
	"github.com/okian/salesbonus/internal/domain/backfill"
	"github.com/okian/salesbonus/internal/domain/bonus"
	"github.com/okian/salesbonus/internal/domain/model"
	"github.com/okian/salesbonus/pkg/logger"
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

// Sunday noon; the default reset is the same day at 23:59.
var sunday = time.Date(2026, 10, 4, 12, 0, 0, 0, time.UTC)

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func sale(id, code string, amount int) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: "logs",
		Content:   fmt.Sprintf("**Cliente [ZZZ99999]** ha pagado una factura de [%s] por $%d", code, amount),
		CreatedAt: sunday,
	}
}

func rename(id, code, name string) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: "logs",
		Content:   fmt.Sprintf("[%s] %s ha retirado $20", code, name),
		CreatedAt: sunday,
	}
}

func newService(clock *fakeClock, store repository.Store, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithClock(clock),
		service.WithStore(store),
		service.WithChannel("logs"),
		service.WithBonusRate(20),
		service.WithSchedule(time.Sunday, 23, 59, time.UTC),
	}
	return service.New(append(base, opts...)...)
}

func employees(s *service.Service) int {
	r, err := s.Report(context.Background())
	if err != nil {
		return -1
	}
	return r.Totals.Employees
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a file store", t, func() {
		clock := &fakeClock{now: sunday}
		path := filepath.Join(t.TempDir(), "ledger.json")
		store := repository.NewFileStore(path)
		svc := newService(clock, store)
		So(svc.Start(ctx), ShouldBeNil)

		Reset(func() { svc.Stop() })

		Convey("When sales and a name line are ingested", func() {
			for _, m := range []model.Message{
				sale("m1", "ABC12345", 1000),
				sale("m2", "BBB00002", 200),
				sale("m3", "BBB00002", 300),
				rename("m4", "ABC12345", "Ana"),
			} {
				ok, err := svc.Ingest(ctx, m)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			}
			So(eventually(func() bool {
				r, _ := svc.Report(ctx)
				return r.Totals.SaleCount == 3 && len(r.Lines) == 2 && r.Lines[0].DisplayName == "Ana"
			}), ShouldBeTrue)

			Convey("Then the report ranks by total with bonuses at 20%", func() {
				r, err := svc.Report(ctx)
				So(err, ShouldBeNil)
				So(r.BonusRate, ShouldEqual, float64(20))
				So(r.Lines[0].Identifier, ShouldEqual, "ABC12345")
				So(r.Lines[0].BonusAmount, ShouldEqual, int64(200))
				So(r.Lines[0].Rank, ShouldEqual, 1)
				So(r.Lines[1].Identifier, ShouldEqual, "BBB00002")
				So(r.Lines[1].BonusAmount, ShouldEqual, int64(100))
				So(r.Totals.TotalSales, ShouldEqual, int64(1500))
				So(r.PeriodStart, ShouldEqual, sunday)
			})

			Convey("Then every mutation was written through", func() {
				st, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(len(st.Employees), ShouldEqual, 2)
				So(st.Employees["ABC12345"].DisplayName, ShouldEqual, "Ana")
				So(svc.Status(ctx).Snapshot.LastSave, ShouldNotBeNil)
			})

			Convey("Then a changed rate applies to the next report", func() {
				So(svc.SetBonusRate(ctx, 10), ShouldBeNil)
				r, err := svc.Report(ctx)
				So(err, ShouldBeNil)
				So(r.Lines[0].BonusAmount, ShouldEqual, int64(100))
				So(svc.BonusRate(), ShouldEqual, float64(10))
			})

			Convey("Then closing reports the week and starts an empty one", func() {
				later := sunday.Add(2 * time.Hour)
				clock.Set(later)

				r, err := svc.Close(ctx)
				So(err, ShouldBeNil)
				So(r.Totals.TotalSales, ShouldEqual, int64(1500))

				after, err := svc.Report(ctx)
				So(err, ShouldBeNil)
				So(after.Lines, ShouldBeEmpty)
				So(after.PeriodStart, ShouldEqual, later)

				raw, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				var doc map[string]any
				So(json.Unmarshal(raw, &doc), ShouldBeNil)
				So(doc["employees"], ShouldBeEmpty)
			})

			Convey("Then a restarted service restores the snapshot", func() {
				svc.Stop()
				again := newService(clock, repository.NewFileStore(path))
				So(again.Start(ctx), ShouldBeNil)
				defer again.Stop()

				r, err := again.Report(ctx)
				So(err, ShouldBeNil)
				So(r.Totals.TotalSales, ShouldEqual, int64(1500))
				So(r.PeriodStart.Equal(sunday), ShouldBeTrue)
			})
		})

		Convey("When the same sale is delivered twice", func() {
			m := sale("m1", "ABC12345", 150)
			_, _ = svc.Ingest(ctx, m)
			_, _ = svc.Ingest(ctx, m)

			Convey("Then it is counted twice", func() {
				So(eventually(func() bool {
					r, _ := svc.Report(ctx)
					return r.Totals.SaleCount == 2
				}), ShouldBeTrue)
			})
		})

		Convey("When bot or foreign messages arrive", func() {
			bot := sale("m1", "ABC12345", 10)
			bot.AuthorIsBot = true
			other := sale("m2", "ABC12345", 10)
			other.ChannelID = "general"

			okBot, errBot := svc.Ingest(ctx, bot)
			okOther, errOther := svc.Ingest(ctx, other)

			Convey("Then they are dropped without error", func() {
				So(okBot, ShouldBeFalse)
				So(errBot, ShouldBeNil)
				So(okOther, ShouldBeFalse)
				So(errOther, ShouldBeNil)
				So(employees(svc), ShouldEqual, 0)
			})
		})

		Convey("When an invalid rate is set", func() {
			err := svc.SetBonusRate(ctx, 150)

			Convey("Then it is rejected and the rate is unchanged", func() {
				So(errors.Is(err, bonus.ErrInvalidRate), ShouldBeTrue)
				So(svc.BonusRate(), ShouldEqual, float64(20))
			})
		})

		Convey("When backfill is requested without a history source", func() {
			_, err := svc.StartBackfill(ctx, backfill.ByCount(10))

			Convey("Then it is unavailable", func() {
				So(errors.Is(err, service.ErrHistoryUnavailable), ShouldBeTrue)
				So(svc.Status(ctx).Backfill.Available, ShouldBeFalse)
			})
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := newService(&fakeClock{now: sunday}, nil)

		Convey("Then ingest is refused", func() {
			_, err := svc.Ingest(ctx, sale("m1", "ABC12345", 10))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a stopped service", t, func() {
		svc := newService(&fakeClock{now: sunday}, nil)
		So(svc.Start(ctx), ShouldBeNil)
		svc.Stop()

		Convey("Then it cannot be started again", func() {
			So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
		})
	})
}

func TestServiceStartup(t *testing.T) {
	ctx := context.Background()

	Convey("Given a corrupt snapshot file", t, func() {
		path := filepath.Join(t.TempDir(), "ledger.json")
		So(os.WriteFile(path, []byte("{not json"), 0o600), ShouldBeNil)
		svc := newService(&fakeClock{now: sunday}, repository.NewFileStore(path))

		Convey("When the service starts", func() {
			err := svc.Start(ctx)
			defer svc.Stop()

			Convey("Then it starts empty instead of failing", func() {
				So(err, ShouldBeNil)
				So(employees(svc), ShouldEqual, 0)
				So(svc.Status(ctx).PeriodStart, ShouldEqual, sunday)
			})
		})
	})

	Convey("Given no snapshot", t, func() {
		svc := newService(&fakeClock{now: sunday}, repository.NewFileStore(filepath.Join(t.TempDir(), "none.json")))

		Convey("Then the period starts now", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()
			st := svc.Status(ctx)
			So(st.PeriodStart, ShouldEqual, sunday)
			So(st.NextReset.Equal(time.Date(2026, 10, 4, 23, 59, 0, 0, time.UTC)), ShouldBeTrue)
			So(st.Snapshot.Backend, ShouldEqual, "file")
			So(st.Timezone, ShouldEqual, "UTC")
		})
	})
}

func TestServiceScheduledReset(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service polling the weekly trigger quickly", t, func() {
		clock := &fakeClock{now: sunday}
		svc := newService(clock, nil, service.WithPollInterval(5*time.Millisecond))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop() })

		_, err := svc.Ingest(ctx, sale("m1", "ABC12345", 100))
		So(err, ShouldBeNil)
		So(eventually(func() bool { return employees(svc) == 1 }), ShouldBeTrue)

		Convey("When the clock reaches Sunday 23:59", func() {
			reset := time.Date(2026, 10, 4, 23, 59, 10, 0, time.UTC)
			clock.Set(reset)

			Convey("Then the period is reset once at that time", func() {
				So(eventually(func() bool { return svc.Status(ctx).PeriodStart.Equal(reset) }), ShouldBeTrue)
				So(employees(svc), ShouldEqual, 0)
				So(svc.Status(ctx).NextReset.Equal(time.Date(2026, 10, 11, 23, 59, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})
	})
}

func TestServiceDedupe(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with message dedupe enabled", t, func() {
		svc := newService(&fakeClock{now: sunday}, nil, service.WithDedupe(true, 100))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop() })

		Convey("When a message is delivered twice and then a new one", func() {
			m := sale("m1", "ABC12345", 150)
			_, _ = svc.Ingest(ctx, m)
			_, _ = svc.Ingest(ctx, m)
			_, _ = svc.Ingest(ctx, sale("m2", "ABC12345", 50))

			Convey("Then the replay is not counted", func() {
				So(eventually(func() bool {
					r, _ := svc.Report(ctx)
					return r.Totals.TotalSales == 200
				}), ShouldBeTrue)
				r, _ := svc.Report(ctx)
				So(r.Totals.SaleCount, ShouldEqual, 2)
				So(svc.Status(ctx).DedupeEnabled, ShouldBeTrue)
			})
		})
	})
}

func TestServiceBackfill(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a history source", t, func() {
		var msgs []model.Message
		for i := range 30 {
			m := sale(fmt.Sprintf("h%03d", i), "ABC12345", 10)
			m.CreatedAt = sunday.Add(time.Duration(i) * time.Minute)
			msgs = append(msgs, m)
		}
		src := history.NewMemorySource(msgs...)
		svc := newService(&fakeClock{now: sunday}, nil, service.WithHistorySource(src))

		Convey("When a backfill is requested before start", func() {
			_, err := svc.StartBackfill(ctx, backfill.ByCount(10))

			Convey("Then it is refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When a backfill by count runs", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			id, err := svc.StartBackfill(ctx, backfill.ByCount(20))
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)
			So(eventually(func() bool {
				_, ok := svc.LastBackfill()
				return ok
			}), ShouldBeTrue)

			Convey("Then the newest messages are applied", func() {
				res, _ := svc.LastBackfill()
				So(res.ID, ShouldEqual, id)
				So(res.Fetched, ShouldEqual, 20)
				So(res.Sales, ShouldEqual, 20)
				r, _ := svc.Report(ctx)
				So(r.Totals.TotalSales, ShouldEqual, int64(200))

				st := svc.Status(ctx)
				So(st.Backfill.Available, ShouldBeTrue)
				So(st.Backfill.Last, ShouldNotBeNil)
				So(st.Backfill.Last.Mode, ShouldEqual, "by-count")
			})
		})

		Convey("When the backfill request is out of range", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()
			_, err := svc.StartBackfill(ctx, backfill.ByCount(5000))

			Convey("Then it is rejected without fetching", func() {
				So(errors.Is(err, backfill.ErrInvalidCount), ShouldBeTrue)
				_, ok := svc.LastBackfill()
				So(ok, ShouldBeFalse)
			})
		})
	})
}
