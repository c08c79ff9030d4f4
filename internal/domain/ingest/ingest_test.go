package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/salesbonus/internal/domain/aggregate"
	"github.com/okian/salesbonus/internal/domain/dedupe"
	"github.com/okian/salesbonus/internal/domain/ingest"
	"github.com/okian/salesbonus/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func msg(id, content string) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: "logs",
		Content:   content,
		CreatedAt: time.Date(2026, 10, 6, 10, 0, 0, 0, time.UTC),
	}
}

func TestProcessor(t *testing.T) {
	ctx := context.Background()

	Convey("Given a processor with a persist hook", t, func() {
		agg := aggregate.New(time.Date(2026, 10, 4, 23, 59, 0, 0, time.UTC))
		persisted := 0
		p := ingest.NewProcessor(agg,
			ingest.WithChannel("logs"),
			ingest.WithPersist(func(context.Context) { persisted++ }),
		)

		Convey("When a formatted sale line arrives", func() {
			m := msg("m1", "**Cliente [DEF11111]** ha pagado una factura de [ abc 12345 ] por $1,234.99")
			out := p.Process(ctx, m)

			Convey("Then exactly one sale is recorded and persisted", func() {
				So(out, ShouldEqual, ingest.OutcomeSale)
				snap := agg.Snapshot()
				So(len(snap.Employees), ShouldEqual, 1)
				rec := snap.Employees["ABC12345"]
				So(rec.SaleEvents, ShouldResemble, []model.SaleEvent{
					{Amount: 1234, OccurredAt: m.CreatedAt, SourceMessageID: "m1"},
				})
				So(persisted, ShouldEqual, 1)
			})
		})

		Convey("When a sale line has no amount", func() {
			out := p.Process(ctx, msg("m1", "ha pagado una factura de [ABC12345] por $0"))

			Convey("Then nothing is mutated or persisted", func() {
				So(out, ShouldEqual, ingest.OutcomeIgnored)
				So(agg.Count(), ShouldEqual, 0)
				So(persisted, ShouldEqual, 0)
			})
		})

		Convey("When a name line arrives before and after sales", func() {
			p.Process(ctx, msg("m1", "[ABC12345] Juan ha retirado $20"))
			p.Process(ctx, msg("m2", "ha pagado una factura de [ABC12345] $100"))
			out := p.Process(ctx, msg("m3", "[ABC12345] Juan Perez ha guardado $5"))

			Convey("Then the name is updated without touching sales", func() {
				So(out, ShouldEqual, ingest.OutcomeName)
				rec := agg.Snapshot().Employees["ABC12345"]
				So(rec.DisplayName, ShouldEqual, "Juan Perez")
				So(rec.TotalSales(), ShouldEqual, int64(100))
				So(persisted, ShouldEqual, 3)
			})
		})

		Convey("When the same message is processed twice without a deduper", func() {
			m := msg("m1", "ha pagado una factura de [ABC12345] $150")
			p.Process(ctx, m)
			p.Process(ctx, m)

			Convey("Then the sale is counted twice", func() {
				rec := agg.Snapshot().Employees["ABC12345"]
				So(len(rec.SaleEvents), ShouldEqual, 2)
				So(rec.TotalSales(), ShouldEqual, int64(300))
			})
		})

		Convey("When noise or empty markup arrives", func() {
			So(p.Process(ctx, msg("m1", "hola equipo")), ShouldEqual, ingest.OutcomeIgnored)
			So(p.Process(ctx, msg("m2", "** **")), ShouldEqual, ingest.OutcomeIgnored)

			Convey("Then nothing is recorded", func() {
				So(agg.Count(), ShouldEqual, 0)
				So(persisted, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a processor with a deduper", t, func() {
		agg := aggregate.New(time.Now())
		d := dedupe.NewInMemoryDeduper()
		p := ingest.NewProcessor(agg, ingest.WithDeduper(d))
		m := msg("m1", "ha pagado una factura de [ABC12345] $150")

		Convey("When the same message is processed twice", func() {
			first := p.Process(ctx, m)
			second := p.Process(ctx, m)

			Convey("Then the replay is skipped", func() {
				So(first, ShouldEqual, ingest.OutcomeSale)
				So(second, ShouldEqual, ingest.OutcomeDuplicate)
				So(agg.Snapshot().Employees["ABC12345"].TotalSales(), ShouldEqual, int64(150))
			})

			Convey("And after ResetDedupe the id counts again", func() {
				p.ResetDedupe(ctx)
				So(p.Process(ctx, m), ShouldEqual, ingest.OutcomeSale)
			})
		})
	})
}

func TestAccept(t *testing.T) {
	Convey("Given a processor bound to a channel", t, func() {
		p := ingest.NewProcessor(aggregate.New(time.Now()), ingest.WithChannel("logs"))

		Convey("Then bot authors and other channels are dropped", func() {
			ok, reason := p.Accept(msg("m1", "x"))
			So(ok, ShouldBeTrue)
			So(reason, ShouldBeEmpty)

			bot := msg("m2", "x")
			bot.AuthorIsBot = true
			ok, reason = p.Accept(bot)
			So(ok, ShouldBeFalse)
			So(reason, ShouldEqual, ingest.ReasonBotAuthor)

			other := msg("m3", "x")
			other.ChannelID = "general"
			ok, reason = p.Accept(other)
			So(ok, ShouldBeFalse)
			So(reason, ShouldEqual, ingest.ReasonOtherChannel)
		})
	})

	Convey("Given a processor without a channel", t, func() {
		p := ingest.NewProcessor(aggregate.New(time.Now()))

		Convey("Then any channel is accepted", func() {
			m := msg("m1", "x")
			m.ChannelID = "anything"
			ok, _ := p.Accept(m)
			So(ok, ShouldBeTrue)
		})
	})

	Convey("Given outcome names", t, func() {
		So(ingest.OutcomeSale.String(), ShouldEqual, "sale")
		So(ingest.OutcomeName.String(), ShouldEqual, "name")
		So(ingest.OutcomeDuplicate.String(), ShouldEqual, "duplicate")
		So(ingest.OutcomeIgnored.String(), ShouldEqual, "ignored")
	})
}
