package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/salesbonus/internal/domain/model"
	"github.com/okian/salesbonus/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewReport(t *testing.T) {
	Convey("Given four calculated lines", t, func() {
		lines := []model.BonusLine{
			{Identifier: "AAA00001", DisplayName: "Ana", SaleCount: 2, TotalSales: 1000, BonusAmount: 200},
			{Identifier: "BBB00002", DisplayName: "Beto", SaleCount: 1, TotalSales: 500, BonusAmount: 100},
			{Identifier: "CCC00003", DisplayName: "Cris", SaleCount: 1, TotalSales: 100, BonusAmount: 20},
			{Identifier: "DDD00004", DisplayName: "Dani", SaleCount: 1, TotalSales: 5, BonusAmount: 1},
		}
		start := time.Date(2026, 10, 4, 23, 59, 0, 0, time.UTC)
		r := types.NewReport(lines, 20, start, start.Add(time.Hour))

		Convey("Then ranks follow the input order and the podium gets medals", func() {
			So(r.Lines[0].Rank, ShouldEqual, 1)
			So(r.Lines[0].Medal, ShouldEqual, types.MedalGold)
			So(r.Lines[1].Medal, ShouldEqual, types.MedalSilver)
			So(r.Lines[2].Medal, ShouldEqual, types.MedalBronze)
			So(r.Lines[3].Rank, ShouldEqual, 4)
			So(r.Lines[3].Medal, ShouldBeEmpty)
		})

		Convey("Then totals cover every line", func() {
			So(r.Totals.Employees, ShouldEqual, 4)
			So(r.Totals.SaleCount, ShouldEqual, 5)
			So(r.Totals.TotalSales, ShouldEqual, int64(1605))
			So(r.Totals.TotalBonus, ShouldEqual, int64(321))
		})

		Convey("Then lines serialize flat", func() {
			raw, err := json.Marshal(r.Lines[0])
			So(err, ShouldBeNil)
			var m map[string]any
			So(json.Unmarshal(raw, &m), ShouldBeNil)
			So(m["rank"], ShouldEqual, float64(1))
			So(m["identifier"], ShouldEqual, "AAA00001")
			So(m["bonus_amount"], ShouldEqual, float64(200))
		})
	})

	Convey("Given no lines", t, func() {
		r := types.NewReport(nil, 20, time.Time{}, time.Time{})

		Convey("Then the report is empty but well formed", func() {
			So(r.Lines, ShouldNotBeNil)
			So(r.Lines, ShouldBeEmpty)
			So(r.Totals.Employees, ShouldEqual, 0)
		})
	})
}
