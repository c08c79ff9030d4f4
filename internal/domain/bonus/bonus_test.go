package bonus_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/salesbonus/internal/domain/bonus"
	"github.com/okian/salesbonus/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func stateWithTotals(totals map[string][]int64) model.State {
	st := model.NewState(time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC))
	for id, amounts := range totals {
		rec := &model.EmployeeRecord{DisplayName: id}
		for _, a := range amounts {
			rec.SaleEvents = append(rec.SaleEvents, model.SaleEvent{Amount: a})
		}
		st.Employees[id] = rec
	}
	return st
}

func TestCalculate(t *testing.T) {
	Convey("Given two employees with totals 1000 and 500", t, func() {
		st := stateWithTotals(map[string][]int64{"B": {200, 300}, "A": {1000}})

		Convey("When bonuses are calculated at 20%", func() {
			lines, err := bonus.Calculate(st, 20)

			Convey("Then A gets 200 and B gets 100, in that order", func() {
				So(err, ShouldBeNil)
				So(lines, ShouldResemble, []model.BonusLine{
					{Identifier: "A", DisplayName: "A", SaleCount: 1, TotalSales: 1000, BonusAmount: 200},
					{Identifier: "B", DisplayName: "B", SaleCount: 2, TotalSales: 500, BonusAmount: 100},
				})
			})
		})
	})

	Convey("Given employees with equal totals", t, func() {
		st := stateWithTotals(map[string][]int64{"ZZZ00001": {10}, "AAA00001": {10}, "MMM00001": {10}})

		Convey("When calculated repeatedly", func() {
			Convey("Then ties are ordered by identifier every time", func() {
				for range 20 {
					lines, err := bonus.Calculate(st, 10)
					So(err, ShouldBeNil)
					So(lines[0].Identifier, ShouldEqual, "AAA00001")
					So(lines[1].Identifier, ShouldEqual, "MMM00001")
					So(lines[2].Identifier, ShouldEqual, "ZZZ00001")
				}
			})
		})
	})

	Convey("Given rounding edge cases", t, func() {
		Convey("Then halves round up", func() {
			So(bonus.Amount(5, 10), ShouldEqual, int64(1))     // 0.5
			So(bonus.Amount(15, 10), ShouldEqual, int64(2))    // 1.5
			So(bonus.Amount(14, 10), ShouldEqual, int64(1))    // 1.4
			So(bonus.Amount(333, 33), ShouldEqual, int64(110)) // 109.89
		})

		Convey("Then 0% and 100% are allowed bounds", func() {
			So(bonus.Amount(1234, 0), ShouldEqual, int64(0))
			So(bonus.Amount(1234, 100), ShouldEqual, int64(1234))
		})
	})

	Convey("Given an invalid rate", t, func() {
		st := stateWithTotals(map[string][]int64{"A": {1}})

		Convey("Then it is rejected", func() {
			for _, rate := range []float64{-1, 100.5, math.NaN()} {
				lines, err := bonus.Calculate(st, rate)
				So(lines, ShouldBeNil)
				So(errors.Is(err, bonus.ErrInvalidRate), ShouldBeTrue)
			}
		})
	})

	Convey("Given an empty state", t, func() {
		lines, err := bonus.Calculate(model.NewState(time.Now()), 20)

		Convey("Then the report is empty", func() {
			So(err, ShouldBeNil)
			So(lines, ShouldBeEmpty)
		})
	})
}

func TestTotals(t *testing.T) {
	Convey("Given calculated lines", t, func() {
		lines, err := bonus.Calculate(stateWithTotals(map[string][]int64{"A": {1000}, "B": {200, 300}}), 20)
		So(err, ShouldBeNil)

		Convey("Then totals add up", func() {
			So(bonus.Totals(lines), ShouldResemble, bonus.Summary{
				Employees:  2,
				SaleCount:  3,
				TotalSales: 1500,
				TotalBonus: 300,
			})
		})
	})
}
