// Package bonus derives ranked payout lines from the aggregate.
package bonus

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/salesbonus/internal/domain/model"
)

// Rate bounds, in percent.
const (
	MinRate = 0
	MaxRate = 100
)

// ValidateRate reports whether rate is a usable percentage.
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || rate < MinRate || rate > MaxRate {
		return fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	return nil
}

// Amount is round-half-up of total*rate/100.
func Amount(total int64, rate float64) int64 {
	return int64(math.Floor(float64(total)*rate/100 + 0.5))
}

// Calculate returns one line per employee, highest total first. Equal totals are ordered by
// identifier so the same state always renders the same report.
func Calculate(state model.State, rate float64) ([]model.BonusLine, error) {
	if err := ValidateRate(rate); err != nil {
		return nil, err
	}

	lines := make([]model.BonusLine, 0, len(state.Employees))
	for id, rec := range state.Employees {
		if rec == nil {
			continue
		}
		total := rec.TotalSales()
		lines = append(lines, model.BonusLine{
			Identifier:  id,
			DisplayName: rec.DisplayName,
			SaleCount:   len(rec.SaleEvents),
			TotalSales:  total,
			BonusAmount: Amount(total, rate),
		})
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].TotalSales != lines[j].TotalSales {
			return lines[i].TotalSales > lines[j].TotalSales
		}
		return lines[i].Identifier < lines[j].Identifier
	})
	return lines, nil
}

// Summary is the footer of a report.
type Summary struct {
	Employees  int   `json:"employees"`
	SaleCount  int   `json:"sale_count"`
	TotalSales int64 `json:"total_sales"`
	TotalBonus int64 `json:"total_bonus"`
}

// Totals sums lines.
func Totals(lines []model.BonusLine) Summary {
	s := Summary{Employees: len(lines)}
	for _, l := range lines {
		s.SaleCount += l.SaleCount
		s.TotalSales += l.TotalSales
		s.TotalBonus += l.BonusAmount
	}
	return s
}
