// Package types contains the report and status shapes shared by the service and the HTTP API.
package types

import (
	"time"

	"github.com/okian/salesbonus/internal/domain/bonus"
	"github.com/okian/salesbonus/internal/domain/model"
)

// Medals for the first three ranks.
const (
	MedalGold   = "🥇"
	MedalSilver = "🥈"
	MedalBronze = "🥉"
)

// Medal returns the marker for rank, or "" past third place.
func Medal(rank int) string {
	switch rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return ""
	}
}

// ReportLine is a ranked bonus line.
type ReportLine struct {
	Rank  int    `json:"rank"`
	Medal string `json:"medal,omitempty"`
	model.BonusLine
}

// Report is the weekly payout report.
type Report struct {
	PeriodStart time.Time     `json:"period_start"`
	GeneratedAt time.Time     `json:"generated_at"`
	BonusRate   float64       `json:"bonus_rate"`
	Lines       []ReportLine  `json:"lines"`
	Totals      bonus.Summary `json:"totals"`
}

// NewReport ranks lines in the order given, starting at 1.
func NewReport(lines []model.BonusLine, rate float64, periodStart, generatedAt time.Time) Report {
	out := make([]ReportLine, len(lines))
	for i, l := range lines {
		out[i] = ReportLine{Rank: i + 1, Medal: Medal(i + 1), BonusLine: l}
	}
	return Report{
		PeriodStart: periodStart,
		GeneratedAt: generatedAt,
		BonusRate:   rate,
		Lines:       out,
		Totals:      bonus.Totals(lines),
	}
}

// BackfillResult is a finished backfill as reported to operators.
type BackfillResult struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Fetched    int       `json:"fetched"`
	Sales      int       `json:"sales"`
	Names      int       `json:"names"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// BackfillStatus describes the running and the last finished backfill.
type BackfillStatus struct {
	Available bool            `json:"available"`
	Running   string          `json:"running,omitempty"`
	Last      *BackfillResult `json:"last,omitempty"`
}

// SnapshotStatus describes the last persistence attempt.
type SnapshotStatus struct {
	Backend   string     `json:"backend"`
	LastSave  *time.Time `json:"last_save,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Status is the operator view of the service.
type Status struct {
	PeriodStart   time.Time      `json:"period_start"`
	NextReset     time.Time      `json:"next_reset"`
	Timezone      string         `json:"timezone"`
	Employees     int            `json:"employees"`
	SaleCount     int            `json:"sale_count"`
	TotalSales    int64          `json:"total_sales"`
	BonusRate     float64        `json:"bonus_rate"`
	QueueLength   int            `json:"queue_length"`
	QueueCapacity int            `json:"queue_capacity"`
	DedupeEnabled bool           `json:"dedupe_enabled"`
	Backfill      BackfillStatus `json:"backfill"`
	Snapshot      SnapshotStatus `json:"snapshot"`
}
