package api

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/okian/salesbonus/internal/domain/types"
)

const reportTimeLayout = "2006-01-02 15:04"

// RenderReport formats a report as a plain-text block, amounts with thousands separators and
// times in loc.
func RenderReport(r types.Report, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	p := message.NewPrinter(language.English)

	var b strings.Builder
	fmt.Fprintf(&b, "Bonus report (%s to %s, %s)\n",
		r.PeriodStart.In(loc).Format(reportTimeLayout),
		r.GeneratedAt.In(loc).Format(reportTimeLayout),
		loc.String())
	p.Fprintf(&b, "Bonus rate: %v%%\n\n", r.BonusRate)

	if len(r.Lines) == 0 {
		b.WriteString("No sales this week.\n")
		return b.String()
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, l := range r.Lines {
		medal := l.Medal
		if medal == "" {
			medal = " "
		}
		p.Fprintf(tw, "%s %d.\t%s\t%s\t%d sales\t$%d\tbonus $%d\n",
			medal, l.Rank, l.DisplayName, l.Identifier, l.SaleCount, l.TotalSales, l.BonusAmount)
	}
	_ = tw.Flush()

	p.Fprintf(&b, "\nTotal: %d employees, %d sales, $%d sold, $%d bonus\n",
		r.Totals.Employees, r.Totals.SaleCount, r.Totals.TotalSales, r.Totals.TotalBonus)
	return b.String()
}
