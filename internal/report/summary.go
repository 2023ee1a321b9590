// Package report renders shareable monthly summaries of the ledger. The
// same text backs the share-summary API endpoint and the files written by
// the report worker.
package report

import (
	"fmt"
	"strings"
	"time"

	"shoptracker/internal/core"
	"shoptracker/internal/ledger"
)

// Monthly is the aggregated input for one month's summary.
type Monthly struct {
	Month       time.Month
	Year        int
	Total       float64
	TopExpenses []ledger.ItemExpense
	Groups      []ledger.ShopGroup
}

// BuildMonthly collects the month's aggregates from the ledger.
func BuildMonthly(l *ledger.Ledger, month time.Month, year int) Monthly {
	groups := make([]ledger.ShopGroup, 0)
	for _, g := range l.ShopDateGroups() {
		var sessions []ledger.ShopSession
		for _, s := range g.Sessions {
			if strings.HasPrefix(s.Date, fmt.Sprintf("%04d-%02d", year, int(month))) {
				sessions = append(sessions, s)
			}
		}
		if len(sessions) > 0 {
			groups = append(groups, ledger.ShopGroup{ShopName: g.ShopName, Sessions: sessions})
		}
	}
	return Monthly{
		Month:       month,
		Year:        year,
		Total:       l.MonthlyTotal(month, year),
		TopExpenses: l.TopExpenses(month, year, 5),
		Groups:      groups,
	}
}

// Render produces the plain-text summary.
func Render(m Monthly) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopping summary - %s %d\n", m.Month, m.Year)
	fmt.Fprintf(&b, "Total spent: %s\n", core.FormatCurrency(m.Total))

	if len(m.TopExpenses) > 0 {
		b.WriteString("\nTop expenses:\n")
		for i, e := range m.TopExpenses {
			fmt.Fprintf(&b, "  %d. %s - %s\n", i+1, e.Name, core.FormatCurrency(e.Total))
		}
	}

	if len(m.Groups) > 0 {
		b.WriteString("\nShop visits:\n")
		for _, g := range m.Groups {
			for _, s := range g.Sessions {
				day := s.Date
				if t, err := time.Parse("2006-01-02", s.Date); err == nil {
					day = core.FormatDate(t)
				}
				fmt.Fprintf(&b, "  %s on %s - %s (%d purchases)\n",
					g.ShopName, day, core.FormatCurrency(s.Total), len(s.Transactions))
			}
		}
	}

	return b.String()
}
