/*
reporting.go - Dashboard rollups

PURPOSE:
  Rolls up a user's engagements, time logs and invoices into the
  dashboard summary: YTD revenue, active engagement count, monthly
  hours and outstanding totals, plus per-client breakdowns. All
  aggregations are pure reductions over the input collections; no
  hidden global state, no wall-clock reads.

REVENUE SEMANTICS:
  YTDRevenue counts paid invoices issued within the target year up to
  now. PendingInvoicesTotal counts pending/submitted/overdue amounts
  regardless of issue year - outstanding money doesn't expire at
  year-end.

SEE ALSO:
  - status.go: Active engagement derivation
  - lifecycle.go: Status semantics
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARY TYPES
// =============================================================================

// ReportInput is a user's full dataset plus the target year and the
// reference now.
type ReportInput struct {
	Engagements []Engagement
	TimeLogs    []TimeLog
	Invoices    []Invoice
	Year        int
	Now         Date
}

// YearSummary is the dashboard summary object.
type YearSummary struct {
	Year                 int
	YTDRevenue           decimal.Decimal
	ActiveEngagements    int
	MonthlyHours         [12]decimal.Decimal // index 0 = January
	PendingInvoicesTotal decimal.Decimal
	Clients              []ClientRollup
}

// ClientRollup is the per-client slice of the summary.
type ClientRollup struct {
	ClientID    ClientID
	Hours       decimal.Decimal // hours logged in the target year
	Billed      decimal.Decimal // invoice totals issued in the target year
	Outstanding decimal.Decimal // unpaid invoice totals, any year
}

func isOutstanding(status InvoiceStatus) bool {
	return status == InvoicePending || status == InvoiceSubmitted || status == InvoiceOverdue
}

// =============================================================================
// SUMMARIZE
// =============================================================================

// Summarize computes the dashboard summary for the target year.
func Summarize(in ReportInput) YearSummary {
	s := YearSummary{
		Year:                 in.Year,
		YTDRevenue:           decimal.Zero,
		PendingInvoicesTotal: decimal.Zero,
	}
	for i := range s.MonthlyHours {
		s.MonthlyHours[i] = decimal.Zero
	}

	clientOf := make(map[EngagementID]ClientID, len(in.Engagements))
	rollups := make(map[ClientID]*ClientRollup)
	rollup := func(id ClientID) *ClientRollup {
		r, ok := rollups[id]
		if !ok {
			r = &ClientRollup{
				ClientID:    id,
				Hours:       decimal.Zero,
				Billed:      decimal.Zero,
				Outstanding: decimal.Zero,
			}
			rollups[id] = r
		}
		return r
	}

	for _, e := range in.Engagements {
		clientOf[e.ID] = e.ClientID
		rollup(e.ClientID)
		if e.Status(in.Now) == StatusActive {
			s.ActiveEngagements++
		}
	}

	for _, log := range in.TimeLogs {
		if log.Date.Year() != in.Year {
			continue
		}
		month := int(log.Date.Month()) - 1
		s.MonthlyHours[month] = s.MonthlyHours[month].Add(log.Hours)
		if clientID, ok := clientOf[log.EngagementID]; ok {
			rollup(clientID).Hours = rollup(clientID).Hours.Add(log.Hours)
		}
	}

	for _, inv := range in.Invoices {
		inYear := inv.IssueDate.Year() == in.Year && inv.IssueDate.BeforeOrEqual(in.Now)
		r := rollup(inv.ClientID)

		if inv.Status == InvoicePaid && inYear {
			s.YTDRevenue = s.YTDRevenue.Add(inv.TotalAmount)
		}
		if isOutstanding(inv.Status) {
			s.PendingInvoicesTotal = s.PendingInvoicesTotal.Add(inv.TotalAmount)
			r.Outstanding = r.Outstanding.Add(inv.TotalAmount)
		}
		if inYear {
			r.Billed = r.Billed.Add(inv.TotalAmount)
		}
	}

	s.Clients = make([]ClientRollup, 0, len(rollups))
	for _, r := range rollups {
		s.Clients = append(s.Clients, *r)
	}
	sort.Slice(s.Clients, func(i, j int) bool { return s.Clients[i].ClientID < s.Clients[j].ClientID })

	return s
}
