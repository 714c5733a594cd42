/*
aggregate.go - Time logs to invoice draft

PURPOSE:
  Selects the time logs belonging to an engagement within a billing
  period, validates completeness, and produces an ordered set of line
  items plus derived totals. The output is a draft: it becomes a
  persisted Invoice only once the store assigns an id, number, issue
  date and due date (Issue).

ALGORITHM:
  1. Filter candidates to engagementId + date within [start, end].
  2. Hourly: one line item per log, amount from calculator.go.
  3. Project: a single fixed-cost line (full totalCost or a caller
     milestone amount); hours carry the period's logged total for
     display only.
  4. Sort by date ascending, ties by time-log id ascending, so the
     same inputs always produce the same invoice document.
  5. Hourly drafts with zero logs fail with EmptyPeriodError; project
     drafts may be empty since the line is the fixed cost.

TOTALS INVARIANT:
  TotalAmount == sum(line.Amount) and TotalHours == sum(line.Hours),
  derived here and only here. No caller ever sets a total.

CONCURRENCY:
  Aggregate itself is pure. Serializing generation per
  (engagement, period) is the store's job (see AggregationGuard).

SEE ALSO:
  - calculator.go: Per-log amounts
  - store.go: AggregationGuard contract
  - lifecycle.go: Status transitions after issue
*/
package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DRAFT
// =============================================================================

// InvoiceDraft is an aggregated but not yet persisted invoice. Totals
// are derived from the line items at construction.
type InvoiceDraft struct {
	ClientID     ClientID
	EngagementID EngagementID
	Period       Period
	LineItems    []LineItem
	TotalHours   decimal.Decimal
	TotalAmount  decimal.Decimal
}

// Issue finalizes a draft into a pending Invoice. The due date is the
// issue date plus the net terms.
func (d *InvoiceDraft) Issue(id InvoiceID, number string, issueDate Date, netTermsDays int, now time.Time) Invoice {
	return Invoice{
		ID:                 id,
		ClientID:           d.ClientID,
		EngagementID:       d.EngagementID,
		Number:             number,
		IssueDate:          issueDate,
		DueDate:            issueDate.AddDays(netTermsDays),
		NetTermsDays:       netTermsDays,
		Period:             d.Period,
		Status:             InvoicePending,
		LineItems:          d.LineItems,
		TotalHours:         d.TotalHours,
		TotalAmount:        d.TotalAmount,
		LastStatusChangeAt: now,
		CreatedAt:          now,
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate builds an invoice draft for an engagement over a billing
// period. Project engagements bill their full fixed cost; use
// AggregateMilestone to bill a partial amount.
func Aggregate(engagement Engagement, period Period, candidates []TimeLog) (*InvoiceDraft, error) {
	return aggregate(engagement, period, candidates, nil)
}

// AggregateMilestone builds a project-engagement draft billing a
// caller-specified partial amount instead of the full total cost.
func AggregateMilestone(engagement Engagement, period Period, candidates []TimeLog, amount decimal.Decimal) (*InvoiceDraft, error) {
	return aggregate(engagement, period, candidates, &amount)
}

func aggregate(engagement Engagement, period Period, candidates []TimeLog, milestone *decimal.Decimal) (*InvoiceDraft, error) {
	if !period.Valid() {
		return nil, &InvalidRangeError{Start: period.Start, End: period.End}
	}

	logs := filterLogs(engagement.ID, period, candidates)

	var items []LineItem
	switch engagement.Mode {
	case ModeProject:
		item, err := fixedCostLine(engagement, period, logs, milestone)
		if err != nil {
			return nil, err
		}
		items = []LineItem{item}

	case ModeHourly:
		if len(logs) == 0 {
			return nil, &EmptyPeriodError{EngagementID: engagement.ID, Period: period}
		}
		rate, err := engagement.Rate()
		if err != nil {
			return nil, err
		}
		items = make([]LineItem, 0, len(logs))
		for _, log := range logs {
			amount, err := BillableAmount(log, engagement)
			if err != nil {
				return nil, err
			}
			items = append(items, LineItem{
				TimeLogID:   log.ID,
				Date:        log.Date,
				Hours:       log.Hours,
				Description: log.Description,
				UnitRate:    rate,
				Amount:      amount,
			})
		}

	default:
		return nil, ErrUnknownBillingMode
	}

	sortLineItems(items)

	draft := &InvoiceDraft{
		ClientID:     engagement.ClientID,
		EngagementID: engagement.ID,
		Period:       period,
		LineItems:    items,
	}
	draft.TotalHours, draft.TotalAmount = sumLineItems(items)
	return draft, nil
}

// filterLogs keeps candidates belonging to the engagement with dates in
// the closed period.
func filterLogs(id EngagementID, period Period, candidates []TimeLog) []TimeLog {
	var logs []TimeLog
	for _, log := range candidates {
		if log.EngagementID == id && period.Contains(log.Date) {
			logs = append(logs, log)
		}
	}
	return logs
}

// fixedCostLine builds the single synthetic line for a project
// engagement. Hours carry the period's logged total for informational
// display; they never drive the amount.
func fixedCostLine(engagement Engagement, period Period, logs []TimeLog, milestone *decimal.Decimal) (LineItem, error) {
	amount, err := engagement.FixedCost()
	if err != nil {
		return LineItem{}, err
	}
	if milestone != nil {
		amount = *milestone
	}

	hours := decimal.Zero
	for _, log := range logs {
		hours = hours.Add(log.Hours)
	}

	return LineItem{
		Date:        period.End,
		Hours:       hours,
		Description: engagement.ProjectName + " - fixed project cost",
		UnitRate:    amount,
		Amount:      amount,
	}, nil
}

// sortLineItems orders by date ascending, ties broken by time-log id
// ascending. Stable, deterministic order is required for reproducible
// invoice documents.
func sortLineItems(items []LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].TimeLogID < items[j].TimeLogID
	})
}

func sumLineItems(items []LineItem) (hours, amount decimal.Decimal) {
	hours, amount = decimal.Zero, decimal.Zero
	for _, item := range items {
		hours = hours.Add(item.Hours)
		amount = amount.Add(item.Amount)
	}
	return hours, amount
}
