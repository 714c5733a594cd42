package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/practice-engine/billing"
)

func pendingInvoice(issue billing.Date, netTerms int) billing.Invoice {
	return billing.Invoice{
		ID:           "inv-1",
		ClientID:     "client-1",
		EngagementID: "eng-1",
		Number:       "INV-2025-0001",
		IssueDate:    issue,
		DueDate:      issue.AddDays(netTerms),
		NetTermsDays: netTerms,
		Status:       billing.InvoicePending,
	}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestTransition_AnyStatusToAnyStatus(t *testing.T) {
	// Manual correction is a first-class operation: paid back to pending,
	// overdue back to submitted, everything is legal.
	all := []billing.InvoiceStatus{
		billing.InvoicePending, billing.InvoiceSubmitted,
		billing.InvoicePaid, billing.InvoiceOverdue,
	}
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

	for _, from := range all {
		for _, to := range all {
			inv := pendingInvoice(d(2025, time.May, 1), 30)
			inv.Status = from

			got := billing.Transition(&inv, to, now)

			assert.Equal(t, to, got, "%s -> %s", from, to)
			assert.Equal(t, to, inv.Status)
		}
	}
}

func TestTransition_StampsStatusChangeTime(t *testing.T) {
	inv := pendingInvoice(d(2025, time.May, 1), 30)
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

	billing.Transition(&inv, billing.InvoiceSubmitted, now)

	assert.Equal(t, now, inv.LastStatusChangeAt)
}

func TestTransition_LeavesLineItemsAlone(t *testing.T) {
	inv := pendingInvoice(d(2025, time.May, 1), 30)
	inv.LineItems = []billing.LineItem{{TimeLogID: "log-1", Hours: dec(3)}}
	inv.TotalHours = dec(3)

	billing.Transition(&inv, billing.InvoicePaid, time.Now())

	assert.Len(t, inv.LineItems, 1)
	assert.True(t, inv.TotalHours.Equal(dec(3)))
}

func TestParseInvoiceStatus_RejectsUnknown(t *testing.T) {
	_, err := billing.ParseInvoiceStatus("cancelled")
	assert.ErrorIs(t, err, billing.ErrUnknownStatus)

	status, err := billing.ParseInvoiceStatus("submitted")
	assert.NoError(t, err)
	assert.Equal(t, billing.InvoiceSubmitted, status)
}

// =============================================================================
// ADVISORY OVERDUE
// =============================================================================

func TestRecommendedStatus_PastDueUnpaid_Overdue(t *testing.T) {
	// GIVEN: An invoice due June 1, still submitted
	// WHEN: Evaluated on June 2
	// THEN: Recommendation is overdue; the stored status is untouched

	inv := pendingInvoice(d(2025, time.May, 2), 30) // due June 1
	inv.Status = billing.InvoiceSubmitted

	got := billing.RecommendedStatus(inv, d(2025, time.June, 2))

	assert.Equal(t, billing.InvoiceOverdue, got)
	assert.Equal(t, billing.InvoiceSubmitted, inv.Status, "advisory only")
}

func TestRecommendedStatus_OnDueDate_NotOverdue(t *testing.T) {
	// The due date itself is still on time.
	inv := pendingInvoice(d(2025, time.May, 2), 30)

	got := billing.RecommendedStatus(inv, d(2025, time.June, 1))

	assert.Equal(t, billing.InvoicePending, got)
}

func TestRecommendedStatus_PaidNeverOverdue(t *testing.T) {
	inv := pendingInvoice(d(2025, time.May, 2), 30)
	inv.Status = billing.InvoicePaid

	got := billing.RecommendedStatus(inv, d(2026, time.January, 1))

	assert.Equal(t, billing.InvoicePaid, got)
}
