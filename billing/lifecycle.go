/*
lifecycle.go - Invoice status transitions

PURPOSE:
  The canonical place where invoice status changes. Transitions are
  deliberately unconstrained today (any status to any other, supporting
  manual correction); isolating them behind this function means a
  stricter state machine can be substituted later without touching
  callers.

ADVISORY OVERDUE:
  RecommendedStatus flags overdue when the due date has passed and the
  invoice isn't paid. It never mutates stored status - there is no
  background sweep; recency depends entirely on when callers
  re-evaluate it.

SEE ALSO:
  - types.go: InvoiceStatus values, ParseInvoiceStatus
  - aggregate.go: Drafts enter the lifecycle at InvoicePending
*/
package billing

import "time"

// Transition moves an invoice to the requested status and stamps
// LastStatusChangeAt. All transitions are legal at this layer; requested
// statuses are assumed validated (ParseInvoiceStatus) at the boundary.
// Nothing else on the invoice is mutated - line items are immutable
// post-creation.
func Transition(invoice *Invoice, requested InvoiceStatus, now time.Time) InvoiceStatus {
	invoice.Status = requested
	invoice.LastStatusChangeAt = now
	return invoice.Status
}

// RecommendedStatus returns the status the invoice ought to display as of
// now: overdue when past due and not paid, otherwise the stored status.
// Advisory only; callers decide whether to apply it via Transition.
func RecommendedStatus(invoice Invoice, now Date) InvoiceStatus {
	if invoice.Status != InvoicePaid && now.After(invoice.DueDate) {
		return InvoiceOverdue
	}
	return invoice.Status
}
