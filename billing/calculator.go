/*
calculator.go - Billable amount for a single time entry

PURPOSE:
  Computes the monetary value of one time log given its engagement's
  billing mode. Exact decimal arithmetic throughout; floats never touch
  money.

MODE DISTINCTION (keep this explicit):
  Hourly:  amount = hours * hourlyRate, per line item.
  Project: time logs track effort only. The per-log amount is zero;
           the engagement's totalCost is applied ONCE at invoice
           generation (aggregate.go), never apportioned across logs.
  Conflating the two produces incorrect invoices.

SEE ALSO:
  - aggregate.go: Applies these amounts to build invoice drafts
  - errors.go: MissingRateError
*/
package billing

import "github.com/shopspring/decimal"

// BillableAmount computes the monetary value of a single time log under
// its engagement's billing mode. For hourly engagements this is
// hours * hourlyRate; for project engagements it is zero (effort
// visibility only - the fixed cost is applied at invoice time).
func BillableAmount(log TimeLog, engagement Engagement) (decimal.Decimal, error) {
	switch engagement.Mode {
	case ModeProject:
		// Effort only. Validate the mode's own rate field so a
		// misconfigured engagement fails here, not at invoice time.
		if _, err := engagement.FixedCost(); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, nil

	case ModeHourly:
		rate, err := engagement.Rate()
		if err != nil {
			return decimal.Zero, err
		}
		return log.Hours.Mul(rate), nil

	default:
		// Never bill an unrecognized mode as hourly.
		return decimal.Zero, ErrUnknownBillingMode
	}
}
