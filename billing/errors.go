/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure in this package is deterministic and input-derived:
  callers receive a stable, named error per condition and decide
  themselves how to present or retry it. Nothing here silently
  defaults (unknown filter tokens are rejected, never coerced to
  "all time").

ERROR CATEGORIES:
  1. Range errors       - Malformed or unrecognized date-range input
  2. Billing errors     - Rate/mode inconsistencies, empty drafts
  3. Concurrency errors - Aggregation serialization violations
  4. Record errors      - Missing or still-referenced entities

USAGE:
  Callers match with errors.Is():

    if errors.Is(err, billing.ErrEmptyPeriod) {
        // no billable work in the requested period
    }

SEE ALSO:
  - daterange.go: Raises range errors
  - calculator.go, aggregate.go: Raise billing errors
  - store.go: Store implementations raise record/concurrency errors
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned for malformed custom bounds (start after end).
	ErrInvalidRange = errors.New("invalid range: start after end")

	// ErrUnknownRangeToken is returned for unrecognized filter tokens.
	// The legacy behavior of falling back to "all time" was a bug; tokens
	// must fail loudly.
	ErrUnknownRangeToken = errors.New("unknown range token")

	// ErrMissingRate is returned when an engagement's billing mode is
	// inconsistent with its rate fields (hourly without hourlyRate,
	// project without totalCost).
	ErrMissingRate = errors.New("missing rate for billing mode")

	// ErrEmptyPeriod is returned when an hourly invoice draft is requested
	// for a period containing zero time logs.
	ErrEmptyPeriod = errors.New("no billable time logs in period")

	// ErrConcurrentAggregation is returned when a second aggregation for
	// the same (engagement, period) is already in flight or persisted.
	// The caller may retry once the conflicting aggregation completes.
	ErrConcurrentAggregation = errors.New("concurrent aggregation for engagement and period")

	// ErrHoursOutOfRange is returned when a time log's hours violate the
	// business bound 0 < hours <= 8.
	ErrHoursOutOfRange = errors.New("hours must be greater than 0 and at most 8")

	// ErrUnknownStatus is returned when a requested invoice status string
	// is not one of the known lifecycle states.
	ErrUnknownStatus = errors.New("unknown invoice status")

	// ErrUnknownBillingMode is returned when an engagement's billing mode
	// is not hourly or project. Unknown modes must never fall through to
	// hourly billing.
	ErrUnknownBillingMode = errors.New("unknown billing mode")

	// ErrDuplicateInvoiceNumber is returned when a concurrently generated
	// invoice claimed the same number first. Re-read the sequence and
	// retry.
	ErrDuplicateInvoiceNumber = errors.New("invoice number already used")

	// ErrClientNotFound is returned when a referenced client doesn't exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrEngagementNotFound is returned when a referenced engagement doesn't exist.
	ErrEngagementNotFound = errors.New("engagement not found")

	// ErrTimeLogNotFound is returned when a referenced time log doesn't exist.
	ErrTimeLogNotFound = errors.New("time log not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrClientHasActiveEngagements blocks client deletion while any
	// engagement referencing it is active.
	ErrClientHasActiveEngagements = errors.New("client has active engagements")

	// ErrEngagementHasRecords blocks engagement deletion while time logs
	// or invoices reference it.
	ErrEngagementHasRecords = errors.New("engagement has time logs or invoices")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRangeError provides the offending bounds of a malformed custom range.
type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s after end %s", e.Start, e.End)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// UnknownRangeTokenError identifies the unrecognized token.
type UnknownRangeTokenError struct {
	Token string
}

func (e *UnknownRangeTokenError) Error() string {
	return fmt.Sprintf("unknown range token %q", e.Token)
}

func (e *UnknownRangeTokenError) Unwrap() error { return ErrUnknownRangeToken }

// MissingRateError identifies which engagement and mode lacked a rate.
type MissingRateError struct {
	EngagementID EngagementID
	Mode         BillingMode
}

func (e *MissingRateError) Error() string {
	field := "hourly_rate"
	if e.Mode == ModeProject {
		field = "total_cost"
	}
	return fmt.Sprintf("engagement %s: billing mode %q requires %s", e.EngagementID, e.Mode, field)
}

func (e *MissingRateError) Unwrap() error { return ErrMissingRate }

// EmptyPeriodError identifies the engagement and period that produced no work.
type EmptyPeriodError struct {
	EngagementID EngagementID
	Period       Period
}

func (e *EmptyPeriodError) Error() string {
	return fmt.Sprintf("engagement %s: no time logs in %s", e.EngagementID, e.Period)
}

func (e *EmptyPeriodError) Unwrap() error { return ErrEmptyPeriod }

// ConcurrentAggregationError identifies the contested (engagement, period) key.
type ConcurrentAggregationError struct {
	EngagementID EngagementID
	Period       Period
}

func (e *ConcurrentAggregationError) Error() string {
	return fmt.Sprintf("engagement %s: aggregation already in flight for %s", e.EngagementID, e.Period)
}

func (e *ConcurrentAggregationError) Unwrap() error { return ErrConcurrentAggregation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
// Only write-write conflicts qualify; everything else is input-derived.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentAggregation) ||
		errors.Is(err, ErrDuplicateInvoiceNumber)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrUnknownRangeToken) ||
		errors.Is(err, ErrMissingRate) ||
		errors.Is(err, ErrEmptyPeriod) ||
		errors.Is(err, ErrHoursOutOfRange) ||
		errors.Is(err, ErrUnknownStatus) ||
		errors.Is(err, ErrUnknownBillingMode) ||
		errors.Is(err, ErrClientHasActiveEngagements) ||
		errors.Is(err, ErrEngagementHasRecords)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrEngagementNotFound) ||
		errors.Is(err, ErrTimeLogNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}
