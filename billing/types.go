/*
Package billing provides the core billing and invoice aggregation engine.

PURPOSE:
  This package contains the domain types and pure computations that turn
  raw time entries and engagement contracts into invoices: date-range
  resolution, derived engagement status, billable-amount calculation,
  invoice aggregation, the invoice status lifecycle, and dashboard
  reporting. Everything here is a pure function over explicit inputs;
  persistence and HTTP live behind the interfaces in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Client:     Who gets billed (identity + billing contact)
  - Engagement: A contracted unit of work, billed hourly or fixed-cost
  - TimeLog:    A dated entry of hours worked against an engagement
  - Invoice:    Issued billing document with ordered line items
  - LineItem:   One invoice row (billed hours or a fixed charge)

DESIGN PRINCIPLES:
  1. Derived state: engagement status and invoice totals are computed,
     never independently settable fields
  2. Precision: decimal.Decimal for all money and hours arithmetic
  3. Type safety: distinct ID types prevent cross-entity mixups
  4. Determinism: every computation is parameterized by an explicit
     reference date, never wall-clock time

SEE ALSO:
  - daterange.go: Filter token resolution
  - status.go: Derived engagement status
  - calculator.go: Per-log billable amounts
  - aggregate.go: Time logs -> invoice draft
  - lifecycle.go: Invoice status transitions
  - reporting.go: Dashboard rollups
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type EngagementID string
type TimeLogID string
type InvoiceID string

// =============================================================================
// CLIENT
// =============================================================================

// BillingContact is who receives the invoice.
type BillingContact struct {
	Name       string
	Email      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// Client is a consulting customer. Deletion is forbidden while any
// engagement referencing it is active; the store enforces this.
type Client struct {
	ID        ClientID
	Name      string
	Contact   BillingContact
	CreatedAt time.Time
}

// =============================================================================
// ENGAGEMENT
// =============================================================================

// BillingMode selects how an engagement is billed.
type BillingMode string

const (
	// ModeHourly bills each logged hour at the engagement's hourly rate.
	ModeHourly BillingMode = "hourly"

	// ModeProject bills a fixed total cost once at invoice time; time
	// logs under project engagements track effort only.
	ModeProject BillingMode = "project"
)

// ParseBillingMode validates a mode string at the boundary so unknown
// modes never reach the calculator or aggregator.
func ParseBillingMode(s string) (BillingMode, error) {
	switch BillingMode(s) {
	case ModeHourly, ModeProject:
		return BillingMode(s), nil
	}
	return "", ErrUnknownBillingMode
}

// Engagement is a contracted unit of consulting work. Its status is
// ALWAYS derived from the dates and a reference now (see status.go);
// nothing persists a status as an authoritative value.
type Engagement struct {
	ID          EngagementID
	ClientID    ClientID
	ProjectName string
	StartDate   Date
	EndDate     Date // inclusive
	Mode        BillingMode
	HourlyRate  *decimal.Decimal // required iff Mode == ModeHourly
	TotalCost   *decimal.Decimal // required iff Mode == ModeProject
	Description string
	CreatedAt   time.Time
}

// Span returns the engagement's own date range.
func (e Engagement) Span() Period {
	return Period{Start: e.StartDate, End: e.EndDate}
}

// Rate returns the hourly rate, failing if the engagement is hourly-billed
// without one.
func (e Engagement) Rate() (decimal.Decimal, error) {
	if e.HourlyRate == nil {
		return decimal.Zero, &MissingRateError{EngagementID: e.ID, Mode: ModeHourly}
	}
	return *e.HourlyRate, nil
}

// FixedCost returns the project total cost, failing if the engagement is
// project-billed without one.
func (e Engagement) FixedCost() (decimal.Decimal, error) {
	if e.TotalCost == nil {
		return decimal.Zero, &MissingRateError{EngagementID: e.ID, Mode: ModeProject}
	}
	return *e.TotalCost, nil
}

// Validate checks date ordering and mode/rate consistency.
func (e Engagement) Validate() error {
	if !e.Span().Valid() {
		return &InvalidRangeError{Start: e.StartDate, End: e.EndDate}
	}
	switch e.Mode {
	case ModeHourly:
		if e.HourlyRate == nil {
			return &MissingRateError{EngagementID: e.ID, Mode: ModeHourly}
		}
	case ModeProject:
		if e.TotalCost == nil {
			return &MissingRateError{EngagementID: e.ID, Mode: ModeProject}
		}
	default:
		return ErrUnknownBillingMode
	}
	return nil
}

// =============================================================================
// TIME LOG
// =============================================================================

// MaxDailyHours bounds a single time entry. A business rule, not a
// physical limit: consultants log at most a working day per entry.
var MaxDailyHours = decimal.NewFromInt(8)

// TimeLog is a single dated entry of hours worked against an engagement.
// EngagementID is immutable after creation. The billable amount is always
// derived (calculator.go), never stored.
type TimeLog struct {
	ID           TimeLogID
	EngagementID EngagementID
	Date         Date
	Hours        decimal.Decimal
	Description  string
	CreatedAt    time.Time
}

// NewTimeLog creates a validated time log.
func NewTimeLog(id TimeLogID, engagementID EngagementID, date Date, hours decimal.Decimal, description string) (TimeLog, error) {
	if err := ValidateHours(hours); err != nil {
		return TimeLog{}, err
	}
	return TimeLog{
		ID:           id,
		EngagementID: engagementID,
		Date:         date,
		Hours:        hours,
		Description:  description,
	}, nil
}

// ValidateHours enforces 0 < hours <= MaxDailyHours.
func ValidateHours(hours decimal.Decimal) error {
	if !hours.IsPositive() || hours.GreaterThan(MaxDailyHours) {
		return ErrHoursOutOfRange
	}
	return nil
}

// =============================================================================
// INVOICE
// =============================================================================

// InvoiceStatus is an invoice's lifecycle state. Transitions go through
// lifecycle.go only.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoiceSubmitted InvoiceStatus = "submitted"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
)

// ParseInvoiceStatus validates a status string at the boundary so the
// transition function never sees unknown states.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch InvoiceStatus(s) {
	case InvoicePending, InvoiceSubmitted, InvoicePaid, InvoiceOverdue:
		return InvoiceStatus(s), nil
	}
	return "", ErrUnknownStatus
}

// LineItem is one invoice row. TimeLogID back-references the source log
// for traceability only; it is empty for synthetic fixed-cost lines and
// never drives cascading deletes.
type LineItem struct {
	TimeLogID   TimeLogID
	Date        Date
	Hours       decimal.Decimal
	Description string
	UnitRate    decimal.Decimal
	Amount      decimal.Decimal
}

// Invoice is an issued billing document. TotalAmount and TotalHours are
// caches of the line-item sums, recomputed whenever line items are set;
// they are never accepted as independent input. Line items are immutable
// post-creation - corrections delete and regenerate the invoice.
type Invoice struct {
	ID           InvoiceID
	ClientID     ClientID
	EngagementID EngagementID // optional; empty for ad hoc invoices
	Number       string
	IssueDate    Date
	DueDate      Date
	NetTermsDays int
	Period       Period // billing period, distinct from the engagement span
	Status       InvoiceStatus
	Notes        string
	LineItems    []LineItem
	TotalHours   decimal.Decimal
	TotalAmount  decimal.Decimal

	LastStatusChangeAt time.Time
	CreatedAt          time.Time
}
