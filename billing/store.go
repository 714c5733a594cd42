/*
store.go - Persistence interfaces for billing records

PURPOSE:
  Defines the boundary between the pure billing engine and storage.
  Implementations: store/sqlite (production) and store/memory (tests).

SHAPE THE CORE DICTATES:
  - Engagements never persist a status column as authoritative data;
    status is a read-time projection of the dates (status.go).
  - Invoice totals are persisted as caches derived from line items at
    write time; SaveInvoice writes invoice + line items atomically and
    recomputes totals rather than trusting the caller's.
  - Invoice generation for a given (engagement, period) is serialized:
    at most one in-flight aggregation per key. AggregationGuard is the
    lock-by-key contract; violations surface as
    ConcurrentAggregationError, a signal to retry, never to ignore.

SEE ALSO:
  - store/sqlite/sqlite.go: Production implementation
  - store/memory/memory.go: In-memory implementation for tests
*/
package billing

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS
// =============================================================================

// TimeLogFilter narrows time log listings. Nil fields mean no filtering.
type TimeLogFilter struct {
	EngagementID *EngagementID
	Range        *DateRange // applies to the log date
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	ClientID     *ClientID
	EngagementID *EngagementID
	Status       *InvoiceStatus
	Range        *DateRange // applies to the issue date
}

// =============================================================================
// STORES
// =============================================================================

// ClientStore persists clients. Get returns (nil, nil) when missing.
type ClientStore interface {
	SaveClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id ClientID) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)

	// DeleteClient fails with ErrClientHasActiveEngagements while any
	// engagement referencing the client is active as of now. Otherwise
	// it removes the client together with its engagements, their time
	// logs, and the client's invoices.
	DeleteClient(ctx context.Context, id ClientID, now Date) error
}

// EngagementStore persists engagements. No status column exists.
type EngagementStore interface {
	SaveEngagement(ctx context.Context, e Engagement) error
	GetEngagement(ctx context.Context, id EngagementID) (*Engagement, error)
	ListEngagements(ctx context.Context, clientID *ClientID) ([]Engagement, error)

	// DeleteEngagement fails with ErrEngagementHasRecords while time
	// logs or invoices reference the engagement.
	DeleteEngagement(ctx context.Context, id EngagementID) error
}

// TimeLogStore persists time logs. EngagementID is immutable after
// creation; SaveTimeLog on an existing id must not change it.
type TimeLogStore interface {
	SaveTimeLog(ctx context.Context, log TimeLog) error
	GetTimeLog(ctx context.Context, id TimeLogID) (*TimeLog, error)
	ListTimeLogs(ctx context.Context, filter TimeLogFilter) ([]TimeLog, error)
	DeleteTimeLog(ctx context.Context, id TimeLogID) error
}

// InvoiceStore persists invoices with their line items.
type InvoiceStore interface {
	// SaveInvoice writes the invoice and its line items atomically,
	// recomputing totals from the line items.
	SaveInvoice(ctx context.Context, inv Invoice) error

	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// UpdateInvoiceStatus persists a lifecycle transition. Line items
	// and totals are untouched.
	UpdateInvoiceStatus(ctx context.Context, id InvoiceID, status InvoiceStatus, at time.Time) error

	// DeleteInvoice removes the invoice and its line items. Time logs
	// are untouched (line items back-reference them non-owningly).
	DeleteInvoice(ctx context.Context, id InvoiceID) error

	// NextInvoiceNumber returns the next sequential number for the
	// issue year, e.g. "INV-2025-0007".
	NextInvoiceNumber(ctx context.Context, year int) (string, error)
}

// AggregationGuard serializes invoice generation per (engagement,
// period). Acquire fails with ConcurrentAggregationError while another
// aggregation holds the same key; release must always be called.
type AggregationGuard interface {
	AcquireAggregation(engagementID EngagementID, period Period) (release func(), err error)
}

// Store is the full persistence surface the API layer depends on.
type Store interface {
	ClientStore
	EngagementStore
	TimeLogStore
	InvoiceStore
	AggregationGuard

	Close() error
}
