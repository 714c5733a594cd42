/*
Package memory provides an in-memory implementation of the billing
storage interfaces for testing.

PURPOSE:
  Same contracts as store/sqlite without a database: handler tests and
  examples run against it directly. Not for production use - nothing
  survives process exit.

SEE ALSO:
  - billing/store.go: Interface definitions
  - store/sqlite: Production implementation
*/
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/practice-engine/billing"
)

// Store implements billing.Store with in-memory maps.
type Store struct {
	mu sync.RWMutex

	clients     map[billing.ClientID]billing.Client
	engagements map[billing.EngagementID]billing.Engagement
	timeLogs    map[billing.TimeLogID]billing.TimeLog
	invoices    map[billing.InvoiceID]billing.Invoice

	aggMu    sync.Mutex
	inFlight map[string]struct{}
}

var _ billing.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		clients:     make(map[billing.ClientID]billing.Client),
		engagements: make(map[billing.EngagementID]billing.Engagement),
		timeLogs:    make(map[billing.TimeLogID]billing.TimeLog),
		invoices:    make(map[billing.InvoiceID]billing.Invoice),
		inFlight:    make(map[string]struct{}),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// =============================================================================
// CLIENT STORE
// =============================================================================

func (s *Store) SaveClient(ctx context.Context, c billing.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if existing, ok := s.clients[c.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	}
	s.clients[c.ID] = c
	return nil
}

func (s *Store) GetClient(ctx context.Context, id billing.ClientID) (*billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]billing.Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].Name != clients[j].Name {
			return clients[i].Name < clients[j].Name
		}
		return clients[i].ID < clients[j].ID
	})
	return clients, nil
}

func (s *Store) DeleteClient(ctx context.Context, id billing.ClientID, now billing.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		return billing.ErrClientNotFound
	}
	for _, e := range s.engagements {
		if e.ClientID == id && e.Status(now) == billing.StatusActive {
			return billing.ErrClientHasActiveEngagements
		}
	}

	// Deletion takes the client's whole subtree: engagements, their time
	// logs, and the client's invoices. Same semantics as store/sqlite.
	for eid, e := range s.engagements {
		if e.ClientID != id {
			continue
		}
		for lid, log := range s.timeLogs {
			if log.EngagementID == eid {
				delete(s.timeLogs, lid)
			}
		}
		delete(s.engagements, eid)
	}
	for iid, inv := range s.invoices {
		if inv.ClientID == id {
			delete(s.invoices, iid)
		}
	}
	delete(s.clients, id)
	return nil
}

// =============================================================================
// ENGAGEMENT STORE
// =============================================================================

func (s *Store) SaveEngagement(ctx context.Context, e billing.Engagement) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if existing, ok := s.engagements[e.ID]; ok {
		e.CreatedAt = existing.CreatedAt
	}
	s.engagements[e.ID] = e
	return nil
}

func (s *Store) GetEngagement(ctx context.Context, id billing.EngagementID) (*billing.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.engagements[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) ListEngagements(ctx context.Context, clientID *billing.ClientID) ([]billing.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var engagements []billing.Engagement
	for _, e := range s.engagements {
		if clientID != nil && e.ClientID != *clientID {
			continue
		}
		engagements = append(engagements, e)
	}
	sort.Slice(engagements, func(i, j int) bool {
		if !engagements[i].StartDate.Equal(engagements[j].StartDate) {
			return engagements[i].StartDate.Before(engagements[j].StartDate)
		}
		return engagements[i].ID < engagements[j].ID
	})
	return engagements, nil
}

func (s *Store) DeleteEngagement(ctx context.Context, id billing.EngagementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.engagements[id]; !ok {
		return billing.ErrEngagementNotFound
	}
	for _, log := range s.timeLogs {
		if log.EngagementID == id {
			return billing.ErrEngagementHasRecords
		}
	}
	for _, inv := range s.invoices {
		if inv.EngagementID == id {
			return billing.ErrEngagementHasRecords
		}
	}
	delete(s.engagements, id)
	return nil
}

// =============================================================================
// TIME LOG STORE
// =============================================================================

func (s *Store) SaveTimeLog(ctx context.Context, log billing.TimeLog) error {
	if err := billing.ValidateHours(log.Hours); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if existing, ok := s.timeLogs[log.ID]; ok {
		// EngagementID is immutable after creation.
		log.EngagementID = existing.EngagementID
		log.CreatedAt = existing.CreatedAt
	}
	s.timeLogs[log.ID] = log
	return nil
}

func (s *Store) GetTimeLog(ctx context.Context, id billing.TimeLogID) (*billing.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.timeLogs[id]
	if !ok {
		return nil, nil
	}
	return &log, nil
}

func (s *Store) ListTimeLogs(ctx context.Context, filter billing.TimeLogFilter) ([]billing.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []billing.TimeLog
	for _, log := range s.timeLogs {
		if filter.EngagementID != nil && log.EngagementID != *filter.EngagementID {
			continue
		}
		if filter.Range != nil && !filter.Range.Contains(log.Date) {
			continue
		}
		logs = append(logs, log)
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Date.Before(logs[j].Date)
		}
		return logs[i].ID < logs[j].ID
	})
	return logs, nil
}

func (s *Store) DeleteTimeLog(ctx context.Context, id billing.TimeLogID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.timeLogs[id]; !ok {
		return billing.ErrTimeLogNotFound
	}
	delete(s.timeLogs, id)
	return nil
}

// =============================================================================
// INVOICE STORE
// =============================================================================

func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One invoice per (engagement, period), same as the sqlite unique index.
	if inv.EngagementID != "" {
		for _, existing := range s.invoices {
			if existing.ID != inv.ID &&
				existing.EngagementID == inv.EngagementID &&
				existing.Period.Start.Equal(inv.Period.Start) &&
				existing.Period.End.Equal(inv.Period.End) {
				return &billing.ConcurrentAggregationError{EngagementID: inv.EngagementID, Period: inv.Period}
			}
		}
	}

	// Numbers are unique across all invoices, same as the sqlite column.
	for _, existing := range s.invoices {
		if existing.ID != inv.ID && existing.Number == inv.Number {
			return fmt.Errorf("invoice number %s: %w", inv.Number, billing.ErrDuplicateInvoiceNumber)
		}
	}

	// Totals are a cache of the line-item sums, recomputed on write.
	inv.TotalHours, inv.TotalAmount = lineTotals(inv.LineItems)

	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	s.invoices[inv.ID] = inv
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var invoices []billing.Invoice
	for _, inv := range s.invoices {
		if filter.ClientID != nil && inv.ClientID != *filter.ClientID {
			continue
		}
		if filter.EngagementID != nil && inv.EngagementID != *filter.EngagementID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		if filter.Range != nil && !filter.Range.Contains(inv.IssueDate) {
			continue
		}
		invoices = append(invoices, inv)
	}
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].IssueDate.Equal(invoices[j].IssueDate) {
			return invoices[i].IssueDate.After(invoices[j].IssueDate)
		}
		return invoices[i].Number > invoices[j].Number
	})
	return invoices, nil
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id billing.InvoiceID, status billing.InvoiceStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return billing.ErrInvoiceNotFound
	}
	inv.Status = status
	inv.LastStatusChangeAt = at
	s.invoices[id] = inv
	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id billing.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[id]; !ok {
		return billing.ErrInvoiceNotFound
	}
	delete(s.invoices, id)
	return nil
}

func (s *Store) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, inv := range s.invoices {
		if inv.IssueDate.Year() == year {
			count++
		}
	}
	return fmt.Sprintf("INV-%d-%04d", year, count+1), nil
}

// =============================================================================
// AGGREGATION GUARD
// =============================================================================

func (s *Store) AcquireAggregation(engagementID billing.EngagementID, period billing.Period) (func(), error) {
	key := string(engagementID) + "|" + period.Key()

	s.aggMu.Lock()
	defer s.aggMu.Unlock()

	if _, held := s.inFlight[key]; held {
		return nil, &billing.ConcurrentAggregationError{EngagementID: engagementID, Period: period}
	}
	s.inFlight[key] = struct{}{}

	return func() {
		s.aggMu.Lock()
		defer s.aggMu.Unlock()
		delete(s.inFlight, key)
	}, nil
}

func lineTotals(items []billing.LineItem) (hours, amount decimal.Decimal) {
	hours, amount = decimal.Zero, decimal.Zero
	for _, item := range items {
		hours = hours.Add(item.Hours)
		amount = amount.Add(item.Amount)
	}
	return hours, amount
}
