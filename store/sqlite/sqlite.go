/*
Package sqlite provides a SQLite-backed implementation of the billing
storage interfaces.

PURPOSE:
  Implements billing.Store using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  clients:            Billing customers
  engagements:        Contracted work (NO status column - status is a
                      read-time projection of the dates)
  time_logs:          Dated hour entries per engagement
  invoices:           Issued invoices; total_hours/total_amount are
                      caches recomputed from line items on every write
  invoice_line_items: Ordered invoice rows, written atomically with
                      their invoice

AGGREGATION SERIALIZATION:
  Invoice generation must be serialized per (engagement, period) so
  two concurrent aggregations can't double-bill the same time logs.
  Two layers enforce it:
  - an in-process lock-by-key guard (AcquireAggregation)
  - a unique index on invoices(engagement_id, period_start, period_end)
    that catches anything the in-process guard can't see
  Violations surface as billing.ConcurrentAggregationError: a signal to
  retry, never to ignore.

DECIMAL STORAGE:
  Money and hours are stored as decimal strings, never floats, so
  nothing drifts between persistence round-trips.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/practice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/practice-engine/billing"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	aggMu    sync.Mutex
	inFlight map[string]struct{} // (engagement, period) aggregation keys
}

var _ billing.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent (each
	// connection would otherwise get its own) and serializes writes.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, inFlight: make(map[string]struct{})}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Clients
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact_name TEXT,
		contact_email TEXT,
		address TEXT,
		city TEXT,
		postal_code TEXT,
		country TEXT,
		created_at TEXT NOT NULL
	);

	-- Engagements
	-- Deliberately NO status column: status derives from the dates and
	-- the reference now at read time, and would drift if stored.
	CREATE TABLE IF NOT EXISTS engagements (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id),
		project_name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		billing_mode TEXT NOT NULL,
		hourly_rate TEXT,
		total_cost TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_engagements_client
		ON engagements(client_id);
	CREATE INDEX IF NOT EXISTS idx_engagements_dates
		ON engagements(start_date, end_date);

	-- Time logs
	CREATE TABLE IF NOT EXISTS time_logs (
		id TEXT PRIMARY KEY,
		engagement_id TEXT NOT NULL REFERENCES engagements(id),
		log_date TEXT NOT NULL,
		hours TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: period filtering during aggregation and listings
	CREATE INDEX IF NOT EXISTS idx_time_logs_engagement_date
		ON time_logs(engagement_id, log_date);
	CREATE INDEX IF NOT EXISTS idx_time_logs_date
		ON time_logs(log_date);

	-- Invoices
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		engagement_id TEXT,
		number TEXT NOT NULL UNIQUE,
		issue_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		net_terms_days INTEGER NOT NULL DEFAULT 30,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		total_hours TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		last_status_change_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: one invoice per (engagement, period). Backstop for the
	-- in-process aggregation guard.
	CREATE UNIQUE INDEX IF NOT EXISTS ux_invoices_engagement_period
		ON invoices(engagement_id, period_start, period_end)
		WHERE engagement_id IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_invoices_client
		ON invoices(client_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_status
		ON invoices(status);
	CREATE INDEX IF NOT EXISTS idx_invoices_issue_date
		ON invoices(issue_date);

	-- Line items (ordered, owned by their invoice)
	CREATE TABLE IF NOT EXISTS invoice_line_items (
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		time_log_id TEXT,
		item_date TEXT NOT NULL,
		hours TEXT NOT NULL,
		description TEXT,
		unit_rate TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (invoice_id, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENT STORE
// =============================================================================

// SaveClient inserts or updates a client.
func (s *Store) SaveClient(ctx context.Context, c billing.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO clients (id, name, contact_name, contact_email, address, city, postal_code, country, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			contact_name = excluded.contact_name,
			contact_email = excluded.contact_email,
			address = excluded.address,
			city = excluded.city,
			postal_code = excluded.postal_code,
			country = excluded.country
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name,
		c.Contact.Name, c.Contact.Email, c.Contact.Address,
		c.Contact.City, c.Contact.PostalCode, c.Contact.Country,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// GetClient returns a client or (nil, nil) when missing.
func (s *Store) GetClient(ctx context.Context, id billing.ClientID) (*billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact_name, contact_email, address, city, postal_code, country, created_at
		FROM clients WHERE id = ?`, id)

	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact_name, contact_email, address, city, postal_code, country, created_at
		FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []billing.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// DeleteClient removes a client and everything recorded under it:
// engagements, their time logs, and the client's invoices. Blocked only
// while an engagement referencing the client is active as of now.
func (s *Store) DeleteClient(ctx context.Context, id billing.ClientID, now billing.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM engagements
		WHERE client_id = ? AND start_date <= ? AND end_date >= ?`,
		id, now.String(), now.String()).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check engagements: %w", err)
	}
	if active > 0 {
		return billing.ErrClientHasActiveEngagements
	}

	// Dependents go first so the foreign keys stay satisfied throughout.
	// Line items cascade from their invoices.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM time_logs WHERE engagement_id IN
			(SELECT id FROM engagements WHERE client_id = ?)`, id); err != nil {
		return fmt.Errorf("failed to delete time logs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete invoices: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM engagements WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete engagements: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrClientNotFound
	}
	return tx.Commit()
}

// =============================================================================
// ENGAGEMENT STORE
// =============================================================================

// SaveEngagement inserts or updates an engagement after validation.
func (s *Store) SaveEngagement(ctx context.Context, e billing.Engagement) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO engagements (id, client_id, project_name, start_date, end_date, billing_mode, hourly_rate, total_cost, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			project_name = excluded.project_name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			billing_mode = excluded.billing_mode,
			hourly_rate = excluded.hourly_rate,
			total_cost = excluded.total_cost,
			description = excluded.description
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.ClientID, e.ProjectName,
		e.StartDate.String(), e.EndDate.String(),
		e.Mode, nullDecimal(e.HourlyRate), nullDecimal(e.TotalCost),
		e.Description, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save engagement: %w", err)
	}
	return nil
}

// GetEngagement returns an engagement or (nil, nil) when missing.
func (s *Store) GetEngagement(ctx context.Context, id billing.EngagementID) (*billing.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, project_name, start_date, end_date, billing_mode, hourly_rate, total_cost, description, created_at
		FROM engagements WHERE id = ?`, id)

	e, err := scanEngagement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get engagement: %w", err)
	}
	return e, nil
}

// ListEngagements returns engagements, optionally filtered by client,
// ordered by start date.
func (s *Store) ListEngagements(ctx context.Context, clientID *billing.ClientID) ([]billing.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, client_id, project_name, start_date, end_date, billing_mode, hourly_rate, total_cost, description, created_at
		FROM engagements`
	var args []any
	if clientID != nil {
		query += ` WHERE client_id = ?`
		args = append(args, *clientID)
	}
	query += ` ORDER BY start_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagements: %w", err)
	}
	defer rows.Close()

	var engagements []billing.Engagement
	for rows.Next() {
		e, err := scanEngagement(rows)
		if err != nil {
			return nil, err
		}
		engagements = append(engagements, *e)
	}
	return engagements, rows.Err()
}

// DeleteEngagement removes an engagement unless time logs or invoices
// reference it.
func (s *Store) DeleteEngagement(ctx context.Context, id billing.EngagementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM time_logs WHERE engagement_id = ?)
		     + (SELECT COUNT(*) FROM invoices WHERE engagement_id = ?)`,
		id, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to check references: %w", err)
	}
	if refs > 0 {
		return billing.ErrEngagementHasRecords
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM engagements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete engagement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrEngagementNotFound
	}
	return nil
}

// =============================================================================
// TIME LOG STORE
// =============================================================================

// SaveTimeLog inserts or updates a time log. EngagementID is immutable:
// updates keep the original engagement.
func (s *Store) SaveTimeLog(ctx context.Context, log billing.TimeLog) error {
	if err := billing.ValidateHours(log.Hours); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO time_logs (id, engagement_id, log_date, hours, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			log_date = excluded.log_date,
			hours = excluded.hours,
			description = excluded.description
	`

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.EngagementID, log.Date.String(),
		log.Hours.String(), log.Description,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save time log: %w", err)
	}
	return nil
}

// GetTimeLog returns a time log or (nil, nil) when missing.
func (s *Store) GetTimeLog(ctx context.Context, id billing.TimeLogID) (*billing.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, engagement_id, log_date, hours, description, created_at
		FROM time_logs WHERE id = ?`, id)

	log, err := scanTimeLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time log: %w", err)
	}
	return log, nil
}

// ListTimeLogs returns time logs matching the filter, ordered by date
// then id (the aggregation ordering).
func (s *Store) ListTimeLogs(ctx context.Context, filter billing.TimeLogFilter) ([]billing.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, engagement_id, log_date, hours, description, created_at
		FROM time_logs`
	var (
		conds []string
		args  []any
	)
	if filter.EngagementID != nil {
		conds = append(conds, `engagement_id = ?`)
		args = append(args, *filter.EngagementID)
	}
	if filter.Range != nil && !filter.Range.Unbounded {
		conds = append(conds, `log_date >= ? AND log_date <= ?`)
		args = append(args, filter.Range.Period.Start.String(), filter.Range.Period.End.String())
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY log_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time logs: %w", err)
	}
	defer rows.Close()

	var logs []billing.TimeLog
	for rows.Next() {
		log, err := scanTimeLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

// DeleteTimeLog removes a time log.
func (s *Store) DeleteTimeLog(ctx context.Context, id billing.TimeLogID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM time_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete time log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrTimeLogNotFound
	}
	return nil
}

// =============================================================================
// INVOICE STORE
// =============================================================================

// SaveInvoice writes the invoice and its line items atomically. Totals
// are recomputed from the line items here: the persisted totals are a
// cache of the sums, never the caller's word.
func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalHours, totalAmount := decimal.Zero, decimal.Zero
	for _, item := range inv.LineItems {
		totalHours = totalHours.Add(item.Hours)
		totalAmount = totalAmount.Add(item.Amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, client_id, engagement_id, number, issue_date, due_date, net_terms_days,
			period_start, period_end, status, notes, total_hours, total_amount, last_status_change_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			notes = excluded.notes,
			total_hours = excluded.total_hours,
			total_amount = excluded.total_amount`,
		inv.ID, inv.ClientID, nullString(string(inv.EngagementID)), inv.Number,
		inv.IssueDate.String(), inv.DueDate.String(), inv.NetTermsDays,
		inv.Period.Start.String(), inv.Period.End.String(),
		inv.Status, inv.Notes, totalHours.String(), totalAmount.String(),
		inv.LastStatusChangeAt.UTC().Format(time.RFC3339),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			switch {
			case strings.Contains(err.Error(), "invoices.engagement_id"):
				return &billing.ConcurrentAggregationError{EngagementID: inv.EngagementID, Period: inv.Period}
			case strings.Contains(err.Error(), "invoices.number"):
				// A concurrent generation for another engagement claimed
				// the number first. Retryable: re-read the sequence.
				return fmt.Errorf("invoice number %s: %w", inv.Number, billing.ErrDuplicateInvoiceNumber)
			}
		}
		return fmt.Errorf("failed to save invoice: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = ?`, inv.ID); err != nil {
		return fmt.Errorf("failed to clear line items: %w", err)
	}

	for i, item := range inv.LineItems {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_line_items (invoice_id, position, time_log_id, item_date, hours, description, unit_rate, amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, i, nullString(string(item.TimeLogID)),
			item.Date.String(), item.Hours.String(), item.Description,
			item.UnitRate.String(), item.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save line item %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetInvoice returns an invoice with its line items, or (nil, nil) when
// missing.
func (s *Store) GetInvoice(ctx context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, invoiceSelect+` WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if inv.LineItems, err = s.loadLineItems(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns invoices matching the filter with their line
// items, ordered by issue date descending.
func (s *Store) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := invoiceSelect
	var (
		conds []string
		args  []any
	)
	if filter.ClientID != nil {
		conds = append(conds, `client_id = ?`)
		args = append(args, *filter.ClientID)
	}
	if filter.EngagementID != nil {
		conds = append(conds, `engagement_id = ?`)
		args = append(args, *filter.EngagementID)
	}
	if filter.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, *filter.Status)
	}
	if filter.Range != nil && !filter.Range.Unbounded {
		conds = append(conds, `issue_date >= ? AND issue_date <= ?`)
		args = append(args, filter.Range.Period.Start.String(), filter.Range.Period.End.String())
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY issue_date DESC, number DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range invoices {
		if invoices[i].LineItems, err = s.loadLineItems(ctx, invoices[i].ID); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// UpdateInvoiceStatus persists a lifecycle transition.
func (s *Store) UpdateInvoiceStatus(ctx context.Context, id billing.InvoiceID, status billing.InvoiceStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET status = ?, last_status_change_at = ? WHERE id = ?`,
		status, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrInvoiceNotFound
	}
	return nil
}

// DeleteInvoice removes an invoice and its line items. Time logs are
// untouched.
func (s *Store) DeleteInvoice(ctx context.Context, id billing.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrInvoiceNotFound
	}
	return nil
}

// NextInvoiceNumber returns the next sequential number for the year.
// Called under the aggregation guard; the UNIQUE constraint on number
// backstops everything else.
func (s *Store) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM invoices WHERE substr(issue_date, 1, 4) = ?`,
		fmt.Sprintf("%04d", year)).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("failed to count invoices: %w", err)
	}
	return fmt.Sprintf("INV-%d-%04d", year, count+1), nil
}

// =============================================================================
// AGGREGATION GUARD
// =============================================================================

// AcquireAggregation takes the per-(engagement, period) lock. The
// returned release must always be called; a second acquire for the same
// key while held fails with ConcurrentAggregationError.
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

// =============================================================================
// SCAN HELPERS
// =============================================================================

const invoiceSelect = `
	SELECT id, client_id, engagement_id, number, issue_date, due_date, net_terms_days,
		period_start, period_end, status, notes, total_hours, total_amount, last_status_change_at, created_at
	FROM invoices`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*billing.Client, error) {
	var (
		c         billing.Client
		contact   [6]sql.NullString
		createdAt string
	)
	err := row.Scan(&c.ID, &c.Name,
		&contact[0], &contact[1], &contact[2], &contact[3], &contact[4], &contact[5],
		&createdAt)
	if err != nil {
		return nil, err
	}
	c.Contact = billing.BillingContact{
		Name:       contact[0].String,
		Email:      contact[1].String,
		Address:    contact[2].String,
		City:       contact[3].String,
		PostalCode: contact[4].String,
		Country:    contact[5].String,
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func scanEngagement(row rowScanner) (*billing.Engagement, error) {
	var (
		e                     billing.Engagement
		startDate, endDate    string
		hourlyRate, totalCost sql.NullString
		description           sql.NullString
		createdAt             string
	)
	err := row.Scan(&e.ID, &e.ClientID, &e.ProjectName, &startDate, &endDate,
		&e.Mode, &hourlyRate, &totalCost, &description, &createdAt)
	if err != nil {
		return nil, err
	}

	if e.StartDate, err = billing.ParseDate(startDate); err != nil {
		return nil, err
	}
	if e.EndDate, err = billing.ParseDate(endDate); err != nil {
		return nil, err
	}
	e.HourlyRate = parseNullDecimal(hourlyRate)
	e.TotalCost = parseNullDecimal(totalCost)
	e.Description = description.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func scanTimeLog(row rowScanner) (*billing.TimeLog, error) {
	var (
		log         billing.TimeLog
		logDate     string
		hours       string
		description sql.NullString
		createdAt   string
	)
	err := row.Scan(&log.ID, &log.EngagementID, &logDate, &hours, &description, &createdAt)
	if err != nil {
		return nil, err
	}

	if log.Date, err = billing.ParseDate(logDate); err != nil {
		return nil, err
	}
	if log.Hours, err = decimal.NewFromString(hours); err != nil {
		return nil, fmt.Errorf("invalid hours %q: %w", hours, err)
	}
	log.Description = description.String
	log.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &log, nil
}

func scanInvoice(row rowScanner) (*billing.Invoice, error) {
	var (
		inv                     billing.Invoice
		engagementID            sql.NullString
		issueDate, dueDate      string
		periodStart, periodEnd  string
		notes                   sql.NullString
		totalHours, totalAmount string
		lastStatusChangeAt      string
		createdAt               string
	)
	err := row.Scan(&inv.ID, &inv.ClientID, &engagementID, &inv.Number,
		&issueDate, &dueDate, &inv.NetTermsDays,
		&periodStart, &periodEnd, &inv.Status, &notes,
		&totalHours, &totalAmount, &lastStatusChangeAt, &createdAt)
	if err != nil {
		return nil, err
	}

	inv.EngagementID = billing.EngagementID(engagementID.String)
	if inv.IssueDate, err = billing.ParseDate(issueDate); err != nil {
		return nil, err
	}
	if inv.DueDate, err = billing.ParseDate(dueDate); err != nil {
		return nil, err
	}
	if inv.Period.Start, err = billing.ParseDate(periodStart); err != nil {
		return nil, err
	}
	if inv.Period.End, err = billing.ParseDate(periodEnd); err != nil {
		return nil, err
	}
	inv.Notes = notes.String
	if inv.TotalHours, err = decimal.NewFromString(totalHours); err != nil {
		return nil, fmt.Errorf("invalid total hours %q: %w", totalHours, err)
	}
	if inv.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("invalid total amount %q: %w", totalAmount, err)
	}
	inv.LastStatusChangeAt, _ = time.Parse(time.RFC3339, lastStatusChangeAt)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &inv, nil
}

func (s *Store) loadLineItems(ctx context.Context, id billing.InvoiceID) ([]billing.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time_log_id, item_date, hours, description, unit_rate, amount
		FROM invoice_line_items WHERE invoice_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	var items []billing.LineItem
	for rows.Next() {
		var (
			item        billing.LineItem
			timeLogID   sql.NullString
			itemDate    string
			hours       string
			description sql.NullString
			unitRate    string
			amount      string
		)
		if err := rows.Scan(&timeLogID, &itemDate, &hours, &description, &unitRate, &amount); err != nil {
			return nil, err
		}
		item.TimeLogID = billing.TimeLogID(timeLogID.String)
		if item.Date, err = billing.ParseDate(itemDate); err != nil {
			return nil, err
		}
		if item.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("invalid line hours %q: %w", hours, err)
		}
		item.Description = description.String
		if item.UnitRate, err = decimal.NewFromString(unitRate); err != nil {
			return nil, fmt.Errorf("invalid unit rate %q: %w", unitRate, err)
		}
		if item.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid line amount %q: %w", amount, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// SQL HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
