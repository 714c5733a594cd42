/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Clients:
    GET    /api/clients                List clients
    POST   /api/clients                Create client
    GET    /api/clients/{id}           Get client
    PUT    /api/clients/{id}           Update client
    DELETE /api/clients/{id}           Delete client (blocked while active engagements exist)

  Engagements:
    GET    /api/engagements            List, annotated with derived status
    POST   /api/engagements            Create
    GET    /api/engagements/{id}       Get
    PUT    /api/engagements/{id}       Update
    DELETE /api/engagements/{id}       Delete (blocked while logs/invoices exist)

  Time logs:
    GET    /api/timelogs               List with range/engagement filters
    POST   /api/timelogs               Create
    PUT    /api/timelogs/{id}          Update (engagement immutable)
    DELETE /api/timelogs/{id}          Delete

  Invoices:
    POST   /api/invoices/generate      Aggregate a period into a pending invoice
    GET    /api/invoices               List with filters
    GET    /api/invoices/{id}          Get
    POST   /api/invoices/{id}/status   Lifecycle transition
    DELETE /api/invoices/{id}          Delete (time logs untouched)

  Dashboard:
    GET    /api/dashboard              Year summary

REFERENCE DATE:
  Every read that depends on "now" (engagement status, recommended
  invoice status, relative ranges) resolves against an explicit
  reference date: the as_of query parameter when present, today
  otherwise. This keeps responses deterministic under test.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown tokens
  - 404: Record not found
  - 409: Concurrent aggregation conflict (retryable)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - billing: Domain logic
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/practice-engine/billing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store billing.Store

	// NetTermsDays is the default payment term applied when a generate
	// request doesn't specify one.
	NetTermsDays int

	// Clock returns the current wall time; overridable in tests.
	Clock func() time.Time
}

// NewHandler creates a new handler with the given store.
func NewHandler(store billing.Store) *Handler {
	return &Handler{
		Store:        store,
		NetTermsDays: 30,
		Clock:        time.Now,
	}
}

// refDate returns the reference "now" for a request: the as_of query
// parameter when present, today otherwise.
func (h *Handler) refDate(r *http.Request) (billing.Date, error) {
	if asOf := r.URL.Query().Get("as_of"); asOf != "" {
		return billing.ParseDate(asOf)
	}
	return billing.DateOf(h.Clock()), nil
}

// parseRangeQuery resolves the range/from/to query parameters into a
// DateRange. An absent range parameter means no filtering; unknown
// tokens are errors, never silently widened.
func parseRangeQuery(r *http.Request, ref billing.Date) (billing.DateRange, error) {
	token := r.URL.Query().Get("range")
	if token == "" {
		return billing.Unfiltered(), nil
	}
	if billing.RangeToken(token) == billing.RangeCustom {
		start, err := billing.ParseDate(r.URL.Query().Get("from"))
		if err != nil {
			return billing.DateRange{}, err
		}
		end, err := billing.ParseDate(r.URL.Query().Get("to"))
		if err != nil {
			return billing.DateRange{}, err
		}
		return billing.ResolveCustomRange(start, end)
	}
	return billing.ResolveRange(billing.RangeToken(token), ref)
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}

	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClient returns a single client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := billing.ClientID(chi.URLParam(r, "id"))

	c, err := h.Store.GetClient(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get client", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*c))
}

// CreateClient creates a new client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	h.saveClient(w, r, "")
}

// UpdateClient updates an existing client.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	h.saveClient(w, r, billing.ClientID(chi.URLParam(r, "id")))
}

func (h *Handler) saveClient(w http.ResponseWriter, r *http.Request, id billing.ClientID) {
	var req SaveClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
		id = billing.ClientID(req.ID)
		if id == "" {
			id = billing.ClientID(uuid.NewString())
		}
	}

	c := billing.Client{
		ID:   id,
		Name: req.Name,
		Contact: billing.BillingContact{
			Name:       req.ContactName,
			Email:      req.ContactEmail,
			Address:    req.Address,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		},
	}

	if err := h.Store.SaveClient(r.Context(), c); err != nil {
		writeDomainError(w, "Failed to save client", err)
		return
	}
	writeJSON(w, status, toClientDTO(c))
}

// DeleteClient deletes a client unless it has active engagements.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := billing.ClientID(chi.URLParam(r, "id"))

	now, err := h.refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	if err := h.Store.DeleteClient(r.Context(), id, now); err != nil {
		writeDomainError(w, "Failed to delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ENGAGEMENT HANDLERS
// =============================================================================

// ListEngagements returns engagements annotated with derived status,
// optionally filtered by client and date range (overlap with the
// engagement span).
func (h *Handler) ListEngagements(w http.ResponseWriter, r *http.Request) {
	now, err := h.refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	dateRange, err := parseRangeQuery(r, now)
	if err != nil {
		writeDomainError(w, "Invalid range", err)
		return
	}

	var clientID *billing.ClientID
	if v := r.URL.Query().Get("client_id"); v != "" {
		id := billing.ClientID(v)
		clientID = &id
	}

	engagements, err := h.Store.ListEngagements(r.Context(), clientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list engagements", err)
		return
	}

	dtos := make([]EngagementDTO, 0, len(engagements))
	for _, e := range engagements {
		// Range filter: keep engagements whose span overlaps the range.
		if !dateRange.Unbounded {
			p := dateRange.Period
			if e.EndDate.Before(p.Start) || e.StartDate.After(p.End) {
				continue
			}
		}
		dtos = append(dtos, toEngagementDTO(e, now))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEngagement returns a single engagement with derived status.
func (h *Handler) GetEngagement(w http.ResponseWriter, r *http.Request) {
	id := billing.EngagementID(chi.URLParam(r, "id"))

	now, err := h.refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	e, err := h.Store.GetEngagement(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get engagement", err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "Engagement not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEngagementDTO(*e, now))
}

// CreateEngagement creates a new engagement.
func (h *Handler) CreateEngagement(w http.ResponseWriter, r *http.Request) {
	h.saveEngagement(w, r, "")
}

// UpdateEngagement updates an existing engagement.
func (h *Handler) UpdateEngagement(w http.ResponseWriter, r *http.Request) {
	h.saveEngagement(w, r, billing.EngagementID(chi.URLParam(r, "id")))
}

func (h *Handler) saveEngagement(w http.ResponseWriter, r *http.Request, id billing.EngagementID) {
	now, err := h.refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	var req SaveEngagementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mode, err := billing.ParseBillingMode(req.BillingMode)
	if err != nil {
		writeDomainError(w, "Invalid billing_mode", err)
		return
	}

	startDate, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	endDate, err := billing.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}

	client, err := h.Store.GetClient(r.Context(), billing.ClientID(req.ClientID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check client", err)
		return
	}
	if client == nil {
		writeError(w, http.StatusBadRequest, "Unknown client_id", nil)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
		id = billing.EngagementID(req.ID)
		if id == "" {
			id = billing.EngagementID(uuid.NewString())
		}
	}

	e := billing.Engagement{
		ID:          id,
		ClientID:    billing.ClientID(req.ClientID),
		ProjectName: req.ProjectName,
		StartDate:   startDate,
		EndDate:     endDate,
		Mode:        mode,
		HourlyRate:  floatToDecimal(req.HourlyRate),
		TotalCost:   floatToDecimal(req.TotalCost),
		Description: req.Description,
	}

	if err := h.Store.SaveEngagement(r.Context(), e); err != nil {
		writeDomainError(w, "Failed to save engagement", err)
		return
	}
	writeJSON(w, status, toEngagementDTO(e, now))
}

// DeleteEngagement deletes an engagement without records.
func (h *Handler) DeleteEngagement(w http.ResponseWriter, r *http.Request) {
	id := billing.EngagementID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteEngagement(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete engagement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TIME LOG HANDLERS
// =============================================================================

// ListTimeLogs returns time logs with derived billable amounts.
func (h *Handler) ListTimeLogs(w http.ResponseWriter, r *http.Request) {
	now, err := h.refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	dateRange, err := parseRangeQuery(r, now)
	if err != nil {
		writeDomainError(w, "Invalid range", err)
		return
	}

	filter := billing.TimeLogFilter{Range: &dateRange}
	if v := r.URL.Query().Get("engagement_id"); v != "" {
		id := billing.EngagementID(v)
		filter.EngagementID = &id
	}

	logs, err := h.Store.ListTimeLogs(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list time logs", err)
		return
	}

	// Billable amounts need each log's engagement; fetch once per id.
	engagements := make(map[billing.EngagementID]*billing.Engagement)
	dtos := make([]TimeLogDTO, len(logs))
	for i, log := range logs {
		e, ok := engagements[log.EngagementID]
		if !ok {
			e, err = h.Store.GetEngagement(r.Context(), log.EngagementID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to get engagement", err)
				return
			}
			engagements[log.EngagementID] = e
		}
		dtos[i] = h.toTimeLogDTO(log, e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTimeLog creates a new time log.
func (h *Handler) CreateTimeLog(w http.ResponseWriter, r *http.Request) {
	h.saveTimeLog(w, r, "")
}

// UpdateTimeLog updates an existing time log. The engagement reference
// is immutable.
func (h *Handler) UpdateTimeLog(w http.ResponseWriter, r *http.Request) {
	h.saveTimeLog(w, r, billing.TimeLogID(chi.URLParam(r, "id")))
}

func (h *Handler) saveTimeLog(w http.ResponseWriter, r *http.Request, id billing.TimeLogID) {
	var req SaveTimeLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := billing.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	engagementID := billing.EngagementID(req.EngagementID)
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
		id = billing.TimeLogID(req.ID)
		if id == "" {
			id = billing.TimeLogID(uuid.NewString())
		}
	} else {
		existing, err := h.Store.GetTimeLog(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get time log", err)
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, "Time log not found", nil)
			return
		}
		engagementID = existing.EngagementID
	}

	e, err := h.Store.GetEngagement(r.Context(), engagementID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get engagement", err)
		return
	}
	if e == nil {
		writeError(w, http.StatusBadRequest, "Unknown engagement_id", nil)
		return
	}

	log, err := billing.NewTimeLog(id, engagementID, date, decimal.NewFromFloat(req.Hours), req.Description)
	if err != nil {
		writeDomainError(w, "Invalid time log", err)
		return
	}

	if err := h.Store.SaveTimeLog(r.Context(), log); err != nil {
		writeDomainError(w, "Failed to save time log", err)
		return
	}
	writeJSON(w, status, h.toTimeLogDTO(log, e))
}

// DeleteTimeLog deletes a time log.
func (h *Handler) DeleteTimeLog(w http.ResponseWriter, r *http.Request) {
	id := billing.TimeLogID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteTimeLog(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete time log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toTimeLogDTO(log billing.TimeLog, e *billing.Engagement) TimeLogDTO {
	hours, _ := log.Hours.Float64()
	dto := TimeLogDTO{
		ID:           string(log.ID),
		EngagementID: string(log.EngagementID),
		Date:         log.Date.String(),
		Hours:        hours,
		Description:  log.Description,
		CreatedAt:    log.CreatedAt.Format(time.RFC3339),
	}
	if e != nil {
		if amount, err := billing.BillableAmount(log, *e); err == nil {
			dto.BillableAmount, _ = amount.Float64()
		}
	}
	return dto
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// GenerateInvoice aggregates an engagement's time logs over a billing
// period into a persisted pending invoice. Generation is serialized per
// (engagement, period); concurrent requests get 409 and may retry.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var req GenerateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	periodStart, err := billing.ParseDate(req.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_start", err)
		return
	}
	periodEnd, err := billing.ParseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_end", err)
		return
	}
	period := billing.Period{Start: periodStart, End: periodEnd}

	engagement, err := h.Store.GetEngagement(r.Context(), billing.EngagementID(req.EngagementID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get engagement", err)
		return
	}
	if engagement == nil {
		writeError(w, http.StatusNotFound, "Engagement not found", nil)
		return
	}

	release, err := h.Store.AcquireAggregation(engagement.ID, period)
	if err != nil {
		writeDomainError(w, "Aggregation in progress", err)
		return
	}
	defer release()

	dateRange, err := billing.ResolveCustomRange(periodStart, periodEnd)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	logs, err := h.Store.ListTimeLogs(r.Context(), billing.TimeLogFilter{
		EngagementID: &engagement.ID,
		Range:        &dateRange,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list time logs", err)
		return
	}

	var draft *billing.InvoiceDraft
	if req.MilestoneAmount != nil {
		draft, err = billing.AggregateMilestone(*engagement, period, logs, decimal.NewFromFloat(*req.MilestoneAmount))
	} else {
		draft, err = billing.Aggregate(*engagement, period, logs)
	}
	if err != nil {
		writeDomainError(w, "Aggregation failed", err)
		return
	}

	now := h.Clock()
	issueDate := billing.DateOf(now)
	netTerms := h.NetTermsDays
	if req.NetTermsDays != nil {
		netTerms = *req.NetTermsDays
	}

	number, err := h.Store.NextInvoiceNumber(r.Context(), issueDate.Year())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assign invoice number", err)
		return
	}

	invoice := draft.Issue(billing.InvoiceID(uuid.NewString()), number, issueDate, netTerms, now)
	invoice.Notes = req.Notes

	if err := h.Store.SaveInvoice(r.Context(), invoice); err != nil {
		writeDomainError(w, "Failed to save invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(invoice, issueDate))
}

// ListInvoices returns invoices with advisory recommended statuses.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	now, err := h.refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	dateRange, err := parseRangeQuery(r, now)
	if err != nil {
		writeDomainError(w, "Invalid range", err)
		return
	}

	filter := billing.InvoiceFilter{Range: &dateRange}
	if v := r.URL.Query().Get("client_id"); v != "" {
		id := billing.ClientID(v)
		filter.ClientID = &id
	}
	if v := r.URL.Query().Get("engagement_id"); v != "" {
		id := billing.EngagementID(v)
		filter.EngagementID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := billing.ParseInvoiceStatus(v)
		if err != nil {
			writeDomainError(w, "Invalid status filter", err)
			return
		}
		filter.Status = &status
	}

	invoices, err := h.Store.ListInvoices(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns a single invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))

	now, err := h.refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, now))
}

// UpdateInvoiceStatus applies a lifecycle transition. Any known status
// may be requested; unknown statuses are rejected at the boundary.
func (h *Handler) UpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))

	var req UpdateInvoiceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	requested, err := billing.ParseInvoiceStatus(req.Status)
	if err != nil {
		writeDomainError(w, "Invalid status", err)
		return
	}

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}

	now := h.Clock()
	billing.Transition(inv, requested, now)

	if err := h.Store.UpdateInvoiceStatus(r.Context(), id, inv.Status, now); err != nil {
		writeDomainError(w, "Failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, billing.DateOf(now)))
}

// DeleteInvoice deletes an invoice. Time logs are untouched.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteInvoice(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DASHBOARD HANDLER
// =============================================================================

// Dashboard returns the year summary: YTD revenue, active engagements,
// monthly hours, outstanding totals and per-client rollups.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now, err := h.refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	year := now.Year()
	if v := r.URL.Query().Get("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
	}

	engagements, err := h.Store.ListEngagements(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list engagements", err)
		return
	}
	logs, err := h.Store.ListTimeLogs(r.Context(), billing.TimeLogFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list time logs", err)
		return
	}
	invoices, err := h.Store.ListInvoices(r.Context(), billing.InvoiceFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	summary := billing.Summarize(billing.ReportInput{
		Engagements: engagements,
		TimeLogs:    logs,
		Invoices:    invoices,
		Year:        year,
		Now:         now,
	})
	writeJSON(w, http.StatusOK, toDashboardDTO(summary))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the billing error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func floatToDecimal(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
