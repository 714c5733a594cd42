/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AT THE BOUNDARY:
  Domain arithmetic is decimal end to end; DTOs expose money and hours
  as JSON numbers only at the very edge. Requests parse back into
  decimals before touching any computation.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: Domain counterparts
*/
package api

import (
	"time"

	"github.com/warp/practice-engine/billing"
)

// =============================================================================
// CLIENT TYPES
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// SaveClientRequest creates or updates a client.
type SaveClientRequest struct {
	ID           string `json:"id,omitempty"` // generated when empty
	Name         string `json:"name"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
}

// =============================================================================
// ENGAGEMENT TYPES
// =============================================================================

// EngagementDTO represents an engagement in API responses. Status is
// derived at read time, never read from storage.
type EngagementDTO struct {
	ID          string   `json:"id"`
	ClientID    string   `json:"client_id"`
	ProjectName string   `json:"project_name"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	BillingMode string   `json:"billing_mode"`
	HourlyRate  *float64 `json:"hourly_rate,omitempty"`
	TotalCost   *float64 `json:"total_cost,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// SaveEngagementRequest creates or updates an engagement.
type SaveEngagementRequest struct {
	ID          string   `json:"id,omitempty"`
	ClientID    string   `json:"client_id"`
	ProjectName string   `json:"project_name"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	BillingMode string   `json:"billing_mode"`
	HourlyRate  *float64 `json:"hourly_rate,omitempty"`
	TotalCost   *float64 `json:"total_cost,omitempty"`
	Description string   `json:"description,omitempty"`
}

// =============================================================================
// TIME LOG TYPES
// =============================================================================

// TimeLogDTO represents a time log in API responses. BillableAmount is
// derived from the engagement's billing mode at read time.
type TimeLogDTO struct {
	ID             string  `json:"id"`
	EngagementID   string  `json:"engagement_id"`
	Date           string  `json:"date"`
	Hours          float64 `json:"hours"`
	Description    string  `json:"description,omitempty"`
	BillableAmount float64 `json:"billable_amount"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// SaveTimeLogRequest creates or updates a time log.
type SaveTimeLogRequest struct {
	ID           string  `json:"id,omitempty"`
	EngagementID string  `json:"engagement_id"`
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
	Description  string  `json:"description,omitempty"`
}

// =============================================================================
// INVOICE TYPES
// =============================================================================

// GenerateInvoiceRequest asks for an invoice over a billing period.
type GenerateInvoiceRequest struct {
	EngagementID    string   `json:"engagement_id"`
	PeriodStart     string   `json:"period_start"`
	PeriodEnd       string   `json:"period_end"`
	MilestoneAmount *float64 `json:"milestone_amount,omitempty"` // project engagements only
	NetTermsDays    *int     `json:"net_terms_days,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// LineItemDTO represents one invoice row.
type LineItemDTO struct {
	TimeLogID   string  `json:"time_log_id,omitempty"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description,omitempty"`
	UnitRate    float64 `json:"unit_rate"`
	Amount      float64 `json:"amount"`
}

// InvoiceDTO represents an invoice in API responses. RecommendedStatus
// is advisory (overdue detection); Status is the stored value.
type InvoiceDTO struct {
	ID                 string        `json:"id"`
	ClientID           string        `json:"client_id"`
	EngagementID       string        `json:"engagement_id,omitempty"`
	Number             string        `json:"number"`
	IssueDate          string        `json:"issue_date"`
	DueDate            string        `json:"due_date"`
	NetTermsDays       int           `json:"net_terms_days"`
	PeriodStart        string        `json:"period_start"`
	PeriodEnd          string        `json:"period_end"`
	Status             string        `json:"status"`
	RecommendedStatus  string        `json:"recommended_status"`
	Notes              string        `json:"notes,omitempty"`
	LineItems          []LineItemDTO `json:"line_items"`
	TotalHours         float64       `json:"total_hours"`
	TotalAmount        float64       `json:"total_amount"`
	LastStatusChangeAt string        `json:"last_status_change_at,omitempty"`
}

// UpdateInvoiceStatusRequest requests a lifecycle transition.
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// DASHBOARD TYPES
// =============================================================================

// DashboardDTO is the dashboard summary for a target year.
type DashboardDTO struct {
	Year                 int               `json:"year"`
	YTDRevenue           float64           `json:"ytd_revenue"`
	ActiveEngagements    int               `json:"active_engagements"`
	MonthlyHours         [12]float64       `json:"monthly_hours"`
	PendingInvoicesTotal float64           `json:"pending_invoices_total"`
	Clients              []ClientRollupDTO `json:"clients"`
}

// ClientRollupDTO is the per-client slice of the dashboard.
type ClientRollupDTO struct {
	ClientID    string  `json:"client_id"`
	Hours       float64 `json:"hours"`
	Billed      float64 `json:"billed"`
	Outstanding float64 `json:"outstanding"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toClientDTO(c billing.Client) ClientDTO {
	return ClientDTO{
		ID:           string(c.ID),
		Name:         c.Name,
		ContactName:  c.Contact.Name,
		ContactEmail: c.Contact.Email,
		Address:      c.Contact.Address,
		City:         c.Contact.City,
		PostalCode:   c.Contact.PostalCode,
		Country:      c.Contact.Country,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}

func toEngagementDTO(e billing.Engagement, now billing.Date) EngagementDTO {
	dto := EngagementDTO{
		ID:          string(e.ID),
		ClientID:    string(e.ClientID),
		ProjectName: e.ProjectName,
		StartDate:   e.StartDate.String(),
		EndDate:     e.EndDate.String(),
		BillingMode: string(e.Mode),
		Description: e.Description,
		Status:      string(e.Status(now)),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.HourlyRate != nil {
		v, _ := e.HourlyRate.Float64()
		dto.HourlyRate = &v
	}
	if e.TotalCost != nil {
		v, _ := e.TotalCost.Float64()
		dto.TotalCost = &v
	}
	return dto
}

func toLineItemDTO(item billing.LineItem) LineItemDTO {
	hours, _ := item.Hours.Float64()
	unitRate, _ := item.UnitRate.Float64()
	amount, _ := item.Amount.Float64()
	return LineItemDTO{
		TimeLogID:   string(item.TimeLogID),
		Date:        item.Date.String(),
		Hours:       hours,
		Description: item.Description,
		UnitRate:    unitRate,
		Amount:      amount,
	}
}

func toInvoiceDTO(inv billing.Invoice, now billing.Date) InvoiceDTO {
	totalHours, _ := inv.TotalHours.Float64()
	totalAmount, _ := inv.TotalAmount.Float64()

	items := make([]LineItemDTO, len(inv.LineItems))
	for i, item := range inv.LineItems {
		items[i] = toLineItemDTO(item)
	}

	return InvoiceDTO{
		ID:                 string(inv.ID),
		ClientID:           string(inv.ClientID),
		EngagementID:       string(inv.EngagementID),
		Number:             inv.Number,
		IssueDate:          inv.IssueDate.String(),
		DueDate:            inv.DueDate.String(),
		NetTermsDays:       inv.NetTermsDays,
		PeriodStart:        inv.Period.Start.String(),
		PeriodEnd:          inv.Period.End.String(),
		Status:             string(inv.Status),
		RecommendedStatus:  string(billing.RecommendedStatus(inv, now)),
		Notes:              inv.Notes,
		LineItems:          items,
		TotalHours:         totalHours,
		TotalAmount:        totalAmount,
		LastStatusChangeAt: inv.LastStatusChangeAt.Format(time.RFC3339),
	}
}

func toDashboardDTO(s billing.YearSummary) DashboardDTO {
	ytd, _ := s.YTDRevenue.Float64()
	pending, _ := s.PendingInvoicesTotal.Float64()

	dto := DashboardDTO{
		Year:                 s.Year,
		YTDRevenue:           ytd,
		ActiveEngagements:    s.ActiveEngagements,
		PendingInvoicesTotal: pending,
	}
	for i, h := range s.MonthlyHours {
		dto.MonthlyHours[i], _ = h.Float64()
	}
	dto.Clients = make([]ClientRollupDTO, len(s.Clients))
	for i, r := range s.Clients {
		hours, _ := r.Hours.Float64()
		billed, _ := r.Billed.Float64()
		outstanding, _ := r.Outstanding.Float64()
		dto.Clients[i] = ClientRollupDTO{
			ClientID:    string(r.ClientID),
			Hours:       hours,
			Billed:      billed,
			Outstanding: outstanding,
		}
	}
	return dto
}
