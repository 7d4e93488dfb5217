package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateTicketRequest payload for operator-created tickets.
type CreateTicketRequest struct {
	CustomerID  string                `json:"customer_id"`
	Category    string                `json:"category"`
	SubCategory string                `json:"sub_category"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	AssigneeID  *string               `json:"assignee_id"`
}

// UpdateTicketRequest payload. Absent fields are left untouched.
type UpdateTicketRequest struct {
	Status          *domain.TicketStatus   `json:"status"`
	Priority        *domain.TicketPriority `json:"priority"`
	AssigneeID      *string                `json:"assignee_id"`
	ClearAssignee   bool                   `json:"clear_assignee"`
	ResolutionNotes *string                `json:"resolution_notes"`
	Comment         string                 `json:"comment"`
}

// AlertFlags mirrors the per-threshold alert state of a ticket.
type AlertFlags struct {
	Sent625    bool `json:"sla_62_5"`
	Sent750    bool `json:"sla_75"`
	Sent875    bool `json:"sla_87_5"`
	SentBreach bool `json:"sla_breach"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID              string                `json:"id"`
	ReferenceNumber string                `json:"reference_number"`
	SessionID       *string               `json:"session_id"`
	CustomerID      string                `json:"customer_id"`
	Category        string                `json:"category"`
	SubCategory     string                `json:"sub_category"`
	Description     string                `json:"description"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	AssigneeID      *string               `json:"assignee_id"`
	ResolutionNotes string                `json:"resolution_notes"`
	SLAHours        float64               `json:"sla_hours"`
	SLADeadline     time.Time             `json:"sla_deadline"`
	SLABreached     bool                  `json:"sla_breached"`
	Alerts          AlertFlags            `json:"alerts"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	ResolvedAt      *time.Time            `json:"resolved_at"`
	Version         int64                 `json:"version"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		ReferenceNumber: t.ReferenceNumber,
		SessionID:       t.SessionID,
		CustomerID:      t.CustomerID,
		Category:        t.Category,
		SubCategory:     t.SubCategory,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		AssigneeID:      t.AssigneeID,
		ResolutionNotes: t.ResolutionNotes,
		SLAHours:        t.SLAHours,
		SLADeadline:     t.SLADeadline,
		SLABreached:     t.SLABreached,
		Alerts: AlertFlags{
			Sent625:   t.Alert625Sent,
			Sent750:   t.Alert750Sent,
			Sent875:   t.Alert875Sent,
			SentBreach: t.BreachAlertSent,
		},
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		ResolvedAt: t.ResolvedAt,
		Version:    t.Version,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID string                  `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TicketHistoryResponse{
			ID:          e.ID,
			ChangeType:  e.ChangeType,
			ChangedByID: e.ChangedByID,
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
