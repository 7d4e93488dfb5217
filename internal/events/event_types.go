package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket.created"
	EventTicketStatusChanged   EventType = "ticket.status_changed"
	EventTicketPriorityChanged EventType = "ticket.priority_changed"
	EventTicketAssigned        EventType = "ticket.assigned"
	EventTicketSLAAlert        EventType = "ticket.sla_alert"
	EventSessionResolved       EventType = "session.resolved"
	EventSessionEscalated      EventType = "session.escalated"
)

// AllEventTypes lists every type the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketAssigned,
	EventTicketSLAAlert,
	EventSessionResolved,
	EventSessionEscalated,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps a fresh event.
func New(eventType EventType, actor domain.Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     Actor{UserID: actor.UserID, Role: actor.Role},
		Timestamp: at,
		Payload:   payload,
	}
}

// Key returns the partition key: the ticket when present, else the session.
func (e Event) Key() string {
	if e.TicketID != "" {
		return e.TicketID
	}
	return e.SessionID
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ReferenceNumber string                `json:"reference_number"`
	CustomerID      string                `json:"customer_id"`
	SessionID       *string               `json:"session_id,omitempty"`
	Priority        domain.TicketPriority `json:"priority"`
	Category        string                `json:"category"`
	SubCategory     string                `json:"sub_category"`
	SLAHours        float64               `json:"sla_hours"`
	SLADeadline     time.Time             `json:"sla_deadline"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	ReferenceNumber string              `json:"reference_number"`
	CustomerID      string              `json:"customer_id"`
	OldStatus       domain.TicketStatus `json:"old_status"`
	NewStatus       domain.TicketStatus `json:"new_status"`
	Comment         string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	ReferenceNumber string  `json:"reference_number"`
	AssigneeID      *string `json:"assignee_id,omitempty"`
}

// SLAAlertPayload describes one fired threshold.
type SLAAlertPayload struct {
	ReferenceNumber string                `json:"reference_number"`
	CustomerID      string                `json:"customer_id"`
	Level           domain.AlertLevel     `json:"level"`
	Priority        domain.TicketPriority `json:"priority"`
	Category        string                `json:"category"`
	ElapsedRatio    float64               `json:"elapsed_ratio"`
	SLAHours        float64               `json:"sla_hours"`
	SLADeadline     time.Time             `json:"sla_deadline"`
	Breached        bool                  `json:"breached"`
}

// SessionResolvedPayload payload.
type SessionResolvedPayload struct {
	CustomerID  string `json:"customer_id"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
}

// SessionEscalatedPayload payload.
type SessionEscalatedPayload struct {
	CustomerID      string                `json:"customer_id"`
	ReferenceNumber string                `json:"reference_number"`
	Priority        domain.TicketPriority `json:"priority"`
}
