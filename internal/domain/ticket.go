package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusEscalated  TicketStatus = "escalated"
)

// OpenTicketStatuses are the statuses the SLA monitor evaluates.
var OpenTicketStatuses = []TicketStatus{TicketStatusPending, TicketStatusInProgress}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "critical"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityLow      TicketPriority = "low"
)

// TicketPriorities lists priorities from most to least urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityCritical,
	TicketPriorityHigh,
	TicketPriorityMedium,
	TicketPriorityLow,
}

// ParsePriority normalizes a priority string.
func ParsePriority(raw string) (TicketPriority, bool) {
	p := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case TicketPriorityCritical, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return p, true
	}
	return "", false
}

// ParseTicketStatus normalizes a status string.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	s := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusEscalated:
		return s, true
	}
	return "", false
}

// Ticket is the aggregate for an escalated or operator-created support case.
type Ticket struct {
	ID              string
	ReferenceNumber string
	SessionID       *string
	CustomerID      string
	Category        string
	SubCategory     string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	AssigneeID      *string
	ResolutionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time

	SLAHours        float64
	SLADeadline     time.Time
	SLABreached     bool
	Alert625Sent    bool
	Alert750Sent    bool
	Alert875Sent    bool
	BreachAlertSent bool

	// Version guards operator read-modify-write cycles.
	Version int64
}

// IsOpen reports whether the SLA clock still runs for the ticket.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusPending || t.Status == TicketStatusInProgress
}

// ElapsedRatio is the fraction of the SLA window consumed at now.
func (t *Ticket) ElapsedRatio(now time.Time) float64 {
	if t.SLAHours <= 0 {
		return 0
	}
	return now.Sub(t.CreatedAt).Hours() / t.SLAHours
}

// AlertSent reports whether the alert for level was already claimed.
func (t *Ticket) AlertSent(level AlertLevel) bool {
	switch level {
	case Alert625:
		return t.Alert625Sent
	case Alert750:
		return t.Alert750Sent
	case Alert875:
		return t.Alert875Sent
	case AlertBreach:
		return t.BreachAlertSent
	}
	return false
}

// MarkAlert sets the flag for level. Flags never revert.
func (t *Ticket) MarkAlert(level AlertLevel) {
	switch level {
	case Alert625:
		t.Alert625Sent = true
	case Alert750:
		t.Alert750Sent = true
	case Alert875:
		t.Alert875Sent = true
	case AlertBreach:
		t.BreachAlertSent = true
		t.SLABreached = true
	}
}
