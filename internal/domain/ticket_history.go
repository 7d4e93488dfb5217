package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated      TicketChangeType = "CREATED"
	ChangeTypeStatus       TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee     TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority     TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeNotes        TicketChangeType = "NOTES_CHANGE"
	ChangeTypeSLARecompute TicketChangeType = "SLA_RECOMPUTE"
	ChangeTypeSLAAlert     TicketChangeType = "SLA_ALERT"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          string
	TicketID    string
	ChangedByID string
	ChangeType  TicketChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
