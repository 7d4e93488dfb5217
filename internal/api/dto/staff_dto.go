package dto

import "github.com/spec-kit/complaint-service/internal/domain"

// CreateStaffRequest payload for admin-created employee accounts.
type CreateStaffRequest struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phone_number"`
	Password    string      `json:"password"`
	Role        domain.Role `json:"role"`
}

// OnlineRequest toggles agent availability.
type OnlineRequest struct {
	Online bool `json:"online"`
}

// SLAPolicyRequest sets the target hours for one priority.
type SLAPolicyRequest struct {
	Hours float64 `json:"hours"`
}

// AssignRequest assigns a ticket. An empty assignee with Auto set picks an
// online agent.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
	Auto       bool   `json:"auto"`
}
