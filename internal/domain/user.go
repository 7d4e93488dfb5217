package domain

import (
	"strings"
	"time"
)

// Role enumerates account roles.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleManager    Role = "manager"
	RoleHumanAgent Role = "human_agent"
	RoleCTO        Role = "cto"
	RoleAdmin      Role = "admin"
)

// ParseRole normalizes a role string.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleCustomer, RoleManager, RoleHumanAgent, RoleCTO, RoleAdmin:
		return r, true
	}
	return "", false
}

// IsStaff reports whether the role belongs to an employee.
func (r Role) IsStaff() bool {
	switch r {
	case RoleManager, RoleHumanAgent, RoleCTO, RoleAdmin:
		return true
	}
	return false
}

// User is an account: a customer or an employee.
type User struct {
	ID           string
	Name         string
	Email        string
	PhoneNumber  string
	PasswordHash string
	Role         Role
	EmployeeID   *string
	IsOnline     bool
	CreatedAt    time.Time
}

// Actor is the already-authenticated caller of a mutating operation.
type Actor struct {
	UserID string
	Role   Role
}

// SystemActor is used by background tasks.
var SystemActor = Actor{UserID: "system", Role: RoleAdmin}

// CanReadAllTickets reports cross-customer read access.
func (a Actor) CanReadAllTickets() bool {
	return a.Role.IsStaff()
}

// CanManageTickets reports operator write access.
func (a Actor) CanManageTickets() bool {
	switch a.Role {
	case RoleManager, RoleCTO, RoleAdmin, RoleHumanAgent:
		return true
	}
	return false
}
