package domain

import (
	"strings"
	"time"
)

// SessionStatus represents the lifecycle of one customer interaction.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusResolved  SessionStatus = "resolved"
	SessionStatusEscalated SessionStatus = "escalated"
)

// ParseSessionStatus normalizes a session status string.
func ParseSessionStatus(raw string) (SessionStatus, bool) {
	s := SessionStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SessionStatusActive, SessionStatusResolved, SessionStatusEscalated:
		return s, true
	}
	return "", false
}

// Session is one customer support interaction prior to any formal ticket.
type Session struct {
	ID          string
	CustomerID  string
	Category    string
	SubCategory string
	QueryText   string
	Resolution  string
	Status      SessionStatus
	Language    string
	Summary     string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
	Latitude    *float64
	Longitude   *float64
}

// MessageSender indicates who authored a session message.
type MessageSender string

const (
	SenderUser  MessageSender = "user"
	SenderBot   MessageSender = "bot"
	SenderAgent MessageSender = "agent"
)

// Valid reports whether the sender is known.
func (s MessageSender) Valid() bool {
	return s == SenderUser || s == SenderBot || s == SenderAgent
}

// SessionMessage captures one entry of the intake conversation.
type SessionMessage struct {
	ID        string
	SessionID string
	Sender    MessageSender
	Content   string
	CreatedAt time.Time
}

// SessionPatch carries optional metadata updates applied with a message.
// Empty strings leave the field untouched.
type SessionPatch struct {
	Category    string
	SubCategory string
	QueryText   string
	Resolution  string
	Language    string
}

// Apply copies non-empty fields onto the session.
func (p SessionPatch) Apply(s *Session) {
	if p.Category != "" {
		s.Category = p.Category
	}
	if p.SubCategory != "" {
		s.SubCategory = p.SubCategory
	}
	if p.QueryText != "" {
		s.QueryText = p.QueryText
	}
	if p.Resolution != "" {
		s.Resolution = p.Resolution
	}
	if p.Language != "" {
		s.Language = p.Language
	}
}
