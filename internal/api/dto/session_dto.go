package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
)

// CreateSessionRequest starts a session.
type CreateSessionRequest struct {
	Language  string   `json:"language"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// AppendMessageRequest adds one message and optional metadata.
type AppendMessageRequest struct {
	Sender      domain.MessageSender `json:"sender"`
	Content     string               `json:"content"`
	Category    string               `json:"category"`
	SubCategory string               `json:"sub_category"`
	QueryText   string               `json:"query_text"`
	Resolution  string               `json:"resolution"`
	Language    string               `json:"language"`
}

// Patch extracts the metadata update.
func (r AppendMessageRequest) Patch() domain.SessionPatch {
	return domain.SessionPatch{
		Category:    r.Category,
		SubCategory: r.SubCategory,
		QueryText:   r.QueryText,
		Resolution:  r.Resolution,
		Language:    r.Language,
	}
}

// SessionResponse is the session view.
type SessionResponse struct {
	ID          string               `json:"id"`
	CustomerID  string               `json:"customer_id"`
	Category    string               `json:"category"`
	SubCategory string               `json:"sub_category"`
	QueryText   string               `json:"query_text"`
	Resolution  string               `json:"resolution"`
	Status      domain.SessionStatus `json:"status"`
	Language    string               `json:"language"`
	Summary     string               `json:"summary"`
	Latitude    *float64             `json:"latitude,omitempty"`
	Longitude   *float64             `json:"longitude,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	ResolvedAt  *time.Time           `json:"resolved_at"`
}

// NewSessionResponse maps a session.
func NewSessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		CustomerID:  s.CustomerID,
		Category:    s.Category,
		SubCategory: s.SubCategory,
		QueryText:   s.QueryText,
		Resolution:  s.Resolution,
		Status:      s.Status,
		Language:    s.Language,
		Summary:     s.Summary,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		CreatedAt:   s.CreatedAt,
		ResolvedAt:  s.ResolvedAt,
	}
}

// NewSessionResponses maps a slice of sessions.
func NewSessionResponses(sessions []domain.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, NewSessionResponse(&sessions[i]))
	}
	return out
}

// MessageResponse is one transcript entry.
type MessageResponse struct {
	ID        string               `json:"id"`
	Sender    domain.MessageSender `json:"sender"`
	Content   string               `json:"content"`
	CreatedAt time.Time            `json:"created_at"`
}

// NewMessageResponse maps a message.
func NewMessageResponse(m *domain.SessionMessage) MessageResponse {
	return MessageResponse{ID: m.ID, Sender: m.Sender, Content: m.Content, CreatedAt: m.CreatedAt}
}

// SessionDetailResponse is a session with transcript and ticket.
type SessionDetailResponse struct {
	SessionResponse
	Messages []MessageResponse `json:"messages"`
	Ticket   *TicketResponse   `json:"ticket"`
}

// NewSessionDetailResponse maps a session detail.
func NewSessionDetailResponse(d *service.SessionDetail) SessionDetailResponse {
	out := SessionDetailResponse{
		SessionResponse: NewSessionResponse(d.Session),
		Messages:        make([]MessageResponse, 0, len(d.Messages)),
	}
	for i := range d.Messages {
		out.Messages = append(out.Messages, NewMessageResponse(&d.Messages[i]))
	}
	if d.Ticket != nil {
		t := NewTicketResponse(d.Ticket)
		out.Ticket = &t
	}
	return out
}

// FeedbackRequest submits a rating.
type FeedbackRequest struct {
	SessionID *string `json:"session_id"`
	Rating    int     `json:"rating"`
	Comment   string  `json:"comment"`
}

// FeedbackResponse is one rating.
type FeedbackResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID *string   `json:"session_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFeedbackResponse maps a rating.
func NewFeedbackResponse(f *domain.Feedback) FeedbackResponse {
	return FeedbackResponse{ID: f.ID, UserID: f.UserID, SessionID: f.SessionID, Rating: f.Rating, Comment: f.Comment, CreatedAt: f.CreatedAt}
}
