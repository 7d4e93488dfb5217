package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
)

type sessionRepo struct{ s *Store }

func (r sessionRepo) Create(_ context.Context, session *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.sessions[session.ID] = *cloneSession(*session)
	return nil
}

func (r sessionRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(session), nil
}

func (r sessionRepo) List(_ context.Context, filter repository.SessionFilter) ([]domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Session
	for _, session := range r.s.sessions {
		if filter.CustomerID != nil && session.CustomerID != *filter.CustomerID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, session.Status) {
			continue
		}
		if !inWindow(session.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		out = append(out, *cloneSession(session))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset, 50), nil
}

func containsStatus[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (r sessionRepo) AppendMessage(_ context.Context, msg *domain.SessionMessage, patch domain.SessionPatch) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[msg.SessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if session.Status != domain.SessionStatusActive {
		return nil, repository.ErrStateConflict
	}
	r.s.messages[msg.SessionID] = append(r.s.messages[msg.SessionID], *msg)
	patch.Apply(&session)
	r.s.sessions[session.ID] = session
	return cloneSession(session), nil
}

func (r sessionRepo) ListMessages(_ context.Context, sessionID string) ([]domain.SessionMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	msgs := r.s.messages[sessionID]
	out := make([]domain.SessionMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r sessionRepo) Resolve(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok || session.Status != domain.SessionStatusActive {
		return false, nil
	}
	session.Status = domain.SessionStatusResolved
	session.ResolvedAt = &at
	r.s.sessions[id] = session
	return true, nil
}

func (r sessionRepo) SetSummary(_ context.Context, id, summary string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Summary = summary
	r.s.sessions[id] = session
	return nil
}

func (r sessionRepo) Escalate(_ context.Context, id string, build repository.TicketFactory) (*domain.Ticket, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if ticketID, ok := r.s.bySession[id]; ok {
		return cloneTicket(r.s.tickets[ticketID]), false, nil
	}
	if session.Status == domain.SessionStatusResolved {
		return nil, false, repository.ErrStateConflict
	}

	escalated := session
	escalated.Status = domain.SessionStatusEscalated
	for attempt := 1; ; attempt++ {
		candidate, err := build(cloneSession(escalated))
		if err != nil {
			return nil, false, err
		}
		err = ticketRepo(r).insertLocked(candidate)
		if err == nil {
			r.s.sessions[id] = escalated
			return cloneTicket(r.s.tickets[candidate.ID]), true, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt == repository.MaxInsertAttempts {
			return nil, false, err
		}
	}
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.insertLocked(ticket); err != nil {
		return err
	}
	ticket.Version = 1
	return nil
}

func (r ticketRepo) insertLocked(ticket *domain.Ticket) error {
	if _, ok := r.s.tickets[ticket.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := r.s.refs[ticket.ReferenceNumber]; ok {
		return repository.ErrDuplicate
	}
	if ticket.SessionID != nil {
		if _, ok := r.s.bySession[*ticket.SessionID]; ok {
			return repository.ErrDuplicate
		}
	}
	stored := *cloneTicket(*ticket)
	stored.Version = 1
	r.s.tickets[ticket.ID] = stored
	r.s.refs[ticket.ReferenceNumber] = ticket.ID
	if ticket.SessionID != nil {
		r.s.bySession[*ticket.SessionID] = ticket.ID
	}
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	current.Status = ticket.Status
	current.Priority = ticket.Priority
	current.AssigneeID = ticket.AssigneeID
	current.ResolutionNotes = ticket.ResolutionNotes
	current.ResolvedAt = ticket.ResolvedAt
	current.SLAHours = ticket.SLAHours
	current.SLADeadline = ticket.SLADeadline
	current.UpdatedAt = ticket.UpdatedAt
	current.Version++
	r.s.tickets[ticket.ID] = *cloneTicket(current)
	ticket.Version = current.Version
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (r ticketRepo) GetBySessionID(_ context.Context, sessionID string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.bySession[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTicket(r.s.tickets[id]), nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}
	var out []domain.Ticket
	for _, ticket := range r.s.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsStatus(filter.Priorities, ticket.Priority) {
			continue
		}
		if !inWindow(ticket.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(ticket.ReferenceNumber), search) &&
			!strings.Contains(strings.ToLower(ticket.Description), search) {
			continue
		}
		out = append(out, *cloneTicket(ticket))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset, 20), nil
}

func (r ticketRepo) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.s.tickets {
		if ticket.IsOpen() {
			out = append(out, *cloneTicket(ticket))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SLADeadline.Before(out[j].SLADeadline) })
	return out, nil
}

func (r ticketRepo) ClaimAlert(_ context.Context, id string, level domain.AlertLevel, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || !ticket.IsOpen() || ticket.AlertSent(level) {
		return false, nil
	}
	ticket.MarkAlert(level)
	ticket.UpdatedAt = at
	r.s.tickets[id] = ticket
	return true, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history[history.TicketID] = append(r.s.history[history.TicketID], *history)
	return nil
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := r.s.history[ticketID]
	out := make([]domain.TicketHistory, len(entries))
	copy(out, entries)
	return out, nil
}

type feedbackRepo struct{ s *Store }

func (r feedbackRepo) Create(_ context.Context, feedback *domain.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.feedback = append(r.s.feedback, *feedback)
	return nil
}

func (r feedbackRepo) List(_ context.Context, filter repository.FeedbackFilter) ([]domain.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Feedback
	for _, fb := range r.s.feedback {
		if filter.UserID != nil && fb.UserID != *filter.UserID {
			continue
		}
		if !inWindow(fb.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		out = append(out, fb)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset, 50), nil
}

type settingsRepo struct{ s *Store }

func (r settingsRepo) Get(_ context.Context, key string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.settings[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (r settingsRepo) Set(_ context.Context, key, value, _ string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return nil
}

func (r settingsRepo) ListByPrefix(_ context.Context, prefix string) (map[string]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]string)
	for k, v := range r.s.settings {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}
