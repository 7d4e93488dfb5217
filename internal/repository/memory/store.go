// Package memory provides in-process implementations of the repository
// interfaces. A single Store guards every collection with one mutex so that
// multi-entity operations such as escalation stay atomic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/refgen"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// Store holds all collections.
type Store struct {
	mu sync.Mutex

	users     map[string]domain.User
	sessions  map[string]domain.Session
	messages  map[string][]domain.SessionMessage
	tickets   map[string]domain.Ticket
	history   map[string][]domain.TicketHistory
	feedback  []domain.Feedback
	settings  map[string]string
	refs      map[string]string
	bySession map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		sessions:  make(map[string]domain.Session),
		messages:  make(map[string][]domain.SessionMessage),
		tickets:   make(map[string]domain.Ticket),
		history:   make(map[string][]domain.TicketHistory),
		settings:  make(map[string]string),
		refs:      make(map[string]string),
		bySession: make(map[string]string),
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Sessions returns the session repository view.
func (s *Store) Sessions() repository.SessionRepository { return sessionRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// History returns the ticket history repository view.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

// Feedback returns the feedback repository view.
func (s *Store) Feedback() repository.FeedbackRepository { return feedbackRepo{s} }

// Settings returns the settings repository view.
func (s *Store) Settings() repository.SettingsRepository { return settingsRepo{s} }

func cloneTicket(t domain.Ticket) *domain.Ticket {
	out := t
	if t.SessionID != nil {
		v := *t.SessionID
		out.SessionID = &v
	}
	if t.AssigneeID != nil {
		v := *t.AssigneeID
		out.AssigneeID = &v
	}
	if t.ResolvedAt != nil {
		v := *t.ResolvedAt
		out.ResolvedAt = &v
	}
	return &out
}

func cloneSession(s domain.Session) *domain.Session {
	out := s
	if s.ResolvedAt != nil {
		v := *s.ResolvedAt
		out.ResolvedAt = &v
	}
	return &out
}

func inWindow(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && !at.Before(*to) {
		return false
	}
	return true
}

func page[T any](items []T, limit, offset, fallback int) []T {
	if limit == repository.NoLimit {
		return items
	}
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insertLocked(user)
}

func (r userRepo) insertLocked(user *domain.User) error {
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
		if user.EmployeeID != nil && existing.EmployeeID != nil && *existing.EmployeeID == *user.EmployeeID {
			return repository.ErrDuplicate
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) CreateStaff(_ context.Context, user *domain.User, prefix string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	highest := 0
	for _, existing := range r.s.users {
		if existing.EmployeeID == nil {
			continue
		}
		if seq, ok := refgen.EmployeeSeq(prefix, *existing.EmployeeID); ok && seq > highest {
			highest = seq
		}
	}
	id := refgen.FormatEmployeeID(prefix, highest+1)
	user.EmployeeID = &id
	return r.insertLocked(user)
}

func (r userRepo) SetOnline(_ context.Context, id string, online bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsOnline = online
	r.s.users[id] = user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) ListByRole(_ context.Context, roles ...domain.Role) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, user := range r.s.users {
		for _, role := range roles {
			if user.Role == role {
				out = append(out, user)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
