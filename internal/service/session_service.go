package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/priority"
	"github.com/spec-kit/complaint-service/internal/refgen"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/slapolicy"
	"github.com/spec-kit/complaint-service/internal/textsvc"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// SessionService drives the intake conversation and its two terminal
// transitions, resolve and escalate.
type SessionService struct {
	sessions   repository.SessionRepository
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	policy     *slapolicy.Store
	refs       *refgen.Generator
	text       *textsvc.Guard
	notifier   *NotificationService
	dispatcher events.Dispatcher
	clock      clock.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger

	summaryTimeout time.Duration
}

// SessionDependencies wires the session service.
type SessionDependencies struct {
	SessionRepo  repository.SessionRepository
	TicketRepo   repository.TicketRepository
	HistoryRepo  repository.TicketHistoryRepository
	UserRepo     repository.UserRepository
	Policy       *slapolicy.Store
	References   *refgen.Generator
	Text         *textsvc.Guard
	Notification *NotificationService
	Dispatcher   events.Dispatcher
	Clock        clock.Clock
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	// SummaryTimeout bounds summarization after a transition commits.
	SummaryTimeout time.Duration
}

// CreateSessionInput starts a session.
type CreateSessionInput struct {
	Language  string
	Latitude  *float64
	Longitude *float64
}

// AppendMessageInput is one message plus optional metadata updates.
type AppendMessageInput struct {
	Sender  domain.MessageSender
	Content string
	Patch   domain.SessionPatch
}

// SessionDetail is a session with its transcript and linked ticket.
type SessionDetail struct {
	Session  *domain.Session
	Messages []domain.SessionMessage
	Ticket   *domain.Ticket
}

// SessionListFilter narrows staff session listings.
type SessionListFilter struct {
	CustomerID  *string
	Statuses    []domain.SessionStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewSessionService constructs the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.References == nil {
		deps.References = refgen.NewGenerator(deps.Clock, nil)
	}
	if deps.Policy == nil {
		deps.Policy = slapolicy.NewStore(slapolicy.StoreDependencies{Logger: deps.Logger})
	}
	if deps.Text == nil {
		deps.Text = textsvc.NewGuard(nil, 0, deps.Logger)
	}
	if deps.SummaryTimeout <= 0 {
		deps.SummaryTimeout = 15 * time.Second
	}
	return &SessionService{
		sessions:       deps.SessionRepo,
		tickets:        deps.TicketRepo,
		history:        deps.HistoryRepo,
		users:          deps.UserRepo,
		policy:         deps.Policy,
		refs:           deps.References,
		text:           deps.Text,
		notifier:       deps.Notification,
		dispatcher:     deps.Dispatcher,
		clock:          deps.Clock,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		summaryTimeout: deps.SummaryTimeout,
	}
}

// Create opens an active session owned by actor.
func (s *SessionService) Create(ctx context.Context, actor domain.Actor, input CreateSessionInput) (*domain.Session, error) {
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, apperrors.NewValidationError("latitude and longitude must be given together", nil)
	}
	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = textsvc.FallbackLanguage
	}
	session := &domain.Session{
		ID:         uuid.NewString(),
		CustomerID: actor.UserID,
		Status:     domain.SessionStatusActive,
		Language:   language,
		CreatedAt:  s.clock.Now(),
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, mapRepoError(err, "session", session.ID)
	}
	return session, nil
}

// AppendMessage records a message and applies the metadata patch. Only
// active sessions accept messages.
func (s *SessionService) AppendMessage(ctx context.Context, actor domain.Actor, sessionID string, input AppendMessageInput) (*domain.SessionMessage, *domain.Session, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, nil, apperrors.NewValidationError("content is required", nil)
	}
	if input.Sender == "" {
		input.Sender = domain.SenderUser
	}
	if !input.Sender.Valid() {
		return nil, nil, apperrors.NewValidationError("unknown sender", map[string]any{"sender": input.Sender})
	}
	if _, err := s.owned(ctx, actor, sessionID); err != nil {
		return nil, nil, err
	}

	msg := &domain.SessionMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    input.Sender,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}
	session, err := s.sessions.AppendMessage(ctx, msg, input.Patch)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, nil, apperrors.NewConflict("session is closed", map[string]any{"id": sessionID})
		}
		return nil, nil, mapRepoError(err, "session", sessionID)
	}
	return msg, session, nil
}

// Resolve moves an active session to resolved and then tries to summarize
// it. The transition commits first; a failed summary leaves the summary
// blank. Resolving an already resolved session returns it unchanged.
func (s *SessionService) Resolve(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	changed, err := s.sessions.Resolve(ctx, id, s.clock.Now())
	if err != nil {
		return nil, mapRepoError(err, "session", id)
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "session", id)
	}
	if !changed {
		if session.Status == domain.SessionStatusResolved {
			return session, nil
		}
		return nil, apperrors.NewConflict("escalated sessions cannot be resolved", map[string]any{"id": id})
	}

	session.Summary = s.summarize(ctx, session)

	event := events.New(events.EventSessionResolved, actor, s.clock.Now(), events.SessionResolvedPayload{
		CustomerID:  session.CustomerID,
		Category:    session.Category,
		SubCategory: session.SubCategory,
	})
	event.SessionID = session.ID
	publishEvent(ctx, s.dispatcher, event)
	return session, nil
}

// Escalate promotes the session into exactly one ticket. Repeated calls
// return the ticket created by the first.
func (s *SessionService) Escalate(ctx context.Context, actor domain.Actor, id string) (*domain.Session, *domain.Ticket, error) {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, nil, err
	}

	policy := s.policy.Snapshot()
	build := func(session *domain.Session) (*domain.Ticket, error) {
		now := s.clock.Now()
		pr := priority.Classify(session.QueryText, session.SubCategory)
		hours, deadline := policy.Deadline(now, pr)
		sessionID := session.ID
		return &domain.Ticket{
			ID:              uuid.NewString(),
			ReferenceNumber: s.refs.TicketReference(),
			SessionID:       &sessionID,
			CustomerID:      session.CustomerID,
			Category:        session.Category,
			SubCategory:     session.SubCategory,
			Description:     session.QueryText,
			Status:          domain.TicketStatusPending,
			Priority:        pr,
			CreatedAt:       now,
			UpdatedAt:       now,
			SLAHours:        hours,
			SLADeadline:     deadline,
		}, nil
	}

	ticket, created, err := s.sessions.Escalate(ctx, id, build)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, nil, apperrors.NewConflict("resolved sessions cannot be escalated", map[string]any{"id": id})
		}
		return nil, nil, mapRepoError(err, "session", id)
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapRepoError(err, "session", id)
	}
	if !created {
		return session, ticket, nil
	}

	s.logger.Info("session escalated",
		zap.String("session_id", id),
		zap.String("ticket_id", ticket.ID),
		zap.String("reference", ticket.ReferenceNumber),
		zap.String("priority", string(ticket.Priority)))

	session.Summary = s.summarize(ctx, session)
	s.recordTicketCreated(ctx, actor, ticket)

	now := s.clock.Now()
	createdEvent := events.New(events.EventTicketCreated, actor, now, events.TicketCreatedPayload{
		ReferenceNumber: ticket.ReferenceNumber,
		CustomerID:      ticket.CustomerID,
		SessionID:       ticket.SessionID,
		Priority:        ticket.Priority,
		Category:        ticket.Category,
		SubCategory:     ticket.SubCategory,
		SLAHours:        ticket.SLAHours,
		SLADeadline:     ticket.SLADeadline,
	})
	createdEvent.TicketID = ticket.ID
	createdEvent.SessionID = session.ID
	publishEvent(ctx, s.dispatcher, createdEvent)

	escalated := events.New(events.EventSessionEscalated, actor, now, events.SessionEscalatedPayload{
		CustomerID:      session.CustomerID,
		ReferenceNumber: ticket.ReferenceNumber,
		Priority:        ticket.Priority,
	})
	escalated.TicketID = ticket.ID
	escalated.SessionID = session.ID
	publishEvent(ctx, s.dispatcher, escalated)

	return session, ticket, nil
}

// Get returns the session with its transcript and ticket.
func (s *SessionService) Get(ctx context.Context, actor domain.Actor, id string) (*SessionDetail, error) {
	session, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.sessions.ListMessages(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "session", id)
	}
	detail := &SessionDetail{Session: session, Messages: messages}
	if s.tickets != nil {
		ticket, err := s.tickets.GetBySessionID(ctx, id)
		switch {
		case err == nil:
			detail.Ticket = ticket
		case !errors.Is(err, repository.ErrNotFound):
			return nil, mapRepoError(err, "ticket", id)
		}
	}
	return detail, nil
}

// ListMessages returns the transcript in order.
func (s *SessionService) ListMessages(ctx context.Context, actor domain.Actor, id string) ([]domain.SessionMessage, error) {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	messages, err := s.sessions.ListMessages(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "session", id)
	}
	return messages, nil
}

// ListForCustomer returns the actor's sessions, newest first.
func (s *SessionService) ListForCustomer(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Session, error) {
	sessions, err := s.sessions.List(ctx, repository.SessionFilter{CustomerID: strPtr(actor.UserID), Limit: limit, Offset: offset})
	if err != nil {
		return nil, mapRepoError(err, "session", "")
	}
	return sessions, nil
}

// List returns sessions across customers for staff.
func (s *SessionService) List(ctx context.Context, actor domain.Actor, filter SessionListFilter) ([]domain.Session, error) {
	if !actor.CanReadAllTickets() {
		return s.ListForCustomer(ctx, actor, filter.Limit, filter.Offset)
	}
	statuses := make([]domain.SessionStatus, 0, len(filter.Statuses))
	for _, raw := range filter.Statuses {
		status, ok := domain.ParseSessionStatus(string(raw))
		if !ok {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		statuses = append(statuses, status)
	}
	sessions, err := s.sessions.List(ctx, repository.SessionFilter{
		CustomerID:  filter.CustomerID,
		Statuses:    statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, mapRepoError(err, "session", "")
	}
	return sessions, nil
}

// SendSummary queues the stored summary for delivery to the session owner.
func (s *SessionService) SendSummary(ctx context.Context, actor domain.Actor, id string) error {
	detail, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	session := detail.Session
	if session.CustomerID != actor.UserID {
		return apperrors.NewForbidden("only the session owner can request its summary")
	}
	if strings.TrimSpace(session.Summary) == "" {
		return apperrors.NewValidationError("no summary available for this session", map[string]any{"id": id})
	}
	if s.users == nil || s.notifier == nil {
		return apperrors.NewServiceUnavailable(errors.New("notifications are not configured"))
	}
	customer, err := s.users.GetByID(ctx, session.CustomerID)
	if err != nil {
		return mapRepoError(err, "user", session.CustomerID)
	}
	if !s.notifier.SendSummary(customer, session, detail.Ticket) {
		return apperrors.NewServiceUnavailable(errors.New("notification queue is full"))
	}
	return nil
}

// owned loads the session and checks the actor may act on it.
func (s *SessionService) owned(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "session", id)
	}
	if !actor.Role.IsStaff() && session.CustomerID != actor.UserID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return session, nil
}

// summarize runs after a committed transition. It never fails the caller.
func (s *SessionService) summarize(ctx context.Context, session *domain.Session) string {
	started := time.Now()
	defer func() { s.metrics.ObserveSummary(time.Since(started)) }()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.summaryTimeout)
	defer cancel()

	messages, err := s.sessions.ListMessages(ctx, session.ID)
	if err != nil {
		s.logger.Warn("load transcript for summary", zap.String("session_id", session.ID), zap.Error(err))
		return ""
	}
	summary := s.text.Summary(ctx, messages, session.Category, session.SubCategory)
	if summary == "" {
		return ""
	}
	if err := s.sessions.SetSummary(ctx, session.ID, summary); err != nil {
		s.logger.Warn("store session summary", zap.String("session_id", session.ID), zap.Error(err))
		return ""
	}
	return summary
}

func (s *SessionService) recordTicketCreated(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		ChangedByID: actor.UserID,
		ChangeType:  domain.ChangeTypeCreated,
		NewValue: map[string]any{
			"status":       ticket.Status,
			"priority":     ticket.Priority,
			"session_id":   ticket.SessionID,
			"sla_hours":    ticket.SLAHours,
			"sla_deadline": ticket.SLADeadline,
		},
		CreatedAt: s.clock.Now(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("record ticket history", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}
