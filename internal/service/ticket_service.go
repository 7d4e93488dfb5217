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
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	policy     *slapolicy.Store
	refs       *refgen.Generator
	dispatcher events.Dispatcher
	clock      clock.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	UserRepo    repository.UserRepository
	Policy      *slapolicy.Store
	References  *refgen.Generator
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// CreateTicketInput describes an operator-created ticket.
type CreateTicketInput struct {
	CustomerID  string
	Category    string
	SubCategory string
	Description string
	// Priority is classified from the description when empty.
	Priority   domain.TicketPriority
	AssigneeID *string
}

// TicketUpdate carries the operator-editable fields. Nil fields are left
// untouched.
type TicketUpdate struct {
	Status          *domain.TicketStatus
	Priority        *domain.TicketPriority
	AssigneeID      *string
	ClearAssignee   bool
	ResolutionNotes *string
	Comment         string
}

func (u TicketUpdate) empty() bool {
	return u.Status == nil && u.Priority == nil && u.AssigneeID == nil && !u.ClearAssignee && u.ResolutionNotes == nil
}

// TicketListFilter describes ticket listing filters.
type TicketListFilter struct {
	AssigneeID  *string
	Category    *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
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
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		policy:     deps.Policy,
		refs:       deps.References,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Create opens a ticket without a session.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if !actor.CanManageTickets() {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	input.Description = strings.TrimSpace(input.Description)
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	if input.CustomerID == "" {
		return nil, apperrors.NewValidationError("customer_id is required", nil)
	}
	if input.Description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}
	pr := input.Priority
	if pr == "" {
		pr = priority.Classify(input.Description, input.SubCategory)
	} else {
		parsed, ok := domain.ParsePriority(string(pr))
		if !ok {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": pr})
		}
		pr = parsed
	}
	if s.users != nil {
		if _, err := s.users.GetByID(ctx, input.CustomerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewValidationError("customer does not exist", map[string]any{"customer_id": input.CustomerID})
			}
			return nil, mapRepoError(err, "user", input.CustomerID)
		}
	}
	if input.AssigneeID != nil {
		if err := s.validateAssignee(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	hours, deadline := s.policy.Snapshot().Deadline(now, pr)
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		CustomerID:  input.CustomerID,
		Category:    strings.TrimSpace(input.Category),
		SubCategory: strings.TrimSpace(input.SubCategory),
		Description: input.Description,
		Status:      domain.TicketStatusPending,
		Priority:    pr,
		AssigneeID:  input.AssigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
		SLAHours:    hours,
		SLADeadline: deadline,
	}

	var err error
	for attempt := 1; attempt <= repository.MaxInsertAttempts; attempt++ {
		ticket.ReferenceNumber = s.refs.TicketReference()
		if err = s.tickets.Create(ctx, ticket); !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		s.logger.Warn("ticket reference collision", zap.String("reference", ticket.ReferenceNumber), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticket.ID)
	}

	s.recordCreated(ctx, actor, ticket)
	s.publishCreated(ctx, actor, ticket)
	return ticket, nil
}

// Update applies an operator edit with optimistic concurrency, retrying
// when a concurrent writer bumped the version.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, id string, update TicketUpdate) (*domain.Ticket, error) {
	if !actor.CanManageTickets() {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	if update.empty() {
		return nil, apperrors.NewValidationError("no changes requested", nil)
	}
	if update.Status != nil {
		status, ok := domain.ParseTicketStatus(string(*update.Status))
		if !ok {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *update.Status})
		}
		update.Status = &status
	}
	if update.Priority != nil {
		pr, ok := domain.ParsePriority(string(*update.Priority))
		if !ok {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *update.Priority})
		}
		update.Priority = &pr
	}
	if update.AssigneeID != nil {
		if err := s.validateAssignee(ctx, *update.AssigneeID); err != nil {
			return nil, err
		}
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			return nil, mapRepoError(err, "ticket", id)
		}
		now := s.clock.Now()
		changes := applyUpdate(ticket, update, now)
		if changes.none() {
			return ticket, nil
		}
		ticket.UpdatedAt = now

		err = s.tickets.Update(ctx, ticket)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("ticket update lost race; retrying", zap.String("ticket_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, mapRepoError(err, "ticket", id)
		}
		s.afterUpdate(ctx, actor, ticket, changes, update.Comment)
		return ticket, nil
	}
	return nil, apperrors.NewConflict("ticket is being modified concurrently; retry later", map[string]any{"id": id})
}

// RecomputeSLA re-derives sla_hours and sla_deadline from the current
// priority and the current policy. Alert flags are left as they are.
func (s *TicketService) RecomputeSLA(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	if !actor.CanManageTickets() {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			return nil, mapRepoError(err, "ticket", id)
		}
		hours, deadline := s.policy.Snapshot().Deadline(ticket.CreatedAt, ticket.Priority)
		if hours == ticket.SLAHours && deadline.Equal(ticket.SLADeadline) {
			return ticket, nil
		}
		oldHours, oldDeadline := ticket.SLAHours, ticket.SLADeadline
		ticket.SLAHours = hours
		ticket.SLADeadline = deadline
		ticket.UpdatedAt = s.clock.Now()

		err = s.tickets.Update(ctx, ticket)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, mapRepoError(err, "ticket", id)
		}
		s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeSLARecompute,
			map[string]any{"sla_hours": oldHours, "sla_deadline": oldDeadline},
			map[string]any{"sla_hours": hours, "sla_deadline": deadline})
		return ticket, nil
	}
	return nil, apperrors.NewConflict("ticket is being modified concurrently; retry later", map[string]any{"id": id})
}

// Get returns a ticket the actor may read.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "ticket", id)
	}
	if !actor.CanReadAllTickets() && ticket.CustomerID != actor.UserID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// List returns tickets visible to the actor. Customers only ever see
// their own.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	statuses := make([]domain.TicketStatus, 0, len(filter.Statuses))
	for _, raw := range filter.Statuses {
		status, ok := domain.ParseTicketStatus(string(raw))
		if !ok {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		statuses = append(statuses, status)
	}
	priorities := make([]domain.TicketPriority, 0, len(filter.Priorities))
	for _, raw := range filter.Priorities {
		pr, ok := domain.ParsePriority(string(raw))
		if !ok {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": raw})
		}
		priorities = append(priorities, pr)
	}
	repoFilter := repository.TicketFilter{
		AssigneeID:  filter.AssigneeID,
		Category:    filter.Category,
		Statuses:    statuses,
		Priorities:  priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !actor.CanReadAllTickets() {
		repoFilter.CustomerID = strPtr(actor.UserID)
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, mapRepoError(err, "ticket", "")
	}
	return tickets, nil
}

// History returns the audit trail of a ticket the actor may read.
func (s *TicketService) History(ctx context.Context, actor domain.Actor, id string) ([]domain.TicketHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "ticket history", id)
	}
	return entries, nil
}

func (s *TicketService) validateAssignee(ctx context.Context, assigneeID string) error {
	if s.users == nil {
		return nil
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("assignee does not exist", map[string]any{"assignee_id": assigneeID})
		}
		return mapRepoError(err, "user", assigneeID)
	}
	if !assignee.Role.IsStaff() {
		return apperrors.NewValidationError("assignee must be an employee", map[string]any{"assignee_id": assigneeID})
	}
	return nil
}

type ticketChanges struct {
	oldStatus, newStatus     domain.TicketStatus
	oldPriority, newPriority domain.TicketPriority
	oldAssignee, newAssignee *string
	oldNotes                 string
	status                   bool
	priority                 bool
	assignee                 bool
	notes                    bool
}

func (c ticketChanges) none() bool {
	return !c.status && !c.priority && !c.assignee && !c.notes
}

// applyUpdate mutates ticket in place. Operators may move a ticket to any
// status, including reopening or escalating a resolved one. A priority
// change never moves the deadline. Leaving resolved clears resolved_at.
func applyUpdate(ticket *domain.Ticket, update TicketUpdate, now time.Time) ticketChanges {
	changes := ticketChanges{
		oldStatus:   ticket.Status,
		oldPriority: ticket.Priority,
		oldAssignee: ticket.AssigneeID,
		oldNotes:    ticket.ResolutionNotes,
	}

	if update.Status != nil && *update.Status != ticket.Status {
		next := *update.Status
		if next == domain.TicketStatusResolved {
			resolvedAt := now
			ticket.ResolvedAt = &resolvedAt
		} else if ticket.Status == domain.TicketStatusResolved {
			ticket.ResolvedAt = nil
		}
		ticket.Status = next
		changes.status = true
		changes.newStatus = next
	}

	if update.Priority != nil && *update.Priority != ticket.Priority {
		ticket.Priority = *update.Priority
		changes.priority = true
		changes.newPriority = *update.Priority
	}

	switch {
	case update.ClearAssignee && ticket.AssigneeID != nil:
		ticket.AssigneeID = nil
		changes.assignee = true
	case update.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *update.AssigneeID):
		assignee := *update.AssigneeID
		ticket.AssigneeID = &assignee
		changes.assignee = true
	}
	changes.newAssignee = ticket.AssigneeID

	if update.ResolutionNotes != nil && *update.ResolutionNotes != ticket.ResolutionNotes {
		ticket.ResolutionNotes = *update.ResolutionNotes
		changes.notes = true
	}
	return changes
}

func (s *TicketService) afterUpdate(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, changes ticketChanges, comment string) {
	now := ticket.UpdatedAt
	if changes.status {
		s.metrics.RecordTransition(string(changes.oldStatus), string(changes.newStatus))
		s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeStatus,
			map[string]any{"status": changes.oldStatus},
			map[string]any{"status": changes.newStatus, "comment": comment})
		event := events.New(events.EventTicketStatusChanged, actor, now, events.TicketStatusChangedPayload{
			ReferenceNumber: ticket.ReferenceNumber,
			CustomerID:      ticket.CustomerID,
			OldStatus:       changes.oldStatus,
			NewStatus:       changes.newStatus,
			Comment:         comment,
		})
		event.TicketID = ticket.ID
		publishEvent(ctx, s.dispatcher, event)
	}
	if changes.priority {
		s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypePriority,
			map[string]any{"priority": changes.oldPriority},
			map[string]any{"priority": changes.newPriority})
		event := events.New(events.EventTicketPriorityChanged, actor, now, events.TicketPriorityChangedPayload{
			OldPriority: changes.oldPriority,
			NewPriority: changes.newPriority,
		})
		event.TicketID = ticket.ID
		publishEvent(ctx, s.dispatcher, event)
	}
	if changes.assignee {
		s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeAssignee,
			map[string]any{"assignee_id": changes.oldAssignee},
			map[string]any{"assignee_id": changes.newAssignee})
		event := events.New(events.EventTicketAssigned, actor, now, events.TicketAssignedPayload{
			ReferenceNumber: ticket.ReferenceNumber,
			AssigneeID:      changes.newAssignee,
		})
		event.TicketID = ticket.ID
		publishEvent(ctx, s.dispatcher, event)
	}
	if changes.notes {
		s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeNotes,
			map[string]any{"resolution_notes": changes.oldNotes},
			map[string]any{"resolution_notes": ticket.ResolutionNotes})
	}
}

func (s *TicketService) recordCreated(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) {
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeCreated, nil, map[string]any{
		"status":       ticket.Status,
		"priority":     ticket.Priority,
		"sla_hours":    ticket.SLAHours,
		"sla_deadline": ticket.SLADeadline,
	})
}

func (s *TicketService) publishCreated(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) {
	event := events.New(events.EventTicketCreated, actor, ticket.CreatedAt, events.TicketCreatedPayload{
		ReferenceNumber: ticket.ReferenceNumber,
		CustomerID:      ticket.CustomerID,
		SessionID:       ticket.SessionID,
		Priority:        ticket.Priority,
		Category:        ticket.Category,
		SubCategory:     ticket.SubCategory,
		SLAHours:        ticket.SLAHours,
		SLADeadline:     ticket.SLADeadline,
	})
	event.TicketID = ticket.ID
	if ticket.SessionID != nil {
		event.SessionID = *ticket.SessionID
	}
	publishEvent(ctx, s.dispatcher, event)
}

// recordHistory writes an audit entry. The ticket change has already
// committed, so failures are logged rather than returned.
func (s *TicketService) recordHistory(ctx context.Context, actor domain.Actor, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		ChangedByID: actor.UserID,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("record ticket history",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}
