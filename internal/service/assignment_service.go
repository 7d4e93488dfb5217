package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// AssignmentService routes escalated tickets to human agents. Every change
// goes through TicketService.Update so it is versioned and audited.
type AssignmentService struct {
	tickets *TicketService
	users   repository.UserRepository
	logger  *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Tickets  *TicketService
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AssignmentService{tickets: deps.Tickets, users: deps.UserRepo, logger: deps.Logger}
}

// SelfAssign assigns the ticket to the calling agent.
func (s *AssignmentService) SelfAssign(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if actor.Role != domain.RoleHumanAgent && actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("insufficient role for self assign")
	}
	return s.tickets.Update(ctx, actor, ticketID, TicketUpdate{AssigneeID: strPtr(actor.UserID)})
}

// Assign assigns the ticket to assigneeID. Managers and admins only.
func (s *AssignmentService) Assign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	return s.tickets.Update(ctx, actor, ticketID, TicketUpdate{AssigneeID: &assigneeID})
}

// AutoAssign picks an online human agent for the ticket. The choice is
// stable for a given ticket and agent roster.
func (s *AssignmentService) AutoAssign(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	agents, err := s.users.ListByRole(ctx, domain.RoleHumanAgent)
	if err != nil {
		return nil, mapRepoError(err, "user", "")
	}
	online := agents[:0]
	for _, a := range agents {
		if a.IsOnline {
			online = append(online, a)
		}
	}
	if len(online) == 0 {
		return nil, apperrors.NewConflict("no online agents available", map[string]any{"ticket_id": ticketID})
	}
	sort.Slice(online, func(i, j int) bool {
		return online[i].CreatedAt.Before(online[j].CreatedAt)
	})
	assignee := online[selectIndex(ticketID, len(online))]
	s.logger.Info("auto-assigning ticket", zap.String("ticket_id", ticketID), zap.String("assignee_id", assignee.ID))
	return s.tickets.Update(ctx, actor, ticketID, TicketUpdate{AssigneeID: &assignee.ID})
}

// Unassign clears the assignee.
func (s *AssignmentService) Unassign(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	return s.tickets.Update(ctx, actor, ticketID, TicketUpdate{ClearAssignee: true})
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}

func requireAssignPriv(actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return nil
	}
	return apperrors.NewForbidden("insufficient role for assignment")
}
