package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// StaffTicketsHandler handles ticket assignment endpoints.
type StaffTicketsHandler struct {
	assignments *service.AssignmentService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(assignments *service.AssignmentService) *StaffTicketsHandler {
	return &StaffTicketsHandler{assignments: assignments}
}

// Assign POST /api/tickets/:id/assign. An empty body with auto set picks
// an online agent; an empty assignee without auto clears the assignment.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticketID := c.Params("id")
	assignee := strings.TrimSpace(req.AssigneeID)

	var ticket *domain.Ticket
	switch {
	case req.Auto:
		ticket, err = h.assignments.AutoAssign(c.UserContext(), actor, ticketID)
	case assignee == "":
		ticket, err = h.assignments.Unassign(c.UserContext(), actor, ticketID)
	default:
		ticket, err = h.assignments.Assign(c.UserContext(), actor, ticketID, assignee)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SelfAssign POST /api/tickets/:id/self-assign.
func (h *StaffTicketsHandler) SelfAssign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.assignments.SelfAssign(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}
