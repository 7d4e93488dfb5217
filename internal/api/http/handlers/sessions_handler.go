package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// SessionsHandler exposes the intake conversation endpoints.
type SessionsHandler struct {
	sessions *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessions *service.SessionService) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

// Create POST /api/sessions.
func (h *SessionsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	session, err := h.sessions.Create(c.UserContext(), actor, service.CreateSessionInput{
		Language:  req.Language,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// List GET /api/sessions. Customers get their own sessions.
func (h *SessionsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter := service.SessionListFilter{
		CustomerID:  optionalString(c.Query("customer_id")),
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
	}
	for _, part := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.SessionStatus(part))
	}
	filter.Limit, filter.Offset = page(c)
	sessions, err := h.sessions.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponses(sessions)})
}

// Get GET /api/sessions/:id.
func (h *SessionsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	detail, err := h.sessions.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionDetailResponse(detail)})
}

// Messages GET /api/sessions/:id/messages.
func (h *SessionsHandler) Messages(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	messages, err := h.sessions.ListMessages(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, dto.NewMessageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// AppendMessage POST /api/sessions/:id/messages.
func (h *SessionsHandler) AppendMessage(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AppendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, session, err := h.sessions.AppendMessage(c.UserContext(), actor, c.Params("id"), service.AppendMessageInput{
		Sender:  req.Sender,
		Content: req.Content,
		Patch:   req.Patch(),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"message": dto.NewMessageResponse(msg),
		"session": dto.NewSessionResponse(session),
	}})
}

// Resolve PUT /api/sessions/:id/resolve.
func (h *SessionsHandler) Resolve(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	session, err := h.sessions.Resolve(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Escalate PUT /api/sessions/:id/escalate.
func (h *SessionsHandler) Escalate(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	session, ticket, err := h.sessions.Escalate(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"session": dto.NewSessionResponse(session),
		"ticket":  dto.NewTicketResponse(ticket),
	}})
}

// SendSummary POST /api/sessions/:id/send-summary.
func (h *SessionsHandler) SendSummary(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.sessions.SendSummary(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"queued": true}})
}
