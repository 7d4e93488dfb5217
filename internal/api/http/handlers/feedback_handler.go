package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// FeedbackHandler accepts and lists satisfaction ratings.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Submit POST /api/feedback.
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.feedback.Submit(c.UserContext(), actor, service.FeedbackInput{
		SessionID: req.SessionID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewFeedbackResponse(item)})
}

// List GET /api/feedback.
func (h *FeedbackHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	items, err := h.feedback.List(c.UserContext(), actor, parseTime(c.Query("created_from")), parseTime(c.Query("created_to")), limit, offset)
	if err != nil {
		return err
	}
	out := make([]dto.FeedbackResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewFeedbackResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}
