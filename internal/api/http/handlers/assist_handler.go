package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// AssistHandler serves the complaint menu and query guidance.
type AssistHandler struct {
	sessions *service.SessionService
}

// NewAssistHandler constructs handler.
func NewAssistHandler(sessions *service.SessionService) *AssistHandler {
	return &AssistHandler{sessions: sessions}
}

// Menu GET /api/menu.
func (h *AssistHandler) Menu(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.NewSectorResponses(h.sessions.Menu())})
}

// SubCategories POST /api/menu/subcategories.
func (h *AssistHandler) SubCategories(c *fiber.Ctx) error {
	var req dto.SubCategoriesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sector, entries, err := h.sessions.SubCategories(c.UserContext(), req.SectorKey, req.Language)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"sector":         dto.SectorResponse{Key: sector.Key, Name: sector.Name, Icon: sector.Icon},
		"sub_categories": dto.NewSubCategoryResponses(entries),
	}})
}

// Assist POST /api/assist.
func (h *AssistHandler) Assist(c *fiber.Ctx) error {
	var req dto.AssistRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.sessions.Assist(c.UserContext(), service.AssistInput{
		Query:          req.Query,
		CategoryKey:    req.CategoryKey,
		SubCategoryKey: req.SubCategoryKey,
		Language:       req.Language,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssistResponse(result)})
}

// DetectLanguage POST /api/detect-language.
func (h *AssistHandler) DetectLanguage(c *fiber.Ctx) error {
	var req dto.DetectLanguageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	language, err := h.sessions.DetectLanguage(c.UserContext(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"language": language}})
}
