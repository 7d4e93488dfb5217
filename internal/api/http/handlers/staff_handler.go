package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/slapolicy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// StaffHandler exposes employee administration and SLA policy endpoints.
type StaffHandler struct {
	authService *service.AuthService
	policy      *slapolicy.Store
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, policy *slapolicy.Store) *StaffHandler {
	return &StaffHandler{authService: authService, policy: policy}
}

// CreateStaff handles POST /api/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.authService.CreateStaff(c.UserContext(), actor, service.CreateStaffInput{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Role:        req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListStaff handles GET /api/staff?role=manager,human_agent.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	users, err := h.authService.ListStaff(c.UserContext(), actor, splitQuery(c.Query("role")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

// SetOnline handles PUT /api/staff/me/online.
func (h *StaffHandler) SetOnline(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.OnlineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.SetOnline(c.UserContext(), actor, req.Online); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"online": req.Online}})
}

// GetSLAPolicy handles GET /api/sla-policy.
func (h *StaffHandler) GetSLAPolicy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.policy.Snapshot().Map()})
}

// SetSLAPolicy handles PUT /api/sla-policy/:priority.
func (h *StaffHandler) SetSLAPolicy(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pr, ok := domain.ParsePriority(c.Params("priority"))
	if !ok {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": c.Params("priority")})
	}
	if err := h.policy.Set(c.UserContext(), actor, pr, req.Hours); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.policy.Snapshot().Map()})
}
