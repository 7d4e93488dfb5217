package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
)

// ReportsHandler serves analytics.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Overview GET /api/reports/overview.
func (h *ReportsHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.reports.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOverviewResponse(overview)})
}

// Trends GET /api/reports/trends?days=N.
func (h *ReportsHandler) Trends(c *fiber.Ctx) error {
	trends, err := h.reports.Trends(c.UserContext(), c.QueryInt("days", 30))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrendsResponse(trends)})
}

// Monthly GET /api/reports/monthly?months=N.
func (h *ReportsHandler) Monthly(c *fiber.Ctx) error {
	months, err := h.reports.Monthly(c.UserContext(), c.QueryInt("months", 6))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMonthlyResponses(months)})
}

// CustomerDashboard GET /api/customer/dashboard.
func (h *ReportsHandler) CustomerDashboard(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	dashboard, err := h.reports.CustomerDashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCustomerDashboardResponse(dashboard)})
}
