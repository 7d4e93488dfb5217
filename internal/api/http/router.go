package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Tickets        *handlers.TicketsHandler
	Sessions       *handlers.SessionsHandler
	Assist         *handlers.AssistHandler
	Feedback       *handlers.FeedbackHandler
	Reports        *handlers.ReportsHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Public routes are registered before the
// authenticated groups that share their prefix.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	api := app.Group("/api")
	api.Get("/menu", cfg.Assist.Menu)
	api.Post("/menu/subcategories", cfg.Assist.SubCategories)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireRoles())
	protected.Post("/assist", cfg.Assist.Assist)
	protected.Post("/detect-language", cfg.Assist.DetectLanguage)

	sessions := protected.Group("/sessions")
	sessions.Post("/", cfg.Sessions.Create)
	sessions.Get("/", cfg.Sessions.List)
	sessions.Get("/:id", cfg.Sessions.Get)
	sessions.Get("/:id/messages", cfg.Sessions.Messages)
	sessions.Post("/:id/messages", cfg.Sessions.AppendMessage)
	sessions.Put("/:id/resolve", cfg.Sessions.Resolve)
	sessions.Put("/:id/escalate", cfg.Sessions.Escalate)
	sessions.Post("/:id/send-summary", cfg.Sessions.SendSummary)

	tickets := protected.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", auth.RequireStaff(), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", auth.RequireStaff(), cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/recompute-sla", auth.RequireStaff(), cfg.Tickets.RecomputeSLA)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/assign", auth.RequireRoles(domain.RoleManager, domain.RoleAdmin), cfg.StaffTickets.Assign)
	tickets.Post("/:id/self-assign", auth.RequireRoles(domain.RoleHumanAgent, domain.RoleManager), cfg.StaffTickets.SelfAssign)

	protected.Get("/sla-policy", cfg.Staff.GetSLAPolicy)
	protected.Put("/sla-policy/:priority", auth.RequireRoles(domain.RoleAdmin), cfg.Staff.SetSLAPolicy)

	protected.Post("/feedback", cfg.Feedback.Submit)
	protected.Get("/feedback", cfg.Feedback.List)

	reports := protected.Group("/reports", auth.RequireRoles(domain.RoleManager, domain.RoleCTO, domain.RoleAdmin))
	reports.Get("/overview", cfg.Reports.Overview)
	reports.Get("/trends", cfg.Reports.Trends)
	reports.Get("/monthly", cfg.Reports.Monthly)
	protected.Get("/customer/dashboard", cfg.Reports.CustomerDashboard)

	protected.Get("/staff", auth.RequireRoles(domain.RoleManager, domain.RoleCTO, domain.RoleAdmin), cfg.Staff.ListStaff)
	protected.Post("/staff", auth.RequireRoles(domain.RoleAdmin), cfg.Staff.CreateStaff)
	protected.Put("/staff/me/online", auth.RequireRoles(domain.RoleHumanAgent), cfg.Staff.SetOnline)
}
