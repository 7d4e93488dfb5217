package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository/memory"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/slapolicy"
)

type testServer struct {
	app   *fiber.App
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	policy := slapolicy.NewStore(slapolicy.StoreDependencies{Settings: store.Settings(), Logger: logger})

	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
	}, service.AuthDependencies{UserRepo: store.Users()})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		HistoryRepo: store.History(),
		UserRepo:    store.Users(),
		Policy:      policy,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	sessions := service.NewSessionService(service.SessionDependencies{
		SessionRepo:    store.Sessions(),
		TicketRepo:     store.Tickets(),
		HistoryRepo:    store.History(),
		UserRepo:       store.Users(),
		Policy:         policy,
		Dispatcher:     dispatcher,
		Logger:         logger,
		SummaryTimeout: time.Second,
	})
	reports := service.NewReportService(service.ReportDependencies{
		SessionRepo:  store.Sessions(),
		TicketRepo:   store.Tickets(),
		FeedbackRepo: store.Feedback(),
		UserRepo:     store.Users(),
		Policy:       policy,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("complaint-service", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authService),
		Staff:          handlers.NewStaffHandler(authService, policy),
		StaffTickets:   handlers.NewStaffTicketsHandler(service.NewAssignmentService(service.AssignmentDependencies{Tickets: tickets, UserRepo: store.Users(), Logger: logger})),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Sessions:       handlers.NewSessionsHandler(sessions),
		Assist:         handlers.NewAssistHandler(sessions),
		Feedback:       handlers.NewFeedbackHandler(service.NewFeedbackService(store.Feedback(), store.Sessions(), nil)),
		Reports:        handlers.NewReportsHandler(reports),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users()),
	})
	return &testServer{app: app, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	payload := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode, payload
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Asha", "email": email, "password": "secret123",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body = %v", status, body)
	}
	return data(t, body)["token"].(string)
}

func (s *testServer) seedStaff(t *testing.T, id string, role domain.Role) string {
	t.Helper()
	hash, err := auth.HashPassword("secret123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &domain.User{ID: id, Name: id, Email: id + "@example.com", PasswordHash: hash, Role: role, CreatedAt: time.Now()}
	if err := s.store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed: %v", err)
	}
	status, body := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": user.Email, "password": "secret123"})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body = %v", status, body)
	}
	return data(t, body)["token"].(string)
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data object in %v", body)
	}
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/health/live", "", nil)
	if status != http.StatusOK || body["status"] != "alive" {
		t.Fatalf("live = %d %v", status, body)
	}
	status, body = s.do(t, http.MethodGet, "/health/ready", "", nil)
	if status != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready = %d %v", status, body)
	}
	if status, _ := s.do(t, http.MethodGet, "/metrics", "", nil); status != http.StatusOK {
		t.Fatalf("metrics = %d", status)
	}
}

func TestUnknownRouteRendersError(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/nope", "", nil)
	if status != http.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Fatalf("got %d %v", status, body)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "asha@example.com")

	status, body := s.do(t, http.MethodGet, "/auth/me", token, nil)
	if status != http.StatusOK || data(t, body)["role"] != "customer" {
		t.Fatalf("me = %d %v", status, body)
	}
	status, body = s.do(t, http.MethodGet, "/auth/me", "", nil)
	if status != http.StatusUnauthorized || errorCode(body) != "UNAUTHORIZED" {
		t.Fatalf("anonymous me = %d %v", status, body)
	}
	status, _ = s.do(t, http.MethodGet, "/auth/me", "garbage", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("bad token me = %d", status)
	}
	status, body = s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Asha", "email": "ASHA@example.com", "password": "secret123",
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate register = %d %v", status, body)
	}
}

func TestRoleGating(t *testing.T) {
	s := newTestServer(t)
	customerToken := s.register(t, "c@example.com")
	adminToken := s.seedStaff(t, "adm-1", domain.RoleAdmin)
	managerToken := s.seedStaff(t, "mgr-1", domain.RoleManager)

	if status, _ := s.do(t, http.MethodGet, "/api/reports/overview", customerToken, nil); status != http.StatusForbidden {
		t.Fatalf("customer overview = %d", status)
	}
	if status, _ := s.do(t, http.MethodGet, "/api/reports/overview", managerToken, nil); status != http.StatusOK {
		t.Fatalf("manager overview = %d", status)
	}
	if status, _ := s.do(t, http.MethodPut, "/api/sla-policy/high", managerToken, map[string]any{"hours": 6}); status != http.StatusForbidden {
		t.Fatalf("manager policy = %d", status)
	}
	status, body := s.do(t, http.MethodPut, "/api/sla-policy/high", adminToken, map[string]any{"hours": 6})
	if status != http.StatusOK || data(t, body)["high"] != float64(6) {
		t.Fatalf("admin policy = %d %v", status, body)
	}
	status, body = s.do(t, http.MethodPost, "/api/staff", adminToken, map[string]any{
		"name": "Ravi", "email": "ravi@example.com", "password": "secret123", "role": "human_agent",
	})
	if status != http.StatusCreated || data(t, body)["employee_id"] != "HA00001" {
		t.Fatalf("create staff = %d %v", status, body)
	}
	status, body = s.do(t, http.MethodGet, "/api/staff?role=Human_Agent", managerToken, nil)
	if agents, ok := body["data"].([]any); status != http.StatusOK || !ok || len(agents) != 1 {
		t.Fatalf("list agents = %d %v", status, body)
	}
	if status, _ := s.do(t, http.MethodGet, "/api/staff", customerToken, nil); status != http.StatusForbidden {
		t.Fatalf("customer staff list = %d", status)
	}
	if status, _ := s.do(t, http.MethodPatch, "/api/tickets/x", customerToken, map[string]any{"status": "resolved"}); status != http.StatusForbidden {
		t.Fatalf("customer patch = %d", status)
	}
}

func TestMenuIsPublic(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/api/menu", "", nil)
	if status != http.StatusOK {
		t.Fatalf("menu = %d", status)
	}
	sectors, ok := body["data"].([]any)
	if !ok || len(sectors) == 0 {
		t.Fatalf("menu body = %v", body)
	}
	status, _ = s.do(t, http.MethodPost, "/api/menu/subcategories", "", map[string]any{"sector_key": "99"})
	if status != http.StatusNotFound {
		t.Fatalf("unknown sector = %d", status)
	}
}

func TestSessionEscalationFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "flow@example.com")

	status, body := s.do(t, http.MethodPost, "/api/sessions", token, map[string]any{"language": "English"})
	if status != http.StatusCreated {
		t.Fatalf("create session = %d %v", status, body)
	}
	sessionID := data(t, body)["id"].(string)

	status, body = s.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/messages", token, map[string]any{
		"sender":     "user",
		"content":    "Internet down since morning, business down",
		"category":   "Broadband / Internet Services",
		"query_text": "Internet down since morning, business down",
	})
	if status != http.StatusCreated {
		t.Fatalf("append = %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPut, "/api/sessions/"+sessionID+"/escalate", token, nil)
	if status != http.StatusOK {
		t.Fatalf("escalate = %d %v", status, body)
	}
	ticket := data(t, body)["ticket"].(map[string]any)
	if ticket["priority"] != "critical" || ticket["sla_hours"] != float64(4) {
		t.Fatalf("ticket = %v", ticket)
	}
	ref := ticket["reference_number"]

	status, body = s.do(t, http.MethodPut, "/api/sessions/"+sessionID+"/escalate", token, nil)
	if status != http.StatusOK || data(t, body)["ticket"].(map[string]any)["reference_number"] != ref {
		t.Fatalf("repeat escalate = %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPut, "/api/sessions/"+sessionID+"/resolve", token, nil)
	if status != http.StatusConflict || errorCode(body) != "CONFLICT" {
		t.Fatalf("resolve escalated = %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/api/tickets", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list tickets = %d", status)
	}
	if items := body["data"].([]any); len(items) != 1 {
		t.Fatalf("customer sees %d tickets", len(items))
	}

	other := s.register(t, "other@example.com")
	if status, _ := s.do(t, http.MethodGet, "/api/sessions/"+sessionID, other, nil); status != http.StatusForbidden {
		t.Fatalf("stranger read = %d", status)
	}
}
