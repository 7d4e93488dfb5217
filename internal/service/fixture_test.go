package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository/memory"
	"github.com/spec-kit/complaint-service/internal/slapolicy"
	"github.com/spec-kit/complaint-service/internal/textsvc"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

var (
	customer = domain.Actor{UserID: "cust-1", Role: domain.RoleCustomer}
	stranger = domain.Actor{UserID: "cust-2", Role: domain.RoleCustomer}
	manager  = domain.Actor{UserID: "mgr-1", Role: domain.RoleManager}
	admin    = domain.Actor{UserID: "adm-1", Role: domain.RoleAdmin}
)

// stubText is a scriptable text backend.
type stubText struct {
	related    bool
	relatedErr error
	sub        string
	resolution string
	summary    string
	summaryErr error
}

func (s *stubText) ClassifyIntent(context.Context, string, textsvc.Hint) (bool, error) {
	return s.related, s.relatedErr
}

func (s *stubText) IdentifySubcategory(context.Context, string, string) (string, error) {
	return s.sub, nil
}

func (s *stubText) GenerateResolution(context.Context, string, string, string, string) (string, error) {
	return s.resolution, nil
}

func (s *stubText) Summarize(context.Context, []domain.SessionMessage, string, string) (string, error) {
	return s.summary, s.summaryErr
}

func (s *stubText) Translate(_ context.Context, text, language string) (string, error) {
	return "[" + language + "] " + text, nil
}

func (s *stubText) DetectLanguage(context.Context, string) (string, error) {
	return "", errors.New("not supported")
}

type fixture struct {
	store      *memory.Store
	clock      *clock.FakeClock
	dispatcher events.Dispatcher
	policy     *slapolicy.Store
	tickets    *TicketService
	sessions   *SessionService
}

func newFixture(t *testing.T, text textsvc.Service) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.Fake(t0)
	dispatcher := events.NewInMemoryDispatcher(nil)
	policy := slapolicy.NewStore(slapolicy.StoreDependencies{Settings: store.Settings()})

	seedUser(t, store, customer.UserID, domain.RoleCustomer)
	seedUser(t, store, stranger.UserID, domain.RoleCustomer)
	seedUser(t, store, manager.UserID, domain.RoleManager)
	seedUser(t, store, admin.UserID, domain.RoleAdmin)

	f := &fixture{store: store, clock: clk, dispatcher: dispatcher, policy: policy}
	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		HistoryRepo: store.History(),
		UserRepo:    store.Users(),
		Policy:      policy,
		Dispatcher:  dispatcher,
		Clock:       clk,
	})
	f.sessions = NewSessionService(SessionDependencies{
		SessionRepo:    store.Sessions(),
		TicketRepo:     store.Tickets(),
		HistoryRepo:    store.History(),
		UserRepo:       store.Users(),
		Policy:         policy,
		Text:           textsvc.NewGuard(text, time.Second, nil),
		Dispatcher:     dispatcher,
		Clock:          clk,
		SummaryTimeout: time.Second,
	})
	return f
}

func seedUser(t *testing.T, store *memory.Store, id string, role domain.Role) {
	t.Helper()
	user := &domain.User{ID: id, Name: id, Email: id + "@example.com", Role: role, CreatedAt: t0}
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func (f *fixture) seedTicket(t *testing.T, status domain.TicketStatus, pr domain.TicketPriority) *domain.Ticket {
	t.Helper()
	hours, deadline := f.policy.Snapshot().Deadline(t0, pr)
	ticket := &domain.Ticket{
		ID:              "tkt-" + string(status) + "-" + string(pr),
		ReferenceNumber: "TC-TEST-" + string(status) + "-" + string(pr),
		CustomerID:      customer.UserID,
		Category:        "Broadband / Internet Services",
		Description:     "internet not working",
		Status:          status,
		Priority:        pr,
		CreatedAt:       t0,
		UpdatedAt:       t0,
		SLAHours:        hours,
		SLADeadline:     deadline,
	}
	if status == domain.TicketStatusResolved {
		at := t0.Add(time.Hour)
		ticket.ResolvedAt = &at
	}
	if err := f.store.Tickets().Create(context.Background(), ticket); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return ticket
}

func (f *fixture) openSession(t *testing.T, query, subCategory string) *domain.Session {
	t.Helper()
	ctx := context.Background()
	session, err := f.sessions.Create(ctx, customer, CreateSessionInput{})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	_, _, err = f.sessions.AppendMessage(ctx, customer, session.ID, AppendMessageInput{
		Sender:  domain.SenderUser,
		Content: query,
		Patch: domain.SessionPatch{
			Category:    "Broadband / Internet Services",
			SubCategory: subCategory,
			QueryText:   query,
		},
	})
	if err != nil {
		t.Fatalf("append message: %v", err)
	}
	return session
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", want)
	}
	if got := apperrors.ToDomainError(err).HTTPStatus; got != want {
		t.Fatalf("expected status %d, got %d (%v)", want, got, err)
	}
}
