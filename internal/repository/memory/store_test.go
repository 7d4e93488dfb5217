package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
)

var t0 = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func seedTicket(t *testing.T, store *Store, id string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		ID:              id,
		ReferenceNumber: "TC-" + id,
		CustomerID:      "c1",
		Status:          domain.TicketStatusPending,
		Priority:        domain.TicketPriorityHigh,
		CreatedAt:       t0,
		UpdatedAt:       t0,
		SLAHours:        12,
		SLADeadline:     t0.Add(12 * time.Hour),
	}
	if err := store.Tickets().Create(context.Background(), ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func TestCreateStaffAllocatesUniqueIDsConcurrently(t *testing.T) {
	store := NewStore()
	users := store.Users()

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := &domain.User{
				ID:    fmt.Sprintf("u%d", i),
				Email: fmt.Sprintf("agent%d@example.com", i),
				Role:  domain.RoleHumanAgent,
			}
			errs <- users.CreateStaff(context.Background(), u, "HA")
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("CreateStaff: %v", err)
		}
	}

	staff, _ := users.ListByRole(context.Background(), domain.RoleHumanAgent)
	seen := map[string]bool{}
	for _, u := range staff {
		if u.EmployeeID == nil {
			t.Fatalf("user %s has no employee id", u.ID)
		}
		if seen[*u.EmployeeID] {
			t.Fatalf("duplicate employee id %s", *u.EmployeeID)
		}
		seen[*u.EmployeeID] = true
	}
	if !seen["HA00001"] || !seen[fmt.Sprintf("HA%05d", n)] {
		t.Fatalf("expected contiguous sequence, got %v", seen)
	}
}

func TestClaimAlertSingleWinner(t *testing.T) {
	store := NewStore()
	seedTicket(t, store, "t1")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Tickets().ClaimAlert(context.Background(), "t1", domain.AlertBreach, t0.Add(13*time.Hour))
			if err != nil {
				t.Errorf("ClaimAlert: %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
	got, _ := store.Tickets().GetByID(context.Background(), "t1")
	if !got.BreachAlertSent || !got.SLABreached {
		t.Fatalf("breach claim must set both flags: %+v", got)
	}
}

func TestClaimAlertSkipsClosedTicket(t *testing.T) {
	store := NewStore()
	ticket := seedTicket(t, store, "t1")
	ticket.Status = domain.TicketStatusResolved
	if err := store.Tickets().Update(context.Background(), ticket); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ok, err := store.Tickets().ClaimAlert(context.Background(), "t1", domain.Alert625, t0)
	if err != nil || ok {
		t.Fatalf("claim on resolved ticket = %v, %v", ok, err)
	}
}

func TestUpdateVersionConflictPreservesFlags(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedTicket(t, store, "t1")

	stale, _ := store.Tickets().GetByID(ctx, "t1")
	fresh, _ := store.Tickets().GetByID(ctx, "t1")

	fresh.Priority = domain.TicketPriorityCritical
	if err := store.Tickets().Update(ctx, fresh); err != nil {
		t.Fatalf("Update: %v", err)
	}
	stale.Status = domain.TicketStatusInProgress
	if err := store.Tickets().Update(ctx, stale); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	if ok, _ := store.Tickets().ClaimAlert(ctx, "t1", domain.Alert625, t0); !ok {
		t.Fatal("claim should succeed")
	}
	current, _ := store.Tickets().GetByID(ctx, "t1")
	current.Status = domain.TicketStatusInProgress
	if err := store.Tickets().Update(ctx, current); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after, _ := store.Tickets().GetByID(ctx, "t1")
	if !after.Alert625Sent {
		t.Fatal("operator update must not clear alert flags")
	}
}

func TestEscalateCreatesOneTicket(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	session := &domain.Session{ID: "s1", CustomerID: "c1", Status: domain.SessionStatusActive, CreatedAt: t0}
	if err := store.Sessions().Create(ctx, session); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var built atomic.Int32
	build := func(s *domain.Session) (*domain.Ticket, error) {
		n := built.Add(1)
		sid := s.ID
		return &domain.Ticket{
			ID:              fmt.Sprintf("t%d", n),
			ReferenceNumber: fmt.Sprintf("TC-%d", n),
			SessionID:       &sid,
			CustomerID:      s.CustomerID,
			Status:          domain.TicketStatusPending,
			Priority:        domain.TicketPriorityLow,
			CreatedAt:       t0,
			SLAHours:        120,
			SLADeadline:     t0.Add(120 * time.Hour),
		}, nil
	}

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.Sessions().Escalate(ctx, "s1", build)
			if err != nil {
				t.Errorf("Escalate: %v", err)
			}
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Fatalf("expected one creation, got %d", created.Load())
	}
	all, _ := store.Tickets().List(ctx, repository.TicketFilter{Limit: repository.NoLimit})
	if len(all) != 1 {
		t.Fatalf("expected one ticket, got %d", len(all))
	}
	got, _ := store.Sessions().GetByID(ctx, "s1")
	if got.Status != domain.SessionStatusEscalated {
		t.Fatalf("session status = %s", got.Status)
	}
}

func TestEscalateRetriesReferenceCollision(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedTicket(t, store, "dup")
	_ = store.Sessions().Create(ctx, &domain.Session{ID: "s1", CustomerID: "c1", Status: domain.SessionStatusActive, CreatedAt: t0})

	refs := []string{"TC-dup", "TC-fresh"}
	attempt := 0
	ticket, created, err := store.Sessions().Escalate(ctx, "s1", func(s *domain.Session) (*domain.Ticket, error) {
		ref := refs[attempt]
		attempt++
		sid := s.ID
		return &domain.Ticket{ID: "t-" + ref, ReferenceNumber: ref, SessionID: &sid, Status: domain.TicketStatusPending, Priority: domain.TicketPriorityLow}, nil
	})
	if err != nil || !created {
		t.Fatalf("Escalate = %v, %v", created, err)
	}
	if ticket.ReferenceNumber != "TC-fresh" || attempt != 2 {
		t.Fatalf("expected retry onto fresh reference, got %s after %d attempts", ticket.ReferenceNumber, attempt)
	}
}

func TestEscalateResolvedSessionConflicts(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_ = store.Sessions().Create(ctx, &domain.Session{ID: "s1", CustomerID: "c1", Status: domain.SessionStatusActive, CreatedAt: t0})
	if ok, _ := store.Sessions().Resolve(ctx, "s1", t0); !ok {
		t.Fatal("resolve should succeed")
	}
	_, _, err := store.Sessions().Escalate(ctx, "s1", func(*domain.Session) (*domain.Ticket, error) {
		t.Fatal("factory must not run")
		return nil, nil
	})
	if !errors.Is(err, repository.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
