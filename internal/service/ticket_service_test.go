package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func TestTicketStatusTransitions(t *testing.T) {
	statuses := []domain.TicketStatus{
		domain.TicketStatusPending,
		domain.TicketStatusInProgress,
		domain.TicketStatusEscalated,
		domain.TicketStatusResolved,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				f := newFixture(t, nil)
				seeded := f.seedTicket(t, from, domain.TicketPriorityMedium)
				next := to

				got, err := f.tickets.Update(context.Background(), manager, seeded.ID, TicketUpdate{Status: &next})
				if err != nil {
					t.Fatalf("update %s -> %s: %v", from, to, err)
				}
				if from == to {
					if got.Version != seeded.Version {
						t.Fatalf("no-op bumped version")
					}
					return
				}
				if got.Status != to {
					t.Fatalf("expected %s, got %s", to, got.Status)
				}
				if (to == domain.TicketStatusResolved) != (got.ResolvedAt != nil) {
					t.Fatalf("resolved_at %v inconsistent with status %s", got.ResolvedAt, got.Status)
				}
			})
		}
	}
}

func TestUpdateNormalizesStatusAndPriority(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seeded := f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityLow)

	high := domain.TicketPriority(" HIGH ")
	got, err := f.tickets.Update(ctx, manager, seeded.ID, TicketUpdate{Priority: &high})
	if err != nil {
		t.Fatalf("update priority: %v", err)
	}
	if got.Priority != domain.TicketPriorityHigh {
		t.Fatalf("expected priority high, got %q", got.Priority)
	}
	recomputed, err := f.tickets.RecomputeSLA(ctx, manager, seeded.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if recomputed.SLAHours != 12 {
		t.Fatalf("expected 12h for high, got %v", recomputed.SLAHours)
	}

	resolved := domain.TicketStatus("Resolved")
	got, err = f.tickets.Update(ctx, manager, seeded.ID, TicketUpdate{Status: &resolved})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got.Status != domain.TicketStatusResolved || got.ResolvedAt == nil {
		t.Fatalf("expected resolved with resolved_at, got %s / %v", got.Status, got.ResolvedAt)
	}

	bogus := domain.TicketStatus("closed")
	_, err = f.tickets.Update(ctx, manager, seeded.ID, TicketUpdate{Status: &bogus})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestCreateNormalizesPriority(t *testing.T) {
	f := newFixture(t, nil)
	ticket, err := f.tickets.Create(context.Background(), manager, CreateTicketInput{
		CustomerID:  customer.UserID,
		Description: "billing question",
		Priority:    "Critical",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Priority != domain.TicketPriorityCritical || ticket.SLAHours != 4 {
		t.Fatalf("expected critical/4h, got %q/%v", ticket.Priority, ticket.SLAHours)
	}
}

func TestResolvedTicketCanBeEscalated(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.seedTicket(t, domain.TicketStatusResolved, domain.TicketPriorityMedium)
	escalated := domain.TicketStatusEscalated

	got, err := f.tickets.Update(context.Background(), manager, seeded.ID, TicketUpdate{Status: &escalated})
	if err != nil {
		t.Fatalf("escalate resolved ticket: %v", err)
	}
	if got.Status != domain.TicketStatusEscalated || got.ResolvedAt != nil {
		t.Fatalf("expected escalated without resolved_at, got %s / %v", got.Status, got.ResolvedAt)
	}
}

func TestCreateTicketComputesDeadlineFromPolicy(t *testing.T) {
	f := newFixture(t, nil)
	ticket, err := f.tickets.Create(context.Background(), manager, CreateTicketInput{
		CustomerID:  customer.UserID,
		Category:    "Mobile Services (Prepaid / Postpaid)",
		SubCategory: "Network / Signal Problems",
		Description: "no signal in the office",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Priority != domain.TicketPriorityHigh || ticket.SLAHours != 12 {
		t.Fatalf("expected high/12h, got %s/%v", ticket.Priority, ticket.SLAHours)
	}
	if !ticket.SLADeadline.Equal(ticket.CreatedAt.Add(12 * time.Hour)) {
		t.Fatalf("deadline %v is not created_at + 12h", ticket.SLADeadline)
	}
	if !strings.HasPrefix(ticket.ReferenceNumber, "TC-") {
		t.Fatalf("unexpected reference %q", ticket.ReferenceNumber)
	}

	_, err = f.tickets.Create(context.Background(), manager, CreateTicketInput{CustomerID: "nobody", Description: "x"})
	assertStatus(t, err, http.StatusBadRequest)
	_, err = f.tickets.Create(context.Background(), manager, CreateTicketInput{
		CustomerID:  customer.UserID,
		Description: "x",
		AssigneeID:  &stranger.UserID,
	})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestPriorityChangeKeepsDeadline(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityLow)
	critical := domain.TicketPriorityCritical

	f.clock.Advance(2 * time.Hour)
	got, err := f.tickets.Update(context.Background(), manager, seeded.ID, TicketUpdate{Priority: &critical})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Priority != critical {
		t.Fatalf("priority not changed")
	}
	if got.SLAHours != seeded.SLAHours || !got.SLADeadline.Equal(seeded.SLADeadline) {
		t.Fatalf("priority change moved SLA: %v %v", got.SLAHours, got.SLADeadline)
	}

	recomputed, err := f.tickets.RecomputeSLA(context.Background(), manager, seeded.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if recomputed.SLAHours != 4 || !recomputed.SLADeadline.Equal(t0.Add(4*time.Hour)) {
		t.Fatalf("recompute gave %v / %v", recomputed.SLAHours, recomputed.SLADeadline)
	}

	history, err := f.tickets.History(context.Background(), manager, seeded.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var types []domain.TicketChangeType
	for _, h := range history {
		types = append(types, h.ChangeType)
	}
	if len(types) != 2 || types[0] != domain.ChangeTypePriority || types[1] != domain.ChangeTypeSLARecompute {
		t.Fatalf("unexpected history %v", types)
	}
}

func TestRecomputeUsesCurrentPolicy(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.seedTicket(t, domain.TicketStatusInProgress, domain.TicketPriorityHigh)

	if err := f.policy.Set(context.Background(), admin, domain.TicketPriorityHigh, 6); err != nil {
		t.Fatalf("set policy: %v", err)
	}
	stored, _ := f.store.Tickets().GetByID(context.Background(), seeded.ID)
	if stored.SLAHours != 12 {
		t.Fatalf("policy change touched an existing ticket")
	}

	got, err := f.tickets.RecomputeSLA(context.Background(), manager, seeded.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got.SLAHours != 6 || !got.SLADeadline.Equal(t0.Add(6*time.Hour)) {
		t.Fatalf("recompute gave %v / %v", got.SLAHours, got.SLADeadline)
	}
}

func TestReopenClearsResolvedAt(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.seedTicket(t, domain.TicketStatusResolved, domain.TicketPriorityMedium)
	inProgress := domain.TicketStatusInProgress

	got, err := f.tickets.Update(context.Background(), manager, seeded.ID, TicketUpdate{Status: &inProgress, Comment: "customer called back"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.ResolvedAt != nil {
		t.Fatalf("expected resolved_at cleared, got %v", got.ResolvedAt)
	}
}

func TestUpdateLeavesAlertFlags(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seeded := f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityHigh)

	claimed, err := f.store.Tickets().ClaimAlert(ctx, seeded.ID, domain.Alert625, t0.Add(8*time.Hour))
	if err != nil || !claimed {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	notes := "checked line"
	if _, err := f.tickets.Update(ctx, manager, seeded.ID, TicketUpdate{ResolutionNotes: &notes}); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := f.store.Tickets().GetByID(ctx, seeded.ID)
	if !stored.Alert625Sent {
		t.Fatalf("operator update cleared an alert flag")
	}
	if stored.ResolutionNotes != notes {
		t.Fatalf("notes not stored")
	}
}

func TestCustomersOnlySeeOwnTickets(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seeded := f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityLow)

	if _, err := f.tickets.Get(ctx, customer, seeded.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	_, err := f.tickets.Get(ctx, stranger, seeded.ID)
	assertStatus(t, err, http.StatusForbidden)

	list, err := f.tickets.List(ctx, stranger, TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("stranger listed %d tickets", len(list))
	}

	_, err = f.tickets.Get(ctx, manager, "missing")
	assertStatus(t, err, http.StatusNotFound)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityLow)
	bogus := domain.TicketStatus("closed")

	_, err := f.tickets.Update(context.Background(), manager, seeded.ID, TicketUpdate{})
	assertStatus(t, err, http.StatusBadRequest)
	_, err = f.tickets.Update(context.Background(), manager, seeded.ID, TicketUpdate{Status: &bogus})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestCustomerCannotEditTickets(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityLow)
	inProgress := domain.TicketStatusInProgress

	_, err := f.tickets.Update(context.Background(), customer, seeded.ID, TicketUpdate{Status: &inProgress})
	assertStatus(t, err, http.StatusForbidden)
	_, err = f.tickets.RecomputeSLA(context.Background(), customer, seeded.ID)
	assertStatus(t, err, http.StatusForbidden)
	_, err = f.tickets.Create(context.Background(), customer, CreateTicketInput{CustomerID: customer.UserID, Description: "no signal"})
	assertStatus(t, err, http.StatusForbidden)
}

func TestListNormalizesFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityHigh)
	f.seedTicket(t, domain.TicketStatusResolved, domain.TicketPriorityLow)

	got, err := f.tickets.List(ctx, manager, TicketListFilter{
		Statuses:   []domain.TicketStatus{"PENDING"},
		Priorities: []domain.TicketPriority{"High"},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Status != domain.TicketStatusPending {
		t.Fatalf("expected the pending ticket, got %+v", got)
	}

	_, err = f.tickets.List(ctx, manager, TicketListFilter{Priorities: []domain.TicketPriority{"urgent"}})
	assertStatus(t, err, http.StatusBadRequest)
}
