package slapolicy

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository/memory"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

var admin = domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}

func TestDefaults(t *testing.T) {
	p := Defaults()
	want := map[domain.TicketPriority]float64{
		domain.TicketPriorityCritical: 4,
		domain.TicketPriorityHigh:     12,
		domain.TicketPriorityMedium:   48,
		domain.TicketPriorityLow:      120,
	}
	for pr, h := range want {
		if got := p.Hours(pr); got != h {
			t.Fatalf("Hours(%s) = %v, want %v", pr, got, h)
		}
	}
}

func TestDeadline(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	hours, deadline := FromHours(1.5, 12, 48, 120).Deadline(created, domain.TicketPriorityCritical)
	if hours != 1.5 {
		t.Fatalf("hours = %v", hours)
	}
	if want := created.Add(90 * time.Minute); !deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", deadline, want)
	}
}

func TestSetUpdatesSnapshotWithoutMutatingOld(t *testing.T) {
	store := NewStore(StoreDependencies{Settings: memory.NewStore().Settings()})
	before := store.Snapshot()

	if err := store.Set(context.Background(), admin, domain.TicketPriorityHigh, 6); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := store.Get(domain.TicketPriorityHigh); got != 6 {
		t.Fatalf("Get(high) = %v, want 6", got)
	}
	if got := before.Hours(domain.TicketPriorityHigh); got != 12 {
		t.Fatalf("earlier snapshot changed to %v", got)
	}
}

func TestSetValidation(t *testing.T) {
	store := NewStore(StoreDependencies{Settings: memory.NewStore().Settings()})
	cases := []struct {
		pr    domain.TicketPriority
		hours float64
	}{
		{domain.TicketPriorityHigh, 0},
		{domain.TicketPriorityHigh, -2},
		{"urgentest", 4},
	}
	for _, tc := range cases {
		err := store.Set(context.Background(), admin, tc.pr, tc.hours)
		if !apperrors.IsCode(err, "VALIDATION_FAILED") {
			t.Fatalf("Set(%s, %v) = %v, want validation error", tc.pr, tc.hours, err)
		}
	}
}

func TestRefreshFallsBackOnInvalidValues(t *testing.T) {
	mem := memory.NewStore()
	settings := mem.Settings()
	ctx := context.Background()
	_ = settings.Set(ctx, "sla_critical", "2", "x")
	_ = settings.Set(ctx, "sla_high", "not-a-number", "x")
	_ = settings.Set(ctx, "sla_medium", "-1", "x")

	store := NewStore(StoreDependencies{Settings: settings, Defaults: FromHours(5, 13, 50, 100)})
	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := store.Snapshot().Map()
	want := map[string]float64{"critical": 2, "high": 13, "medium": 50, "low": 100}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %v, want %v (all: %v)", k, got[k], v, got)
		}
	}
}

func TestRefreshSeesOtherWriters(t *testing.T) {
	mem := memory.NewStore()
	a := NewStore(StoreDependencies{Settings: mem.Settings()})
	b := NewStore(StoreDependencies{Settings: mem.Settings()})

	if err := a.Set(context.Background(), admin, domain.TicketPriorityLow, 72); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := b.Get(domain.TicketPriorityLow); got != 120 {
		t.Fatalf("b should hold its snapshot until refresh, got %v", got)
	}
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := b.Get(domain.TicketPriorityLow); got != 72 {
		t.Fatalf("after refresh Get(low) = %v, want 72", got)
	}
}

func TestStoreWithoutSettingsRepository(t *testing.T) {
	store := NewStore(StoreDependencies{})
	ctx := context.Background()

	if err := store.Set(ctx, admin, "Critical", 2); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := store.Get(domain.TicketPriorityCritical); got != 2 {
		t.Fatalf("Get(critical) = %v, want 2", got)
	}
	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := store.Get(domain.TicketPriorityCritical); got != 2 {
		t.Fatalf("Refresh lost the stored value: %v", got)
	}
	if _, ok := store.Snapshot().Map()["Critical"]; ok {
		t.Fatal("priority stored under its raw spelling")
	}
}
