package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/repository/memory"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func seedTicket(t *testing.T, store *memory.Store, id string, pr domain.TicketPriority, hours float64) {
	t.Helper()
	ticket := &domain.Ticket{
		ID:              id,
		ReferenceNumber: "TKT-" + id,
		CustomerID:      "cust-1",
		Category:        "Broadband",
		Status:          domain.TicketStatusPending,
		Priority:        pr,
		CreatedAt:       t0,
		UpdatedAt:       t0,
		SLAHours:        hours,
		SLADeadline:     t0.Add(time.Duration(hours * float64(time.Hour))),
	}
	if err := store.Tickets().Create(context.Background(), ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
}

type recorder struct {
	mu     sync.Mutex
	alerts []events.SLAAlertPayload
	ch     chan events.SLAAlertPayload
}

func newRecorder(d events.Dispatcher) *recorder {
	r := &recorder{ch: make(chan events.SLAAlertPayload, 16)}
	d.Subscribe(events.EventTicketSLAAlert, func(_ context.Context, e events.Event) error {
		payload := e.Payload.(events.SLAAlertPayload)
		r.mu.Lock()
		r.alerts = append(r.alerts, payload)
		r.mu.Unlock()
		r.ch <- payload
		return nil
	})
	return r
}

func (r *recorder) levels() []domain.AlertLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AlertLevel, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = a.Level
	}
	return out
}

func newMonitor(store *memory.Store, clk clock.Clock, d events.Dispatcher, locker Locker) *Monitor {
	return New(Dependencies{
		Tickets:    store.Tickets(),
		History:    store.History(),
		Dispatcher: d,
		Clock:      clk,
		Locker:     locker,
		Logger:     zap.NewNop(),
		Interval:   time.Minute,
	})
}

func TestEvaluate(t *testing.T) {
	base := domain.Ticket{Status: domain.TicketStatusPending, CreatedAt: t0, SLAHours: 8}
	at := func(h float64) time.Time { return t0.Add(time.Duration(h * float64(time.Hour))) }

	cases := []struct {
		name   string
		mutate func(*domain.Ticket)
		now    time.Time
		level  domain.AlertLevel
		due    bool
	}{
		{name: "below first threshold", now: at(4.9)},
		{name: "crosses 62.5", now: at(5), level: domain.Alert625, due: true},
		{name: "crosses 75", now: at(6.1), level: domain.Alert750, due: true},
		{name: "crosses 87.5", now: at(7.2), level: domain.Alert875, due: true},
		{name: "breach", now: at(8), level: domain.AlertBreach, due: true},
		{name: "highest only after jump", now: at(7.5), level: domain.Alert875, due: true},
		{
			name:   "highest already sent",
			mutate: func(tk *domain.Ticket) { tk.Alert875Sent = true },
			now:    at(7.5),
		},
		{
			name:   "resolved is ignored",
			mutate: func(tk *domain.Ticket) { tk.Status = domain.TicketStatusResolved },
			now:    at(9),
		},
		{
			name:   "escalated is ignored",
			mutate: func(tk *domain.Ticket) { tk.Status = domain.TicketStatusEscalated },
			now:    at(9),
		},
		{
			name:   "zero hours is ignored",
			mutate: func(tk *domain.Ticket) { tk.SLAHours = 0 },
			now:    at(9),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := base
			if tc.mutate != nil {
				tc.mutate(&ticket)
			}
			level, due := Evaluate(&ticket, tc.now)
			if due != tc.due || level != tc.level {
				t.Fatalf("Evaluate() = (%q, %v), want (%q, %v)", level, due, tc.level, tc.due)
			}
		})
	}
}

func TestSweepFiresEachThresholdOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clk := clock.Fake(t0)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	rec := newRecorder(dispatcher)
	seedTicket(t, store, "t-high", domain.TicketPriorityHigh, 12)
	m := newMonitor(store, clk, dispatcher, nil)

	steps := []struct {
		offset time.Duration
		want   []domain.AlertLevel
	}{
		{offset: 7*time.Hour + 36*time.Minute, want: []domain.AlertLevel{domain.Alert625}},
		{offset: 7*time.Hour + 50*time.Minute, want: []domain.AlertLevel{domain.Alert625}},
		{offset: 9*time.Hour + 6*time.Minute, want: []domain.AlertLevel{domain.Alert625, domain.Alert750}},
		{offset: 13 * time.Hour, want: []domain.AlertLevel{domain.Alert625, domain.Alert750, domain.AlertBreach}},
		{offset: 14 * time.Hour, want: []domain.AlertLevel{domain.Alert625, domain.Alert750, domain.AlertBreach}},
	}
	for _, step := range steps {
		clk.Set(t0.Add(step.offset))
		if _, err := m.Sweep(ctx); err != nil {
			t.Fatalf("Sweep at %v: %v", step.offset, err)
		}
		got := rec.levels()
		if len(got) != len(step.want) {
			t.Fatalf("at %v fired %v, want %v", step.offset, got, step.want)
		}
		for i := range got {
			if got[i] != step.want[i] {
				t.Fatalf("at %v fired %v, want %v", step.offset, got, step.want)
			}
		}
	}

	ticket, err := store.Tickets().GetByID(ctx, "t-high")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !ticket.SLABreached || !ticket.BreachAlertSent || !ticket.Alert750Sent || ticket.Alert875Sent {
		t.Fatalf("unexpected flags: %+v", ticket)
	}

	history, err := store.History().ListByTicket(ctx, "t-high")
	if err != nil {
		t.Fatalf("ListByTicket: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history entries = %d, want 3", len(history))
	}
}

func TestConcurrentSweepsFireOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clk := clock.Fake(t0)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	var fired atomic.Int32
	dispatcher.Subscribe(events.EventTicketSLAAlert, func(context.Context, events.Event) error {
		fired.Add(1)
		return nil
	})
	seedTicket(t, store, "t-crit", domain.TicketPriorityCritical, 4)
	clk.Set(t0.Add(3 * time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := newMonitor(store, clk, dispatcher, nil)
			if _, err := m.Sweep(ctx); err != nil {
				t.Errorf("Sweep: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d alerts, want 1", got)
	}
}

// closingTickets resolves every listed ticket right after ListOpen returns.
type closingTickets struct {
	repository.TicketRepository
}

func (c closingTickets) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	open, err := c.TicketRepository.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	for _, ticket := range open {
		current, err := c.TicketRepository.GetByID(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		current.Status = domain.TicketStatusResolved
		if err := c.TicketRepository.Update(ctx, current); err != nil {
			return nil, err
		}
	}
	return open, nil
}

func TestSweepSkipsTicketClosedMidSweep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clk := clock.Fake(t0.Add(5 * time.Hour))
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	rec := newRecorder(dispatcher)
	seedTicket(t, store, "t-crit", domain.TicketPriorityCritical, 4)

	m := New(Dependencies{
		Tickets:    closingTickets{store.Tickets()},
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     zap.NewNop(),
	})
	result, err := m.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.Fired != 0 || result.Conflicts != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := rec.levels(); len(got) != 0 {
		t.Fatalf("fired %v for a closed ticket", got)
	}
	ticket, _ := store.Tickets().GetByID(ctx, "t-crit")
	if ticket.BreachAlertSent || ticket.SLABreached {
		t.Fatalf("closed ticket was flagged: %+v", ticket)
	}
}

type heldLocker struct{}

func (heldLocker) TryLock(context.Context) (func(), bool, error) { return func() {}, false, nil }

func TestSweepSkippedWhileLockHeld(t *testing.T) {
	store := memory.NewStore()
	clk := clock.Fake(t0.Add(5 * time.Hour))
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	rec := newRecorder(dispatcher)
	seedTicket(t, store, "t-crit", domain.TicketPriorityCritical, 4)

	result, err := newMonitor(store, clk, dispatcher, heldLocker{}).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if !result.Locked || result.Scanned != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := rec.levels(); len(got) != 0 {
		t.Fatalf("fired %v while locked out", got)
	}
}

func TestStartSweepsOnTickAndStopWaits(t *testing.T) {
	store := memory.NewStore()
	clk := clock.Fake(t0)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	rec := newRecorder(dispatcher)
	seedTicket(t, store, "t-crit", domain.TicketPriorityCritical, 4)

	m := newMonitor(store, clk, dispatcher, nil)
	m.Start(context.Background())
	if clk.Tickers() != 1 {
		t.Fatalf("expected one ticker, got %d", clk.Tickers())
	}

	clk.Advance(2*time.Hour + 31*time.Minute)
	select {
	case alert := <-rec.ch:
		if alert.Level != domain.Alert625 {
			t.Fatalf("level = %q, want %q", alert.Level, domain.Alert625)
		}
		if alert.ReferenceNumber != "TKT-t-crit" {
			t.Fatalf("reference = %q", alert.ReferenceNumber)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no alert after tick")
	}

	m.Stop()
	if clk.Tickers() != 0 {
		t.Fatalf("ticker still live after Stop")
	}
	m.Stop()
}
