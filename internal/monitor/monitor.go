// Package monitor runs the recurring SLA sweep over open tickets.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// Dependencies wires the monitor.
type Dependencies struct {
	Tickets    repository.TicketRepository
	History    repository.TicketHistoryRepository
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Locker     Locker
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Interval   time.Duration
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned   int
	Fired     int
	Conflicts int
	// Locked is set when another process held the sweep lock.
	Locked bool
}

// Monitor evaluates open tickets and fires each SLA alert at most once.
type Monitor struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	locker     Locker
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// New builds a monitor.
func New(deps Dependencies) *Monitor {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Locker == nil {
		deps.Locker = NoopLocker{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	return &Monitor{
		tickets:    deps.Tickets,
		history:    deps.History,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		locker:     deps.Locker,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		interval:   deps.Interval,
	}
}

// Sweep evaluates every open ticket once. Only store failures are returned.
func (m *Monitor) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	started := time.Now()

	release, ok, err := m.locker.TryLock(ctx)
	if err != nil {
		m.logger.Warn("sweep lock unavailable; sweeping without it", zap.Error(err))
		release, ok = func() {}, true
	}
	if !ok {
		result.Locked = true
		m.metrics.RecordSweep("locked", 0, 0)
		return result, nil
	}
	defer release()

	open, err := m.tickets.ListOpen(ctx)
	if err != nil {
		m.metrics.RecordSweep("error", 0, time.Since(started))
		return result, err
	}
	result.Scanned = len(open)

	now := m.clock.Now()
	for i := range open {
		ticket := &open[i]
		level, due := Evaluate(ticket, now)
		if !due {
			continue
		}
		won, err := m.tickets.ClaimAlert(ctx, ticket.ID, level, now)
		if err != nil {
			m.metrics.RecordSweep("error", result.Scanned, time.Since(started))
			return result, err
		}
		if !won {
			// Closed or claimed by someone else since the scan.
			result.Conflicts++
			m.metrics.RecordClaimConflict()
			continue
		}
		ticket.MarkAlert(level)
		result.Fired++
		m.fire(ctx, ticket, level, now)
	}

	m.metrics.RecordSweep("ok", result.Scanned, time.Since(started))
	if result.Fired > 0 || result.Conflicts > 0 {
		m.logger.Info("sla sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("fired", result.Fired),
			zap.Int("conflicts", result.Conflicts))
	}
	return result, nil
}

func (m *Monitor) fire(ctx context.Context, ticket *domain.Ticket, level domain.AlertLevel, now time.Time) {
	m.metrics.RecordAlert(string(level), string(ticket.Priority))
	m.logger.Info("sla alert",
		zap.String("ticket_id", ticket.ID),
		zap.String("reference", ticket.ReferenceNumber),
		zap.String("level", string(level)),
		zap.String("priority", string(ticket.Priority)))

	if m.history != nil {
		entry := &domain.TicketHistory{
			ID:          uuid.NewString(),
			TicketID:    ticket.ID,
			ChangedByID: domain.SystemActor.UserID,
			ChangeType:  domain.ChangeTypeSLAAlert,
			NewValue:    map[string]any{"level": string(level), "sla_breached": ticket.SLABreached},
			CreatedAt:   now,
		}
		if err := m.history.Create(ctx, entry); err != nil {
			m.logger.Warn("record sla alert history", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if m.dispatcher == nil {
		return
	}
	event := events.New(events.EventTicketSLAAlert, domain.SystemActor, now, events.SLAAlertPayload{
		ReferenceNumber: ticket.ReferenceNumber,
		CustomerID:      ticket.CustomerID,
		Level:           level,
		Priority:        ticket.Priority,
		Category:        ticket.Category,
		ElapsedRatio:    ticket.ElapsedRatio(now),
		SLAHours:        ticket.SLAHours,
		SLADeadline:     ticket.SLADeadline,
		Breached:        level == domain.AlertBreach,
	})
	event.TicketID = ticket.ID
	if ticket.SessionID != nil {
		event.SessionID = *ticket.SessionID
	}
	_ = m.dispatcher.Publish(ctx, event)
}

// Start runs a sweep on every tick of the clock until Stop or ctx ends.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	ticker := m.clock.NewTicker(m.interval)
	go m.loop(ctx, ticker, m.stop, m.done)
	m.logger.Info("sla monitor started", zap.Duration("interval", m.interval))
}

func (m *Monitor) loop(ctx context.Context, ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("sla sweep failed", zap.Error(err))
			}
		}
	}
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	<-done
	m.logger.Info("sla monitor stopped")
}
