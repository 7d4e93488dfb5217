package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/worker"
)

// NotificationService turns domain events into deliveries on the worker
// pool. Nothing here can fail the transition that published the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	transport  notify.Transport
	pool       *worker.Pool
	users      repository.UserRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NotificationDependencies wires the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Transport  notify.Transport
	// Pool is optional. Without it deliveries run inline.
	Pool     *worker.Pool
	UserRepo repository.UserRepository
	Logger   *zap.Logger
	Config   config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := deps.Transport
	if transport == nil {
		transport = notify.LogTransport{From: deps.Config.EmailFrom, Logger: logger}
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		transport:  transport,
		pool:       deps.Pool,
		users:      deps.UserRepo,
		logger:     logger,
		cfg:        deps.Config,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketSLAAlert, n.handleSLAAlert)
	n.dispatcher.Subscribe(events.EventSessionResolved, n.handleSessionResolved)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.String("reference", payload.ReferenceNumber))
	n.emailUser("ticket_created", payload.CustomerID,
		fmt.Sprintf("Ticket %s created", payload.ReferenceNumber),
		fmt.Sprintf("Your complaint was registered as %s with %s priority. Target resolution: %s.",
			payload.ReferenceNumber, payload.Priority, payload.SLADeadline.Format("2006-01-02 15:04 MST")))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))
	n.emailUser("ticket_status_changed", payload.CustomerID,
		fmt.Sprintf("Ticket %s is now %s", payload.ReferenceNumber, payload.NewStatus),
		fmt.Sprintf("The status of ticket %s changed from %s to %s.", payload.ReferenceNumber, payload.OldStatus, payload.NewStatus))
	return nil
}

func (n *NotificationService) handleSLAAlert(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAAlertPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	subject := fmt.Sprintf("SLA %s reached for %s", payload.Level.Percent(), payload.ReferenceNumber)
	if payload.Breached {
		subject = fmt.Sprintf("SLA breached for %s", payload.ReferenceNumber)
	}
	body := fmt.Sprintf("Ticket %s (%s, %s) has used %.1f%% of its %.1fh SLA. Deadline: %s.",
		payload.ReferenceNumber, payload.Category, payload.Priority,
		payload.ElapsedRatio*100, payload.SLAHours, payload.SLADeadline.Format("2006-01-02 15:04 MST"))

	n.enqueue("sla_alert_email", func(ctx context.Context) error {
		var firstErr error
		for _, recipient := range n.escalationRecipients(ctx) {
			if err := n.transport.SendEmail(ctx, recipient, subject, body); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
	if strings.TrimSpace(n.cfg.AlertRecipient) != "" {
		n.enqueue("sla_alert_chat", func(ctx context.Context) error {
			return n.transport.SendChatMessage(ctx, n.cfg.AlertRecipient, subject+"\n"+body)
		})
	}
	return nil
}

func (n *NotificationService) handleSessionResolved(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SessionResolvedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("SessionResolved", zap.String("session_id", event.SessionID))
	n.emailUser("session_resolved", payload.CustomerID,
		"Your support session was resolved",
		fmt.Sprintf("Your %s session has been marked resolved.", strings.TrimSpace(payload.Category+" "+payload.SubCategory)))
	return nil
}

// SendSummary queues the session summary for the customer. It reports
// false when the delivery was dropped.
func (n *NotificationService) SendSummary(customer *domain.User, session *domain.Session, ticket *domain.Ticket) bool {
	subject := "Chat summary"
	if session.Category != "" {
		subject = fmt.Sprintf("Chat summary - %s", session.Category)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n%s\n", customer.Name, session.Summary)
	if session.QueryText != "" {
		fmt.Fprintf(&b, "\nYour query: %s\n", session.QueryText)
	}
	if ticket != nil {
		fmt.Fprintf(&b, "\nEscalation ticket: %s\n", ticket.ReferenceNumber)
	}
	body := b.String()

	queued := n.enqueue("session_summary_email", func(ctx context.Context) error {
		return n.transport.SendEmail(ctx, customer.Email, subject, body)
	})
	if customer.PhoneNumber != "" {
		n.enqueue("session_summary_chat", func(ctx context.Context) error {
			return n.transport.SendChatMessage(ctx, customer.PhoneNumber, body)
		})
	}
	return queued
}

func (n *NotificationService) emailUser(job, userID, subject, body string) {
	if n.users == nil || userID == "" {
		return
	}
	n.enqueue(job, func(ctx context.Context) error {
		user, err := n.users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load recipient %s: %w", userID, err)
		}
		return n.transport.SendEmail(ctx, user.Email, subject, body)
	})
}

// escalationRecipients returns the configured alert address plus every
// manager and CTO.
func (n *NotificationService) escalationRecipients(ctx context.Context) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			return
		}
		if _, dup := seen[strings.ToLower(addr)]; dup {
			return
		}
		seen[strings.ToLower(addr)] = struct{}{}
		out = append(out, addr)
	}
	add(n.cfg.AlertRecipient)
	if n.users != nil {
		staff, err := n.users.ListByRole(ctx, domain.RoleManager, domain.RoleCTO)
		if err != nil {
			n.logger.Warn("list alert recipients", zap.Error(err))
		}
		for _, u := range staff {
			add(u.Email)
		}
	}
	return out
}

func (n *NotificationService) enqueue(name string, run func(ctx context.Context) error) bool {
	job := worker.Job{Name: name, Run: run}
	if n.pool != nil {
		return n.pool.Submit(job)
	}
	if err := run(context.Background()); err != nil {
		n.logger.Warn("notification failed", zap.String("job", name), zap.Error(err))
	}
	return true
}
