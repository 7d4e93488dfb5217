package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/kafka"
	"github.com/spec-kit/complaint-service/internal/monitor"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/repository/memory"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/slapolicy"
	"github.com/spec-kit/complaint-service/internal/textsvc"
	"github.com/spec-kit/complaint-service/internal/worker"
)

type repositories struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tickets  repository.TicketRepository
	history  repository.TicketHistoryRepository
	feedback repository.FeedbackRepository
	settings repository.SettingsRepository
}

// application owns every long-lived component of one process.
type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics

	pg       *persistence.Postgres
	redis    *persistence.Redis
	producer *kafka.Producer
	pool     *worker.Pool
	repos    repositories

	policy        *slapolicy.Store
	dispatcher    events.Dispatcher
	authService   *service.AuthService
	tickets       *service.TicketService
	sessions      *service.SessionService
	assignments   *service.AssignmentService
	feedback      *service.FeedbackService
	reports       *service.ReportService
	notifications *service.NotificationService
	monitor       *monitor.Monitor
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	a := &application{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.pg = pg
	a.redis = persistence.NewRedis(cfg.Redis, logger)
	a.repos = a.buildRepositories()

	a.dispatcher = events.NewInMemoryDispatcher(observability.Named(logger, "events"))
	a.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout(), observability.Named(logger, "kafka"))
	if a.producer.Enabled() {
		events.NewKafkaSink(a.producer).Register(a.dispatcher)
	}

	a.pool = worker.NewPool(worker.PoolConfig{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
		Timeout:   cfg.Notification.Timeout(),
	}, observability.Named(logger, "worker"))
	a.pool.OnResult = a.metrics.RecordNotification

	a.policy = slapolicy.NewStore(slapolicy.StoreDependencies{
		Settings: a.repos.settings,
		Defaults: slapolicy.FromHours(cfg.SLA.CriticalHours, cfg.SLA.HighHours, cfg.SLA.MediumHours, cfg.SLA.LowHours),
		Redis:    a.redis.Handle(),
		Logger:   observability.Named(logger, "slapolicy"),
	})

	a.notifications = service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: a.dispatcher,
		Transport:  a.transport(),
		Pool:       a.pool,
		UserRepo:   a.repos.users,
		Logger:     observability.Named(logger, "notify"),
		Config:     cfg.Notification,
	})
	a.notifications.RegisterHandlers()

	text := textsvc.NewGuard(a.textService(), cfg.TextService.Timeout(), observability.Named(logger, "textsvc"))
	text.OnFallback = a.metrics.RecordTextFallback

	a.authService = service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: a.repos.users})
	a.tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:  a.repos.tickets,
		HistoryRepo: a.repos.history,
		UserRepo:    a.repos.users,
		Policy:      a.policy,
		Dispatcher:  a.dispatcher,
		Metrics:     a.metrics,
		Logger:      observability.Named(logger, "tickets"),
	})
	a.sessions = service.NewSessionService(service.SessionDependencies{
		SessionRepo:  a.repos.sessions,
		TicketRepo:   a.repos.tickets,
		HistoryRepo:  a.repos.history,
		UserRepo:     a.repos.users,
		Policy:       a.policy,
		Text:         text,
		Notification: a.notifications,
		Dispatcher:   a.dispatcher,
		Metrics:      a.metrics,
		Logger:       observability.Named(logger, "sessions"),
	})
	a.assignments = service.NewAssignmentService(service.AssignmentDependencies{
		Tickets:  a.tickets,
		UserRepo: a.repos.users,
		Logger:   observability.Named(logger, "assignment"),
	})
	a.feedback = service.NewFeedbackService(a.repos.feedback, a.repos.sessions, nil)
	a.reports = service.NewReportService(service.ReportDependencies{
		SessionRepo:  a.repos.sessions,
		TicketRepo:   a.repos.tickets,
		FeedbackRepo: a.repos.feedback,
		UserRepo:     a.repos.users,
		Policy:       a.policy,
	})

	var locker monitor.Locker = monitor.NoopLocker{}
	if client := a.redis.Handle(); client != nil {
		locker = monitor.NewRedisLocker(client, monitor.DefaultLockKey, cfg.SLA.SweepLockTTL())
	}
	a.monitor = monitor.New(monitor.Dependencies{
		Tickets:    a.repos.tickets,
		History:    a.repos.history,
		Dispatcher: a.dispatcher,
		Locker:     locker,
		Metrics:    a.metrics,
		Logger:     observability.Named(logger, "monitor"),
		Interval:   cfg.SLA.MonitorInterval(),
	})
	return a, nil
}

func (a *application) buildRepositories() repositories {
	pool := a.pg.PoolHandle()
	if pool == nil {
		a.logger.Warn("no database configured; using in-memory store")
		store := memory.NewStore()
		return repositories{
			users:    store.Users(),
			sessions: store.Sessions(),
			tickets:  store.Tickets(),
			history:  store.History(),
			feedback: store.Feedback(),
			settings: store.Settings(),
		}
	}
	return repositories{
		users:    repository.NewUserRepository(pool),
		sessions: repository.NewSessionRepository(pool),
		tickets:  repository.NewTicketRepository(pool),
		history:  repository.NewTicketHistoryRepository(pool),
		feedback: repository.NewFeedbackRepository(pool),
		settings: repository.NewSettingsRepository(pool),
	}
}

func (a *application) transport() notify.Transport {
	if a.cfg.Notification.WebhookURL == "" {
		return notify.LogTransport{From: a.cfg.Notification.EmailFrom, Logger: observability.Named(a.logger, "notify")}
	}
	return notify.NewWebhookTransport(a.cfg.Notification.WebhookURL, a.cfg.Notification.EmailFrom, a.cfg.Notification.Timeout())
}

func (a *application) textService() textsvc.Service {
	if a.cfg.TextService.URL == "" {
		a.logger.Warn("TEXT_SERVICE_URL not set; text features use fallbacks")
		return nil
	}
	return textsvc.NewHTTPClient(a.cfg.TextService.URL, a.cfg.TextService.Timeout())
}

func (a *application) migrate(ctx context.Context) error {
	return persistence.RunMigrations(ctx, a.pg.PoolHandle(), a.cfg.Postgres.MigrationsDir, a.logger)
}

func (a *application) routes() httptransport.RouteConfig {
	return httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(a.cfg.App.Name, a.cfg.App.Version, a.pg, a.redis),
		Users:          handlers.NewUsersHandler(a.authService),
		Staff:          handlers.NewStaffHandler(a.authService, a.policy),
		StaffTickets:   handlers.NewStaffTicketsHandler(a.assignments),
		Tickets:        handlers.NewTicketsHandler(a.tickets),
		Sessions:       handlers.NewSessionsHandler(a.sessions),
		Assist:         handlers.NewAssistHandler(a.sessions),
		Feedback:       handlers.NewFeedbackHandler(a.feedback),
		Reports:        handlers.NewReportsHandler(a.reports),
		Metrics:        a.metrics,
		AuthMiddleware: auth.NewAuthMiddleware(a.authService.TokenManager(), a.repos.users),
	}
}

// Close releases resources in reverse order of construction.
func (a *application) Close() {
	a.monitor.Stop()
	a.pool.Stop()
	if err := a.producer.Close(); err != nil {
		a.logger.Warn("kafka close", zap.Error(err))
	}
	a.redis.Close()
	a.pg.Close()
}
