package slapolicy

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/repository/memory"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const (
	// KeyPrefix namespaces policy entries in system settings.
	KeyPrefix = "sla_"
	// UpdateChannel carries change notifications between instances.
	UpdateChannel = "sla:policy:updated"
)

// Key returns the settings key for pr.
func Key(pr domain.TicketPriority) string {
	return KeyPrefix + string(pr)
}

// StoreDependencies wires the policy store.
type StoreDependencies struct {
	// Settings defaults to an in-process store when nil.
	Settings repository.SettingsRepository
	Defaults Policy
	// Redis is optional. Without it changes only reach this instance.
	Redis  *redis.Client
	Logger *zap.Logger
}

// Store serves the current policy and persists administrator changes.
type Store struct {
	settings repository.SettingsRepository
	defaults Policy
	redis    *redis.Client
	logger   *zap.Logger

	mu      sync.RWMutex
	current Policy
}

// NewStore builds a store holding the defaults until Refresh is called.
func NewStore(deps StoreDependencies) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := deps.Defaults
	if defaults.hours == nil {
		defaults = Defaults()
	}
	settings := deps.Settings
	if settings == nil {
		settings = memory.NewStore().Settings()
	}
	return &Store{
		settings: settings,
		defaults: defaults,
		redis:    deps.Redis,
		logger:   logger,
		current:  defaults,
	}
}

// Get returns the current target hours for pr.
func (s *Store) Get(pr domain.TicketPriority) float64 {
	return s.Snapshot().Hours(pr)
}

// Snapshot returns the current immutable policy.
func (s *Store) Snapshot() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set persists hours for pr. Callers gate this to administrators.
func (s *Store) Set(ctx context.Context, actor domain.Actor, pr domain.TicketPriority, hours float64) error {
	parsed, ok := domain.ParsePriority(string(pr))
	if !ok {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": pr})
	}
	pr = parsed
	if hours <= 0 {
		return apperrors.NewValidationError("sla hours must be positive", map[string]any{"hours": hours})
	}
	value := strconv.FormatFloat(hours, 'f', -1, 64)
	if err := s.settings.Set(ctx, Key(pr), value, actor.UserID); err != nil {
		return apperrors.NewServiceUnavailable(err)
	}

	s.mu.Lock()
	s.current = s.current.with(pr, hours)
	s.mu.Unlock()

	s.logger.Info("sla policy updated",
		zap.String("priority", string(pr)),
		zap.Float64("hours", hours),
		zap.String("actor", actor.UserID),
	)
	s.broadcast(ctx)
	return nil
}

// Refresh reloads the policy from settings. Missing or invalid values fall
// back to the defaults.
func (s *Store) Refresh(ctx context.Context) error {
	values, err := s.settings.ListByPrefix(ctx, KeyPrefix)
	if err != nil {
		return err
	}
	next := s.defaults
	for _, pr := range domain.TicketPriorities {
		raw, ok := values[Key(pr)]
		if !ok {
			continue
		}
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil || hours <= 0 {
			s.logger.Warn("ignoring invalid sla setting", zap.String("key", Key(pr)), zap.String("value", raw))
			continue
		}
		next = next.with(pr, hours)
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

func (s *Store) broadcast(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Publish(ctx, UpdateChannel, "refresh").Err(); err != nil {
		s.logger.Warn("sla policy broadcast failed", zap.Error(err))
	}
}

// Watch refreshes the policy whenever another instance publishes a change.
// It blocks until ctx is cancelled and is a no-op without redis.
func (s *Store) Watch(ctx context.Context) {
	if s.redis == nil {
		return
	}
	sub := s.redis.Subscribe(ctx, UpdateChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := s.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("sla policy refresh failed", zap.Error(err))
			}
		}
	}
}
