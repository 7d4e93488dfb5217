package service

import (
	"context"
	"errors"

	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// maxUpdateAttempts bounds optimistic read-modify-write retries.
const maxUpdateAttempts = 3

// mapRepoError converts repository sentinels into DomainErrors. Anything
// unrecognised is treated as the store being unavailable.
func mapRepoError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	details := map[string]any{"id": id}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(resource+" was modified concurrently", details)
	case errors.Is(err, repository.ErrStateConflict):
		return apperrors.NewConflict(resource+" does not allow this operation in its current state", details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", details)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return apperrors.NewServiceUnavailable(err)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}

func strPtr(v string) *string {
	return &v
}
