package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const maxRating = 5

// FeedbackService records satisfaction ratings.
type FeedbackService struct {
	feedback repository.FeedbackRepository
	sessions repository.SessionRepository
	clock    clock.Clock
}

// NewFeedbackService constructs the service.
func NewFeedbackService(feedback repository.FeedbackRepository, sessions repository.SessionRepository, c clock.Clock) *FeedbackService {
	if c == nil {
		c = clock.Real()
	}
	return &FeedbackService{feedback: feedback, sessions: sessions, clock: c}
}

// FeedbackInput is one rating.
type FeedbackInput struct {
	SessionID *string
	Rating    int
	Comment   string
}

// Submit appends a rating. A referenced session must belong to the actor.
func (s *FeedbackService) Submit(ctx context.Context, actor domain.Actor, input FeedbackInput) (*domain.Feedback, error) {
	if input.Rating < 0 || input.Rating > maxRating {
		return nil, apperrors.NewValidationError("rating must be between 0 and 5", map[string]any{"rating": input.Rating})
	}
	if input.SessionID != nil {
		session, err := s.sessions.GetByID(ctx, *input.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewValidationError("session does not exist", map[string]any{"session_id": *input.SessionID})
			}
			return nil, mapRepoError(err, "session", *input.SessionID)
		}
		if session.CustomerID != actor.UserID {
			return nil, apperrors.NewForbidden("feedback can only be left on your own sessions")
		}
	}
	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		SessionID: input.SessionID,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
		CreatedAt: s.clock.Now(),
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, mapRepoError(err, "feedback", fb.ID)
	}
	return fb, nil
}

// List returns feedback newest first. Customers see their own only.
func (s *FeedbackService) List(ctx context.Context, actor domain.Actor, from, to *time.Time, limit, offset int) ([]domain.Feedback, error) {
	filter := repository.FeedbackFilter{CreatedFrom: from, CreatedTo: to, Limit: limit, Offset: offset}
	if !actor.Role.IsStaff() {
		filter.UserID = strPtr(actor.UserID)
	}
	items, err := s.feedback.List(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err, "feedback", "")
	}
	return items, nil
}
