// Package textsvc is the boundary to the external classification,
// translation and summarization backend.
package textsvc

import (
	"context"
	"errors"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ErrUnavailable is returned when no backend is configured.
var ErrUnavailable = errors.New("textsvc: backend unavailable")

// Hint carries the menu path the customer navigated, if any.
type Hint struct {
	Category    string
	SubCategory string
}

// Service is implemented by text backends. Every call may fail.
type Service interface {
	ClassifyIntent(ctx context.Context, text string, hint Hint) (bool, error)
	IdentifySubcategory(ctx context.Context, text, category string) (string, error)
	GenerateResolution(ctx context.Context, text, category, subCategory, language string) (string, error)
	Summarize(ctx context.Context, messages []domain.SessionMessage, category, subCategory string) (string, error)
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
}
