package textsvc

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
)

const (
	// FallbackSubCategory is used when identification fails.
	FallbackSubCategory = "General Inquiry"
	// FallbackLanguage is used when detection fails.
	FallbackLanguage = "English"
)

// Guard applies a per-call deadline to a Service and replaces failures with
// fixed fallback values. Its methods never return collaborator errors.
type Guard struct {
	svc     Service
	timeout time.Duration
	logger  *zap.Logger

	// OnFallback observes each fallback by operation name. It may be nil.
	OnFallback func(op string)
}

// NewGuard wraps svc. A nil svc behaves as a permanently failing backend.
func NewGuard(svc Service, timeout time.Duration, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{svc: svc, timeout: timeout, logger: logger}
}

func (g *Guard) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Guard) fallback(op string, err error) {
	g.logger.Warn("text service fallback", zap.String("op", op), zap.Error(err))
	if g.OnFallback != nil {
		g.OnFallback(op)
	}
}

// IsRelated classifies text. On failure the complaint counts as related
// only when the customer navigated a category menu to reach it.
func (g *Guard) IsRelated(ctx context.Context, text string, hint Hint) bool {
	if g.svc == nil {
		g.fallback("classify", ErrUnavailable)
		return hint.Category != ""
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	related, err := g.svc.ClassifyIntent(ctx, text, hint)
	if err != nil {
		g.fallback("classify", err)
		return hint.Category != ""
	}
	return related
}

// SubCategory identifies the sub-category of text within category.
func (g *Guard) SubCategory(ctx context.Context, text, category string) string {
	if g.svc == nil {
		g.fallback("subcategory", ErrUnavailable)
		return FallbackSubCategory
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	label, err := g.svc.IdentifySubcategory(ctx, text, category)
	if err != nil || strings.TrimSpace(label) == "" {
		g.fallback("subcategory", err)
		return FallbackSubCategory
	}
	return label
}

// Resolution generates guidance. ok is false when generation failed and the
// text is empty.
func (g *Guard) Resolution(ctx context.Context, text, category, subCategory, language string) (string, bool) {
	if g.svc == nil {
		g.fallback("resolution", ErrUnavailable)
		return "", false
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	out, err := g.svc.GenerateResolution(ctx, text, category, subCategory, language)
	if err != nil {
		g.fallback("resolution", err)
		return "", false
	}
	return out, true
}

// Summary condenses messages. Failure yields an empty summary.
func (g *Guard) Summary(ctx context.Context, messages []domain.SessionMessage, category, subCategory string) string {
	if g.svc == nil {
		g.fallback("summarize", ErrUnavailable)
		return ""
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	out, err := g.svc.Summarize(ctx, messages, category, subCategory)
	if err != nil {
		g.fallback("summarize", err)
		return ""
	}
	return out
}

// Translate renders text in language. English targets and failures return
// the original text.
func (g *Guard) Translate(ctx context.Context, text, language string) string {
	if IsEnglish(language) || text == "" {
		return text
	}
	if g.svc == nil {
		g.fallback("translate", ErrUnavailable)
		return text
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	out, err := g.svc.Translate(ctx, text, language)
	if err != nil || out == "" {
		g.fallback("translate", err)
		return text
	}
	return out
}

// DetectLanguage names the language of text, English on failure.
func (g *Guard) DetectLanguage(ctx context.Context, text string) string {
	if g.svc == nil {
		g.fallback("detect_language", ErrUnavailable)
		return FallbackLanguage
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	lang, err := g.svc.DetectLanguage(ctx, text)
	if err != nil || strings.TrimSpace(lang) == "" {
		g.fallback("detect_language", err)
		return FallbackLanguage
	}
	return lang
}

// IsEnglish reports whether language names English or is unset.
func IsEnglish(language string) bool {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "", "english", "en":
		return true
	}
	return false
}
