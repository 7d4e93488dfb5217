package service

import (
	"context"
	"strings"

	"github.com/spec-kit/complaint-service/internal/catalog"
	"github.com/spec-kit/complaint-service/internal/textsvc"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const notRelatedMessage = "I can only help with telecom related complaints. Please describe an issue with your mobile, broadband, DTH, landline or enterprise service."

// MenuEntry is one translated sub-category.
type MenuEntry struct {
	Key  string
	Name string
}

// AssistInput is a free text query plus the menu path, if any.
type AssistInput struct {
	Query          string
	CategoryKey    string
	SubCategoryKey string
	Language       string
}

// AssistResult is the guidance returned for a query.
type AssistResult struct {
	Related     bool
	Category    string
	SubCategory string
	Resolution  string
	// Failed is set when resolution generation failed and Resolution is empty.
	Failed bool
}

// Menu returns the sector list.
func (s *SessionService) Menu() []catalog.Sector {
	return catalog.Sectors()
}

// SubCategories lists the sub-categories of sectorKey, translated when
// language is not English.
func (s *SessionService) SubCategories(ctx context.Context, sectorKey, language string) (catalog.Sector, []MenuEntry, error) {
	sector, ok := catalog.Lookup(sectorKey)
	if !ok {
		return catalog.Sector{}, nil, apperrors.NewNotFound("sector", map[string]any{"key": sectorKey})
	}
	keys := sector.SortedKeys()
	out := make([]MenuEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, MenuEntry{Key: k, Name: s.text.Translate(ctx, sector.SubCategories[k], language)})
	}
	return sector, out, nil
}

// Assist classifies the query, identifies the sub-category when the
// customer picked the catch-all entry, and generates guidance.
func (s *SessionService) Assist(ctx context.Context, input AssistInput) (*AssistResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required", nil)
	}
	var category, subCategory string
	if input.CategoryKey != "" {
		sector, ok := catalog.Lookup(input.CategoryKey)
		if !ok {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.CategoryKey})
		}
		category = sector.Name
		subCategory = sector.SubCategories[input.SubCategoryKey]
	}

	if !s.text.IsRelated(ctx, query, textsvc.Hint{Category: category, SubCategory: subCategory}) {
		return &AssistResult{
			Related:    false,
			Resolution: s.text.Translate(ctx, notRelatedMessage, input.Language),
		}, nil
	}
	if subCategory == "" || subCategory == catalog.OthersLabel {
		subCategory = s.text.SubCategory(ctx, query, category)
	}
	resolution, ok := s.text.Resolution(ctx, query, category, subCategory, input.Language)
	return &AssistResult{
		Related:     true,
		Category:    category,
		SubCategory: subCategory,
		Resolution:  resolution,
		Failed:      !ok,
	}, nil
}

// DetectLanguage names the language of text.
func (s *SessionService) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperrors.NewValidationError("text is required", nil)
	}
	return s.text.DetectLanguage(ctx, text), nil
}
