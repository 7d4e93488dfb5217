package dto

import (
	"github.com/spec-kit/complaint-service/internal/catalog"
	"github.com/spec-kit/complaint-service/internal/service"
)

// SectorResponse is one top level menu entry.
type SectorResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// NewSectorResponses maps the menu.
func NewSectorResponses(sectors []catalog.Sector) []SectorResponse {
	out := make([]SectorResponse, 0, len(sectors))
	for _, s := range sectors {
		out = append(out, SectorResponse{Key: s.Key, Name: s.Name, Icon: s.Icon})
	}
	return out
}

// SubCategoriesRequest asks for a sector's entries in a language.
type SubCategoriesRequest struct {
	SectorKey string `json:"sector_key"`
	Language  string `json:"language"`
}

// SubCategoryResponse is one menu entry.
type SubCategoryResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// NewSubCategoryResponses maps translated entries.
func NewSubCategoryResponses(entries []service.MenuEntry) []SubCategoryResponse {
	out := make([]SubCategoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, SubCategoryResponse{Key: e.Key, Name: e.Name})
	}
	return out
}

// AssistRequest is a customer query plus its menu path.
type AssistRequest struct {
	Query          string `json:"query"`
	CategoryKey    string `json:"category_key"`
	SubCategoryKey string `json:"sub_category_key"`
	Language       string `json:"language"`
}

// AssistResponse is the generated guidance.
type AssistResponse struct {
	IsTelecom   bool   `json:"is_telecom"`
	Category    string `json:"category,omitempty"`
	SubCategory string `json:"sub_category,omitempty"`
	Resolution  string `json:"resolution"`
	Failed      bool   `json:"failed"`
}

// NewAssistResponse maps the result.
func NewAssistResponse(r *service.AssistResult) AssistResponse {
	return AssistResponse{
		IsTelecom:   r.Related,
		Category:    r.Category,
		SubCategory: r.SubCategory,
		Resolution:  r.Resolution,
		Failed:      r.Failed,
	}
}

// DetectLanguageRequest asks for the language of a text.
type DetectLanguageRequest struct {
	Text string `json:"text"`
}
