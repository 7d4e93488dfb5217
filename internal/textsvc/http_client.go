package textsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// HTTPClient calls a JSON-over-HTTP text backend at BaseURL/<operation>.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client. An empty baseURL makes every call fail
// with ErrUnavailable.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type textResponse struct {
	Related  bool   `json:"related"`
	Label    string `json:"label"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

type messageBody struct {
	Sender  domain.MessageSender `json:"sender"`
	Content string               `json:"content"`
}

// ClassifyIntent asks whether text is an in-scope complaint.
func (c *HTTPClient) ClassifyIntent(ctx context.Context, text string, hint Hint) (bool, error) {
	var out textResponse
	err := c.call(ctx, "classify", map[string]any{
		"text":         text,
		"category":     hint.Category,
		"sub_category": hint.SubCategory,
	}, &out)
	return out.Related, err
}

// IdentifySubcategory maps text onto a sub-category of category.
func (c *HTTPClient) IdentifySubcategory(ctx context.Context, text, category string) (string, error) {
	var out textResponse
	if err := c.call(ctx, "subcategory", map[string]any{"text": text, "category": category}, &out); err != nil {
		return "", err
	}
	if out.Label == "" {
		return "", fmt.Errorf("textsvc: subcategory: empty label")
	}
	return out.Label, nil
}

// GenerateResolution produces troubleshooting guidance.
func (c *HTTPClient) GenerateResolution(ctx context.Context, text, category, subCategory, language string) (string, error) {
	var out textResponse
	err := c.call(ctx, "resolution", map[string]any{
		"text":         text,
		"category":     category,
		"sub_category": subCategory,
		"language":     language,
	}, &out)
	return out.Text, err
}

// Summarize condenses a conversation.
func (c *HTTPClient) Summarize(ctx context.Context, messages []domain.SessionMessage, category, subCategory string) (string, error) {
	body := make([]messageBody, len(messages))
	for i, m := range messages {
		body[i] = messageBody{Sender: m.Sender, Content: m.Content}
	}
	var out textResponse
	err := c.call(ctx, "summarize", map[string]any{
		"messages":     body,
		"category":     category,
		"sub_category": subCategory,
	}, &out)
	return out.Text, err
}

// Translate renders text in targetLanguage.
func (c *HTTPClient) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	var out textResponse
	err := c.call(ctx, "translate", map[string]any{"text": text, "language": targetLanguage}, &out)
	return out.Text, err
}

// DetectLanguage names the language of text.
func (c *HTTPClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	var out textResponse
	err := c.call(ctx, "detect-language", map[string]any{"text": text}, &out)
	return out.Language, err
}

func (c *HTTPClient) call(ctx context.Context, op string, in any, out *textResponse) error {
	if c.baseURL == "" {
		return ErrUnavailable
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("textsvc: %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("textsvc: %s: unexpected status %d", op, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("textsvc: %s: decode: %w", op, err)
	}
	return nil
}
