// Package notify delivers outbound email and chat messages.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Transport sends messages. Implementations must honour ctx deadlines.
type Transport interface {
	SendEmail(ctx context.Context, recipient, subject, body string) error
	SendChatMessage(ctx context.Context, recipient, body string) error
}

// LogTransport only logs deliveries.
type LogTransport struct {
	From   string
	Logger *zap.Logger
}

// SendEmail logs the email.
func (t LogTransport) SendEmail(_ context.Context, recipient, subject, body string) error {
	t.logger().Info("email notification",
		zap.String("from", t.From),
		zap.String("to", recipient),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)))
	return nil
}

// SendChatMessage logs the chat message.
func (t LogTransport) SendChatMessage(_ context.Context, recipient, body string) error {
	t.logger().Info("chat notification", zap.String("to", recipient), zap.Int("body_len", len(body)))
	return nil
}

func (t LogTransport) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

// WebhookTransport posts messages as JSON to a relay endpoint that owns the
// actual email and chat providers.
type WebhookTransport struct {
	url    string
	from   string
	client *http.Client
}

// NewWebhookTransport builds a transport posting to url.
func NewWebhookTransport(url, from string, timeout time.Duration) *WebhookTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookTransport{url: url, from: from, client: &http.Client{Timeout: timeout}}
}

type webhookMessage struct {
	Channel   string `json:"channel"`
	From      string `json:"from,omitempty"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// SendEmail posts an email delivery request.
func (t *WebhookTransport) SendEmail(ctx context.Context, recipient, subject, body string) error {
	return t.post(ctx, webhookMessage{Channel: "email", From: t.from, Recipient: recipient, Subject: subject, Body: body})
}

// SendChatMessage posts a chat delivery request.
func (t *WebhookTransport) SendChatMessage(ctx context.Context, recipient, body string) error {
	return t.post(ctx, webhookMessage{Channel: "chat", Recipient: recipient, Body: body})
}

func (t *WebhookTransport) post(ctx context.Context, msg webhookMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %s delivery: %w", msg.Channel, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: %s delivery: unexpected status %d", msg.Channel, resp.StatusCode)
	}
	return nil
}
