// Package notify delivers verification codes to users.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/clubhouse-sports/clubhouse/internal/httputil"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

// Message is one outbound verification message.
type Message struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
	Code    string `json:"code"`
	TTLSecs int    `json:"ttl_seconds"`
}

// Notifier sends messages to a user's phone.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes codes to the log. Meant for development only.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewDefault("notify")
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.WithField("phone", msg.Phone).
		WithField("purpose", msg.Purpose).
		WithField("code", msg.Code).
		Info("verification code issued")
	return nil
}

// WebhookNotifier posts messages as JSON to an SMS gateway webhook.
type WebhookNotifier struct {
	client *httputil.Client
	log    *logger.Logger
}

// NewWebhookNotifier creates a notifier posting to url with an optional key.
func NewWebhookNotifier(url, apiKey string, log *logger.Logger) *WebhookNotifier {
	if log == nil {
		log = logger.NewDefault("notify")
	}
	return &WebhookNotifier{
		client: httputil.NewClient(httputil.ClientConfig{BaseURL: url, APIKey: apiKey}),
		log:    log,
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	resp, err := n.client.PostJSON(ctx, "", msg)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	if _, err := httputil.ReadBody(resp, 64<<10); err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notify webhook: unexpected status %d", resp.StatusCode)
	}
	n.log.WithField("phone", msg.Phone).WithField("purpose", msg.Purpose).Debug("verification code delivered")
	return nil
}
