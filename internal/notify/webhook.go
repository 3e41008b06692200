// Package notify posts stash lifecycle events to configured webhook URLs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event represents the payload sent to webhook URLs.
type Event struct {
	Event     string `json:"event"` // "create" or "restore"
	Name      string `json:"name"`
	Project   string `json:"project"`
	Duration  string `json:"duration"`
	Timestamp string `json:"timestamp"`
}

// Notifier sends HTTP POST notifications to configured webhook URLs.
type Notifier struct {
	urls   []string
	client *http.Client
	logger *slog.Logger
	retry  *RetryConfig
}

// New creates a notifier. Returns nil if no URLs are configured; a nil
// Notifier is valid and does nothing.
func New(urls []string, logger *slog.Logger) *Notifier {
	if len(urls) == 0 {
		return nil
	}
	return &Notifier{
		urls:   urls,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		retry:  DefaultRetryConfig(),
	}
}

// Notify delivers the event to every URL. Delivery runs synchronously because
// the process exits right after the operation completes. Failures are logged,
// never returned: a webhook must not fail a completed restore.
func (n *Notifier) Notify(ctx context.Context, event, name, project string, d time.Duration) {
	if n == nil {
		return
	}

	data, err := json.Marshal(&Event{
		Event:     event,
		Name:      name,
		Project:   project,
		Duration:  d.Round(time.Millisecond).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		n.logger.Error("webhook: marshal event", "error", err)
		return
	}

	for _, url := range n.urls {
		if err := n.post(ctx, url, data); err != nil {
			n.logger.Warn("webhook: delivery failed", "url", url, "error", err)
		} else {
			n.logger.Debug("webhook: delivered", "url", url, "event", event)
		}
	}
}

// post sends a single webhook POST, retrying transient failures.
func (n *Notifier) post(ctx context.Context, url string, data []byte) error {
	return n.retry.retry(ctx, "post "+url, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "envstash/1.0")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Status: resp.StatusCode}
		}
		return nil
	})
}
