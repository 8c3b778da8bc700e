// Package notify posts sync outcomes to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventSynced    = "time_synced"
	EventFailed    = "sync_failed"
	EventGaveUp    = "sync_gave_up"
	defaultTimeout = 10 * time.Second
)

type Event struct {
	Event     string         `json:"event"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	CycleID   string         `json:"cycle_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Notifier is a no-op when URL is empty.
type Notifier struct {
	URL    string
	Client *http.Client
	Log    zerolog.Logger
}

func New(url string, log zerolog.Logger) *Notifier {
	return &Notifier{
		URL:    url,
		Client: &http.Client{Timeout: defaultTimeout},
		Log:    log,
	}
}

// Send posts the event as JSON and reports delivery errors.
func (n *Notifier) Send(ctx context.Context, event Event) error {
	if n == nil || n.URL == "" {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Notify is Send with failures logged instead of returned.
func (n *Notifier) Notify(ctx context.Context, event Event) {
	if err := n.Send(ctx, event); err != nil {
		n.Log.Warn().Err(err).Str("event", event.Event).Msg("notification failed")
	}
}
