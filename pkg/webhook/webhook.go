// Package webhook posts registration events to an external automation hook.
// Delivery is fire-and-forget: no response contract and no retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RegistrationEvent is the payload sent after a registration upsert.
type RegistrationEvent struct {
	RegistrationID  string `json:"registrationId"`
	Email           string `json:"email"`
	EventID         string `json:"eventId"`
	CalendarEventID string `json:"calendarEventId,omitempty"`
	Status          string `json:"status"`
	Source          string `json:"source"`
	WaitlistTrack   string `json:"waitlistTrack,omitempty"`
	ConfirmToken    string `json:"confirmToken"`
	ConfirmURL      string `json:"confirmUrl"`
}

// Notifier posts JSON to a single webhook URL.
type Notifier struct {
	url        string
	httpClient *http.Client
}

// NewNotifier creates a notifier. Returns nil when url is empty so callers
// can treat the webhook as disabled.
func NewNotifier(url string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the event. The response body is discarded; a non-2xx status
// is reported as an error so callers can log it.
func (n *Notifier) Notify(ctx context.Context, event RegistrationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook status: %d", resp.StatusCode)
	}
	return nil
}
