// Package gcal is a REST client for the hosted calendar holding the
// authoritative event schedule and attendee lists.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://www.googleapis.com/calendar/v3"

// ScopeCalendar grants read/write event access, needed for attendee patches.
const ScopeCalendar = "https://www.googleapis.com/auth/calendar"

// Attendee is one invitee on a calendar event.
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// EventTime carries either a full timestamp or an all-day date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Value returns whichever of DateTime/Date is set.
func (t EventTime) Value() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// Event is a calendar event.
type Event struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	HangoutLink string     `json:"hangoutLink,omitempty"`
	Location    string     `json:"location,omitempty"`
}

// MeetingLink prefers the conference link, falling back to the location field.
func (e Event) MeetingLink() string {
	if e.HangoutLink != "" {
		return e.HangoutLink
	}
	return e.Location
}

// Config holds calendar client settings.
type Config struct {
	CalendarID  string
	ClientEmail string
	PrivateKey  string // normalized PEM
	Subject     string
	APIBase     string // override for tests
	TokenURL    string // override for tests
}

// Client calls the calendar API for a single calendar.
type Client struct {
	httpClient *http.Client
	tokens     *tokenSource
	apiBase    string
	calendarID string
	logger     *zap.Logger
}

// NewClient creates a calendar client from service-account credentials.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CalendarID == "" || cfg.ClientEmail == "" || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("missing calendar configuration")
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	tokens, err := newTokenSource(cfg.ClientEmail, cfg.PrivateKey, []string{ScopeCalendar}, cfg.Subject, httpClient, cfg.TokenURL)
	if err != nil {
		return nil, err
	}
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Client{
		httpClient: httpClient,
		tokens:     tokens,
		apiBase:    apiBase,
		calendarID: cfg.CalendarID,
		logger:     logger,
	}, nil
}

// GetEvent fetches one event, including its current attendee list.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	var ev Event
	if err := c.do(ctx, http.MethodGet, c.eventURL(eventID), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// PatchAttendees replaces the event's attendee list. When notifyAll is set
// the provider emails every attendee, which is what delivers the invite.
func (c *Client) PatchAttendees(ctx context.Context, eventID string, attendees []Attendee, notifyAll bool) error {
	u := c.eventURL(eventID)
	if notifyAll {
		u += "?sendUpdates=all"
	}
	body := map[string]any{"attendees": attendees}
	return c.do(ctx, http.MethodPatch, u, body, nil)
}

// ListEvents returns single (non-recurring-expanded) events from timeMin
// onward whose text matches query, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, query string, timeMin time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("timeMin", timeMin.UTC().Format(time.RFC3339))
	if query != "" {
		q.Set("q", query)
	}

	var out []Event
	pageToken := ""
	for {
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		var page struct {
			Items         []Event `json:"items"`
			NextPageToken string  `json:"nextPageToken"`
		}
		u := c.apiBase + "/calendars/" + url.PathEscape(c.calendarID) + "/events?" + q.Encode()
		if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) eventURL(eventID string) string {
	return c.apiBase + "/calendars/" + url.PathEscape(c.calendarID) + "/events/" + url.PathEscape(eventID)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("calendar request failed", zap.String("method", method), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("calendar: status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
