// Package airtable is a thin REST client for the hosted record store that
// acts as the system of record (Sessions, Registrations, Participants).
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Record is a row in a table. Fields carry the store's untyped column values.
type Record struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime time.Time      `json:"createdTime,omitempty"`
}

// SortField is a server-side sort hint.
type SortField struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // "asc" | "desc"
}

// SelectOptions narrows a Select call.
type SelectOptions struct {
	FilterByFormula string
	MaxRecords      int
	Sort            []SortField
}

// Client talks to one base of the record store.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	baseID     string
	logger     *zap.Logger
}

// Config holds client settings. BaseURL is overridable for tests.
type Config struct {
	APIKey  string
	BaseID  string
	BaseURL string
}

// NewClient creates a record-store client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		baseID:     cfg.BaseID,
		logger:     logger,
	}
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// Select returns records matching the options, following pagination offsets
// until MaxRecords (when set) or the table is exhausted.
func (c *Client) Select(ctx context.Context, table string, opts SelectOptions) ([]Record, error) {
	var out []Record
	offset := ""
	for {
		q := url.Values{}
		if opts.FilterByFormula != "" {
			q.Set("filterByFormula", opts.FilterByFormula)
		}
		if opts.MaxRecords > 0 {
			q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
		}
		for i, s := range opts.Sort {
			q.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
			q.Set(fmt.Sprintf("sort[%d][direction]", i), s.Direction)
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.tableURL(table)+"?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
		if opts.MaxRecords > 0 && len(out) >= opts.MaxRecords {
			return out[:opts.MaxRecords], nil
		}
		if page.Offset == "" {
			return out, nil
		}
		offset = page.Offset
	}
}

// Find returns a record by id.
func (c *Client) Find(ctx context.Context, table, id string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, c.tableURL(table)+"/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a record and returns it with the store's assigned id.
func (c *Client) Create(ctx context.Context, table string, fields map[string]any) (*Record, error) {
	body := map[string]any{"fields": fields}
	var rec Record
	if err := c.do(ctx, http.MethodPost, c.tableURL(table), body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update patches the given fields on a record, leaving others untouched.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]any) (*Record, error) {
	body := map[string]any{"fields": fields}
	var rec Record
	if err := c.do(ctx, http.MethodPatch, c.tableURL(table)+"/"+url.PathEscape(id), body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
}

// apiError is the store's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError reports a non-2xx response from the store.
type StatusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable: %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable: status %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var envelope apiError
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			se.Type = envelope.Error.Type
			se.Message = envelope.Error.Message
		}
		c.logger.Debug("airtable request failed",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("type", se.Type),
		)
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
