// Package client is a typed HTTP client for the tripplanner API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tripplanner/internal/domain"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s - %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to a tripplanner server.
type Client struct {
	serverURL  string
	client     *http.Client
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger used for retry messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetries retries GET requests that fail with a transport error or a
// 5xx status, doubling backoff between attempts.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// New creates a client for the server at serverURL.
func New(serverURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: timeout},
		backoff:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// CreateSession starts a new planning session.
func (c *Client) CreateSession(ctx context.Context) (*domain.SessionView, error) {
	var out domain.SessionView
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns all sessions, most recently updated first.
func (c *Client) ListSessions(ctx context.Context) ([]domain.SessionView, error) {
	var out struct {
		Items []domain.SessionView `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetSession returns a session snapshot.
func (c *Client) GetSession(ctx context.Context, id string) (*domain.SessionView, error) {
	var out domain.SessionView
	if err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// UpdateTrip replaces the trip parameters of a session.
func (c *Client) UpdateTrip(ctx context.Context, id string, trip domain.TripParameters) (*domain.SessionView, error) {
	var out domain.SessionView
	if err := c.do(ctx, http.MethodPut, sessionPath(id, "/trip"), trip, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage runs one chat turn.
func (c *Client) SendMessage(ctx context.Context, id, message string) (*domain.ChatResponse, error) {
	var out domain.ChatResponse
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/messages"), domain.ChatRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateItinerary asks the server to build the itinerary.
func (c *Client) GenerateItinerary(ctx context.Context, id string) (*domain.ItineraryResponse, error) {
	var out domain.ItineraryResponse
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/itinerary"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Itinerary returns the current visualization.
func (c *Client) Itinerary(ctx context.Context, id string) (*domain.Visualization, error) {
	var out domain.Visualization
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "/itinerary"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ItineraryCalendar downloads the iCalendar export.
func (c *Client) ItineraryCalendar(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, sessionPath(id, "/itinerary.ics"), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	return data, nil
}

// Back returns a visualizing session to conversing.
func (c *Client) Back(ctx context.Context, id string) (*domain.SessionView, error) {
	var out domain.SessionView
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/back"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset returns a session to collecting.
func (c *Client) Reset(ctx context.Context, id string) (*domain.SessionView, error) {
	var out domain.SessionView
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/reset"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Extract runs stateless extraction over text.
func (c *Client) Extract(ctx context.Context, text string) (*domain.ExtractResponse, error) {
	var out domain.ExtractResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/extract", domain.ExtractRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Geocode resolves a place label.
func (c *Client) Geocode(ctx context.Context, label string) (*domain.Place, error) {
	var out domain.Place
	if err := c.do(ctx, http.MethodGet, "/api/v1/geocode?q="+url.QueryEscape(label), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func sessionPath(id, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(id) + suffix
}

// do sends a request and decodes a JSON response into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += max(c.maxRetries, 0)
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<uint(attempt-1))
			c.logger.Info("retrying request", "path", path, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}
		if resp.StatusCode >= 500 && attempt < attempts-1 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error (status %d)", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var errBody struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errBody)
	if errBody.Error == "" {
		errBody.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: errBody.Error, Detail: errBody.Detail}
}
