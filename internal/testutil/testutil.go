// Package testutil provides testing utilities for tripplanner integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripplanner/internal/api"
	"tripplanner/internal/geo"
	"tripplanner/internal/observability"
	"tripplanner/internal/planning"
	"tripplanner/internal/planning/llm"
	"tripplanner/internal/planning/llm/llmtest"
	"tripplanner/internal/session"
	"tripplanner/internal/storage"
)

// TestServerConfig holds configuration for creating a test server.
type TestServerConfig struct {
	// Provider answers completion calls. Nil means a fake that always
	// replies "Sounds great!".
	Provider llm.Provider
	// MapToken enables interactive map views.
	MapToken string
	// EnableRateLimit enables rate limiting middleware.
	EnableRateLimit bool
	// RateLimitConfig configures rate limiting if enabled.
	RateLimitConfig api.RateLimitConfig
	// EnableMetrics enables metrics collection and the /metrics endpoint.
	EnableMetrics bool
}

// DefaultTestServerConfig returns a basic test server configuration.
func DefaultTestServerConfig() TestServerConfig {
	return TestServerConfig{}
}

// TestServerComponents holds all the components created for a test server.
type TestServerComponents struct {
	// Server is the test HTTP server.
	Server *httptest.Server
	// Store is the session store.
	Store *storage.MemorySessionStore
	// Sessions is the session manager behind the API.
	Sessions *session.Manager
	// Metrics is the metrics collector, nil unless enabled.
	Metrics *observability.Metrics
	// Logger is the structured logger.
	Logger observability.Logger
}

// NewTestServer creates a fully wired test server with the production
// middleware chain. The server is closed when the test ends.
func NewTestServer(t *testing.T, cfg TestServerConfig) *TestServerComponents {
	t.Helper()

	logger := observability.NewLogger(observability.Config{
		Level:  "debug",
		Format: "json",
		Output: io.Discard,
	})

	var metrics *observability.Metrics
	if cfg.EnableMetrics {
		metrics = observability.NewMetrics(observability.MetricsConfig{
			Namespace: "tripplanner_test",
			Version:   "test",
		})
	}

	provider := cfg.Provider
	if provider == nil {
		provider = llmtest.New("Sounds great!")
	}

	store := storage.NewMemorySessionStore(time.Hour, 0)
	assistant := planning.NewAssistant(provider, nil, logger, metrics)
	geocoder := geo.New(time.Hour, geo.WithLogger(logger), geo.WithMapToken(cfg.MapToken))
	sessions := session.NewManager(store, assistant,
		session.WithLogger(logger),
		session.WithMetrics(metrics),
		session.WithMapResolver(geocoder),
	)

	mux := http.NewServeMux()
	opts := []api.Option{}
	if metrics != nil {
		opts = append(opts, api.WithMetrics(metrics))
	}
	srv := api.NewServer(mux, sessions, assistant, geocoder, logger, opts...)
	srv.RegisterRoutes()

	middlewares := []api.Middleware{}
	if metrics != nil {
		middlewares = append(middlewares, observability.MetricsMiddleware(metrics))
	}
	middlewares = append(middlewares,
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger.Slog()),
	)
	if cfg.EnableRateLimit {
		middlewares = append(middlewares, api.RateLimitMiddleware(cfg.RateLimitConfig, logger.Slog()))
	}
	handler := api.ApplyMiddlewares(mux, middlewares...)

	testServer := httptest.NewServer(handler)
	t.Cleanup(testServer.Close)

	return &TestServerComponents{
		Server:   testServer,
		Store:    store,
		Sessions: sessions,
		Metrics:  metrics,
		Logger:   logger,
	}
}

// DoRequest performs an HTTP request and returns the response.
func DoRequest(t *testing.T, client *http.Client, req *http.Request) *http.Response {
	t.Helper()

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	return resp
}

// Do builds and performs a request against the test server. A non-nil
// body is sent as JSON.
func (c *TestServerComponents) Do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		r = JSONBody(t, body)
	}
	req, err := http.NewRequest(method, c.URL(path), r)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return DoRequest(t, c.HTTPClient(), req)
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, got, expected int) {
	t.Helper()

	if got != expected {
		t.Errorf("expected status %d, got %d", expected, got)
	}
}

// AssertHeader checks that the response has the expected header value.
func AssertHeader(t *testing.T, resp *http.Response, key, expected string) {
	t.Helper()

	got := resp.Header.Get(key)
	if got != expected {
		t.Errorf("expected header %s=%q, got %q", key, expected, got)
	}
}

// JSONBody creates an io.Reader from a JSON-serializable value.
func JSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}

	return bytes.NewReader(data)
}

// ReadJSONResponse reads and unmarshals a JSON response body.
func ReadJSONResponse(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to unmarshal response: %v\nBody: %s", err, string(data))
	}
}

// ReadBody reads and closes a response body.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(data)
}

// HTTPClient returns the test server's client configured for the server.
func (c *TestServerComponents) HTTPClient() *http.Client {
	return c.Server.Client()
}

// URL returns the full URL for a given path.
func (c *TestServerComponents) URL(path string) string {
	return c.Server.URL + path
}
