package observability

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// MetricsConfig holds configuration for the metrics subsystem.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool
	// Namespace prefix for all metrics (default: tripplanner).
	Namespace string
	// Version is the application version for the info metric.
	Version string
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "tripplanner",
		Version:   "dev",
	}
}

// MetricsConfigFromEnv creates a MetricsConfig from environment variables.
// TRIPPLANNER_METRICS_ENABLED: true/false (default: true)
// APP_VERSION: version string (default: dev)
func MetricsConfigFromEnv() MetricsConfig {
	cfg := DefaultMetricsConfig()

	if v := os.Getenv("TRIPPLANNER_METRICS_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		cfg.Version = v
	}
	return cfg
}

// summaryWindow is the number of recent samples kept per series for quantiles.
const summaryWindow = 1000

var summaryQuantiles = []float64{0.5, 0.9, 0.99}

// Metrics collects request and planning metrics and renders them in the
// Prometheus text format. A nil *Metrics is valid and records nothing.
type Metrics struct {
	namespace string
	version   string

	httpRequests    *counterVec // method, path, status
	httpDurations   *summaryVec // method, path
	rateLimit       *counterVec // status
	activeConns     atomic.Int64
	completions     *counterVec // purpose, outcome
	completionTimes *summaryVec // purpose
	tokens          *counterVec // kind
	extractions     *counterVec // strategy

	recommendationsExtracted atomic.Int64
	candidatesSkipped        atomic.Int64
	staleResponses           atomic.Int64
	sessionsCreated          atomic.Int64
}

// NewMetrics creates a new Metrics collector.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		namespace:       cfg.Namespace,
		version:         cfg.Version,
		httpRequests:    newCounterVec("method", "path", "status"),
		httpDurations:   newSummaryVec("method", "path"),
		rateLimit:       newCounterVec("status"),
		completions:     newCounterVec("purpose", "outcome"),
		completionTimes: newSummaryVec("purpose"),
		tokens:          newCounterVec("kind"),
		extractions:     newCounterVec("strategy"),
	}
}

// RecordHTTPRequest records one served request. Paths are reduced to their
// route so session IDs do not create new series.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	route := Route(path)
	m.httpRequests.add(1, method, route, fmt.Sprint(statusCode))
	m.httpDurations.observe(duration, method, route)
}

// RecordRateLimitAllowed increments the count of allowed requests.
func (m *Metrics) RecordRateLimitAllowed() {
	if m != nil {
		m.rateLimit.add(1, "allowed")
	}
}

// RecordRateLimitRejected increments the count of rejected requests.
func (m *Metrics) RecordRateLimitRejected() {
	if m != nil {
		m.rateLimit.add(1, "rejected")
	}
}

// IncrementActiveConnections increments the active connection gauge.
func (m *Metrics) IncrementActiveConnections() {
	if m != nil {
		m.activeConns.Add(1)
	}
}

// DecrementActiveConnections decrements the active connection gauge.
func (m *Metrics) DecrementActiveConnections() {
	if m != nil {
		m.activeConns.Add(-1)
	}
}

// RecordCompletion records one completion call. Purpose is "chat" or
// "itinerary"; outcome is "ok" or "error".
func (m *Metrics) RecordCompletion(purpose, outcome string, duration time.Duration, promptTokens, outputTokens int64) {
	if m == nil {
		return
	}
	m.completions.add(1, purpose, outcome)
	m.completionTimes.observe(duration, purpose)
	m.tokens.add(promptTokens, "prompt")
	m.tokens.add(outputTokens, "output")
}

// RecordExtraction records the outcome of extracting recommendations from
// one reply. An empty strategy means nothing was found.
func (m *Metrics) RecordExtraction(strategy string, extracted, skipped int) {
	if m == nil {
		return
	}
	m.extractions.add(1, lo.Ternary(strategy == "", "none", strategy))
	m.recommendationsExtracted.Add(int64(extracted))
	m.candidatesSkipped.Add(int64(skipped))
}

// RecordStaleResponse counts a completion discarded because its session
// was reset or deleted while the call was in flight.
func (m *Metrics) RecordStaleResponse() {
	if m != nil {
		m.staleResponses.Add(1)
	}
}

// RecordSessionCreated counts a new planning session.
func (m *Metrics) RecordSessionCreated() {
	if m != nil {
		m.sessionsCreated.Add(1)
	}
}

var staticRoutes = map[string]bool{
	"/":                true,
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/openapi.yaml":    true,
	"/api/v1/sessions": true,
	"/api/v1/extract":  true,
	"/api/v1/geocode":  true,
}

const sessionsPrefix = "/api/v1/sessions/"

// Route maps a request path to the route that served it. The
// session ID segment becomes {id}; unknown paths collapse into "other".
func Route(path string) string {
	if staticRoutes[path] {
		return path
	}
	rest, ok := strings.CutPrefix(path, sessionsPrefix)
	if !ok || rest == "" {
		return "other"
	}
	_, sub, _ := strings.Cut(rest, "/")
	switch sub {
	case "":
		return sessionsPrefix + "{id}"
	case "trip", "messages", "itinerary", "itinerary.ics", "back", "reset":
		return sessionsPrefix + "{id}/" + sub
	}
	return "other"
}

// Handler returns an http.Handler that serves Prometheus-format metrics.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		m.Render(w)
	})
}

// Render writes every metric in the Prometheus text exposition format.
func (m *Metrics) Render(w io.Writer) {
	p := promWriter{w: w, ns: m.namespace}

	p.header("info", "gauge", "Application information")
	p.sample("info", fmt.Sprintf("{version=%q}", m.version), "1")

	p.header("http_requests_total", "counter", "Total number of HTTP requests")
	m.httpRequests.write(p, "http_requests_total")
	p.header("http_request_duration_seconds", "summary", "HTTP request duration in seconds")
	m.httpDurations.write(p, "http_request_duration_seconds")

	p.header("rate_limit_requests_total", "counter", "Total rate limit decisions")
	m.rateLimit.write(p, "rate_limit_requests_total")

	p.header("active_connections", "gauge", "Current number of active HTTP connections")
	p.sample("active_connections", "", fmt.Sprint(m.activeConns.Load()))

	p.header("completions_total", "counter", "Completion service calls")
	m.completions.write(p, "completions_total")
	p.header("completion_duration_seconds", "summary", "Completion call duration in seconds")
	m.completionTimes.write(p, "completion_duration_seconds")
	p.header("completion_tokens_total", "counter", "Tokens exchanged with the completion service")
	m.tokens.write(p, "completion_tokens_total")

	p.header("extractions_total", "counter", "Replies processed by extraction strategy")
	m.extractions.write(p, "extractions_total")

	for _, c := range []struct {
		name, help string
		value      int64
	}{
		{"recommendations_extracted_total", "Recommendations extracted from replies", m.recommendationsExtracted.Load()},
		{"candidates_skipped_total", "Embedded objects skipped as malformed or incomplete", m.candidatesSkipped.Load()},
		{"stale_responses_total", "Completions discarded after a session reset", m.staleResponses.Load()},
		{"sessions_created_total", "Planning sessions created", m.sessionsCreated.Load()},
	} {
		p.header(c.name, "counter", c.help)
		p.sample(c.name, "", fmt.Sprint(c.value))
	}
}

type promWriter struct {
	w  io.Writer
	ns string
}

func (p promWriter) header(name, kind, help string) {
	_, _ = fmt.Fprintf(p.w, "# HELP %s_%s %s\n# TYPE %s_%s %s\n", p.ns, name, help, p.ns, name, kind)
}

func (p promWriter) sample(name, labels, value string) {
	_, _ = fmt.Fprintf(p.w, "%s_%s%s %s\n", p.ns, name, labels, value)
}

// labelSet renders label pairs as {a="x",b="y"}; extra pairs are appended.
func labelSet(names, values []string, extra ...string) string {
	if len(names) == 0 && len(extra) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(names)+len(extra)/2)
	for i, n := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%q", n, values[i]))
	}
	for i := 0; i+1 < len(extra); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%s=%q", extra[i], extra[i+1]))
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

const labelSep = "\x00"

// counterVec is a set of counters keyed by label values.
type counterVec struct {
	labels []string
	mu     sync.RWMutex
	series map[string]*atomic.Int64
}

func newCounterVec(labels ...string) *counterVec {
	return &counterVec{labels: labels, series: make(map[string]*atomic.Int64)}
}

func (c *counterVec) add(n int64, values ...string) {
	key := strings.Join(values, labelSep)
	c.mu.RLock()
	counter, ok := c.series[key]
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		if counter, ok = c.series[key]; !ok {
			counter = &atomic.Int64{}
			c.series[key] = counter
		}
		c.mu.Unlock()
	}
	counter.Add(n)
}

func (c *counterVec) value(values ...string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if counter, ok := c.series[strings.Join(values, labelSep)]; ok {
		return counter.Load()
	}
	return 0
}

func (c *counterVec) write(p promWriter, name string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := lo.Keys(c.series)
	slices.Sort(keys)
	for _, key := range keys {
		labels := labelSet(c.labels, strings.Split(key, labelSep))
		p.sample(name, labels, fmt.Sprint(c.series[key].Load()))
	}
}

// summaryVec keeps a ring of recent durations per label set for quantiles
// plus a cumulative sum and count.
type summaryVec struct {
	labels []string
	mu     sync.Mutex
	series map[string]*window
}

type window struct {
	samples []float64
	next    int
	sum     float64
	count   int64
}

func newSummaryVec(labels ...string) *summaryVec {
	return &summaryVec{labels: labels, series: make(map[string]*window)}
}

func (s *summaryVec) observe(d time.Duration, values ...string) {
	key := strings.Join(values, labelSep)
	s.mu.Lock()
	defer s.mu.Unlock()
	win, ok := s.series[key]
	if !ok {
		win = &window{samples: make([]float64, 0, summaryWindow)}
		s.series[key] = win
	}
	win.add(d.Seconds())
}

func (w *window) add(v float64) {
	if len(w.samples) < cap(w.samples) {
		w.samples = append(w.samples, v)
	} else {
		w.samples[w.next] = v
		w.next = (w.next + 1) % len(w.samples)
	}
	w.sum += v
	w.count++
}

// quantile interpolates linearly between the two nearest ranked samples.
func (w *window) quantile(q float64) float64 {
	if len(w.samples) == 0 {
		return 0
	}
	sorted := slices.Clone(w.samples)
	slices.Sort(sorted)
	idx := q * float64(len(sorted)-1)
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}

func (s *summaryVec) write(p promWriter, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := lo.Keys(s.series)
	slices.Sort(keys)
	for _, key := range keys {
		values := strings.Split(key, labelSep)
		win := s.series[key]
		for _, q := range summaryQuantiles {
			labels := labelSet(s.labels, values, "quantile", fmt.Sprintf("%.2f", q))
			p.sample(name, labels, fmt.Sprintf("%.6f", win.quantile(q)))
		}
		labels := labelSet(s.labels, values)
		p.sample(name+"_sum", labels, fmt.Sprintf("%.6f", win.sum))
		p.sample(name+"_count", labels, fmt.Sprint(win.count))
	}
}

// MetricsMiddleware returns an HTTP middleware that records request metrics.
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			m.IncrementActiveConnections()
			defer m.DecrementActiveConnections()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.RecordHTTPRequest(r.Method, r.URL.Path, sw.status, time.Since(start))
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RateLimitMetricsMiddleware counts allow/reject decisions of the rate
// limiter it wraps by watching for 429 responses.
func RateLimitMetricsMiddleware(m *Metrics, rateLimitEnabled bool) func(http.Handler) http.Handler {
	if m == nil || !rateLimitEnabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			if sw.status == http.StatusTooManyRequests {
				m.RecordRateLimitRejected()
			} else {
				m.RecordRateLimitAllowed()
			}
		})
	}
}
