package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"tripplanner/internal/api"
	"tripplanner/internal/domain"
	"tripplanner/internal/planning"
	"tripplanner/internal/planning/llm/llmtest"
	"tripplanner/internal/testutil"
)

const chatReply = `Try these: {"type":"hotel","name":"Hotel Lumiere","description":"Boutique stay","location":"Le Marais","cost":180,"rating":4.6} ` +
	`and {"type":"restaurant","name":"Chez Marie","description":"Bistro classics","location":"Montmartre","cost":45,"rating":4.4}. Enjoy!`

const itineraryReply = `Here is your plan.
{"type":"activity","name":"Louvre","description":"Art","location":"Rue de Rivoli","cost":22,"rating":4.8}
{"type":"restaurant","name":"Le Cinq","description":"Dinner","location":"8th","cost":150,"rating":4.9}
{"type":"activity","name":"Seine cruise","description":"Boat","location":"Pont Neuf","cost":35,"rating":4.5}
{"type":"activity","name":"Orsay","description":"Impressionists","location":"Left Bank","cost":16,"rating":4.7}
{"type":"hotel","name":"Hotel Lumiere","description":"Stay","location":"Le Marais","cost":180,"rating":4.6}`

func createConversing(t *testing.T, ts *testutil.TestServerComponents) domain.SessionView {
	t.Helper()
	resp := ts.Do(t, http.MethodPost, "/api/v1/sessions", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusCreated)
	var view domain.SessionView
	testutil.ReadJSONResponse(t, resp, &view)

	trip := domain.TripParameters{
		Category:     domain.TripCategoryVacation,
		FromLocation: "Boston",
		ToLocation:   "Paris",
		StartDate:    "2026-05-01",
		EndDate:      "2026-05-03",
		People:       2,
		Interests:    []string{"food", " museums "},
	}
	resp = ts.Do(t, http.MethodPut, "/api/v1/sessions/"+view.ID+"/trip", trip)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	testutil.ReadJSONResponse(t, resp, &view)
	if view.Phase != domain.PhaseConversing {
		t.Fatalf("expected conversing after trip update, got %s", view.Phase)
	}
	return view
}

func TestSessionLifecycle(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.TestServerConfig{
		Provider: llmtest.New(chatReply, itineraryReply),
		MapToken: "pk.test",
	})

	view := createConversing(t, ts)
	if len(view.Transcript) != 1 || !strings.Contains(view.Transcript[0].Content, "Paris") {
		t.Fatalf("expected welcome message, got %+v", view.Transcript)
	}
	if got := strings.Join(view.Trip.Interests, ","); got != "food,museums" {
		t.Fatalf("expected normalized interests, got %q", got)
	}

	// Chat turn.
	resp := ts.Do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/messages", domain.ChatRequest{Message: "Where should we stay?"})
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	var chat domain.ChatResponse
	testutil.ReadJSONResponse(t, resp, &chat)
	if len(chat.Recommendations) != 2 || chat.Notice != "" {
		t.Fatalf("unexpected chat response %+v", chat)
	}
	if strings.Contains(chat.Message.Content, "{") || !strings.Contains(chat.Message.Content, "Enjoy!") {
		t.Fatalf("expected cleaned reply, got %q", chat.Message.Content)
	}

	// Generate.
	resp = ts.Do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/itinerary", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	var gen domain.ItineraryResponse
	testutil.ReadJSONResponse(t, resp, &gen)
	if gen.Phase != domain.PhaseVisualizing || gen.Visualization == nil {
		t.Fatalf("unexpected generate response %+v", gen)
	}
	it := gen.Visualization.Itinerary
	if len(it.Items) != 5 || it.TotalDays != 2 || it.TotalCost != 403 {
		t.Fatalf("unexpected itinerary: items=%d days=%d cost=%v", len(it.Items), it.TotalDays, it.TotalCost)
	}
	if gen.Visualization.Map.Mode != domain.MapModeInteractive || gen.Visualization.Map.Destination.Name != "Paris" {
		t.Fatalf("unexpected map %+v", gen.Visualization.Map)
	}

	// Show and export.
	resp = ts.Do(t, http.MethodGet, "/api/v1/sessions/"+view.ID+"/itinerary", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	_ = resp.Body.Close()

	resp = ts.Do(t, http.MethodGet, "/api/v1/sessions/"+view.ID+"/itinerary.ics", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	testutil.AssertHeader(t, resp, "Content-Type", "text/calendar; charset=utf-8")
	ics := testutil.ReadBody(t, resp)
	if n := strings.Count(ics, "BEGIN:VEVENT"); n != 5 {
		t.Fatalf("expected 5 events, got %d", n)
	}

	// Back, reset, delete.
	resp = ts.Do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/back", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	testutil.ReadJSONResponse(t, resp, &view)
	if view.Phase != domain.PhaseConversing || !view.HasItinerary {
		t.Fatalf("expected conversing with itinerary kept, got %s %v", view.Phase, view.HasItinerary)
	}

	resp = ts.Do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/reset", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	testutil.ReadJSONResponse(t, resp, &view)
	if view.Phase != domain.PhaseCollecting || len(view.Transcript) != 0 || len(view.Recommendations) != 0 {
		t.Fatalf("expected cleared session, got %+v", view)
	}

	resp = ts.Do(t, http.MethodDelete, "/api/v1/sessions/"+view.ID, nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusNoContent)
	_ = resp.Body.Close()

	resp = ts.Do(t, http.MethodGet, "/api/v1/sessions/"+view.ID, nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusNotFound)
	_ = resp.Body.Close()
}

func TestListSessions(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())
	for i := 0; i < 3; i++ {
		resp := ts.Do(t, http.MethodPost, "/api/v1/sessions", nil)
		testutil.AssertStatus(t, resp.StatusCode, http.StatusCreated)
		_ = resp.Body.Close()
	}
	resp := ts.Do(t, http.MethodGet, "/api/v1/sessions", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	var list struct {
		Items []domain.SessionView `json:"items"`
		Total int                  `json:"total"`
	}
	testutil.ReadJSONResponse(t, resp, &list)
	if list.Total != 3 || len(list.Items) != 3 {
		t.Fatalf("expected 3 sessions, got %d/%d", list.Total, len(list.Items))
	}
}

func TestUpdateTripValidation(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())
	resp := ts.Do(t, http.MethodPost, "/api/v1/sessions", nil)
	var view domain.SessionView
	testutil.ReadJSONResponse(t, resp, &view)

	tests := []struct {
		name string
		body any
	}{
		{"bad category", map[string]any{"category": "cruise"}},
		{"bad date", map[string]any{"start_date": "May 1st"}},
		{"end before start", map[string]any{"start_date": "2026-05-03", "end_date": "2026-05-01"}},
		{"negative people", map[string]any{"people": -2}},
		{"unknown field", map[string]any{"destination": "Rome"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.Do(t, http.MethodPut, "/api/v1/sessions/"+view.ID+"/trip", tt.body)
			testutil.AssertStatus(t, resp.StatusCode, http.StatusBadRequest)
			_ = resp.Body.Close()
		})
	}
}

func TestPhaseConflicts(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())
	resp := ts.Do(t, http.MethodPost, "/api/v1/sessions", nil)
	var view domain.SessionView
	testutil.ReadJSONResponse(t, resp, &view)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/itinerary"},
		{http.MethodGet, "/itinerary.ics"},
		{http.MethodPost, "/itinerary"},
		{http.MethodPost, "/back"},
	} {
		t.Run(tc.method+tc.path, func(t *testing.T) {
			resp := ts.Do(t, tc.method, "/api/v1/sessions/"+view.ID+tc.path, nil)
			testutil.AssertStatus(t, resp.StatusCode, http.StatusConflict)
			_ = resp.Body.Close()
		})
	}

	resp = ts.Do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/messages", domain.ChatRequest{Message: "hello"})
	testutil.AssertStatus(t, resp.StatusCode, http.StatusConflict)
	_ = resp.Body.Close()
}

func TestUnknownSession(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())
	resp := ts.Do(t, http.MethodPost, "/api/v1/sessions/missing/messages", domain.ChatRequest{Message: "hi"})
	testutil.AssertStatus(t, resp.StatusCode, http.StatusNotFound)
	_ = resp.Body.Close()
}

func TestCompletionFailureNotices(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.TestServerConfig{
		Provider: llmtest.Failing(errors.New("upstream 503")),
	})
	view := createConversing(t, ts)

	resp := ts.Do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/messages", domain.ChatRequest{Message: "Any tips?"})
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	var chat domain.ChatResponse
	testutil.ReadJSONResponse(t, resp, &chat)
	if chat.Message.Content != planning.ChatFallbackMessage || chat.Notice == "" {
		t.Fatalf("expected fallback reply with notice, got %+v", chat)
	}

	resp = ts.Do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/itinerary", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	var gen domain.ItineraryResponse
	testutil.ReadJSONResponse(t, resp, &gen)
	if gen.Phase != domain.PhaseConversing || gen.Visualization != nil || gen.Message == nil {
		t.Fatalf("expected apology without visualization, got %+v", gen)
	}
	if gen.Message.Content != planning.ItineraryFallbackMessage || gen.Notice == "" {
		t.Fatalf("unexpected failure message %+v", gen)
	}
}

func TestExtractEndpoint(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())

	resp := ts.Do(t, http.MethodPost, "/api/v1/extract", domain.ExtractRequest{Text: chatReply})
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	var out domain.ExtractResponse
	testutil.ReadJSONResponse(t, resp, &out)
	if len(out.Recommendations) != 2 || out.Recommendations[0].Name != "Hotel Lumiere" {
		t.Fatalf("unexpected recommendations %+v", out.Recommendations)
	}
	if out.Cleaned != "Try these: and. Enjoy!" {
		t.Fatalf("unexpected cleaned text %q", out.Cleaned)
	}

	resp = ts.Do(t, http.MethodPost, "/api/v1/extract", domain.ExtractRequest{Text: "   "})
	testutil.AssertStatus(t, resp.StatusCode, http.StatusBadRequest)
	_ = resp.Body.Close()
}

func TestGeocodeEndpoint(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())

	resp := ts.Do(t, http.MethodGet, "/api/v1/geocode?q=tokyo,%20japan", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	var place domain.Place
	testutil.ReadJSONResponse(t, resp, &place)
	if !place.Found || place.Name != "Tokyo" || place.Label != "tokyo, japan" {
		t.Fatalf("unexpected place %+v", place)
	}

	resp = ts.Do(t, http.MethodGet, "/api/v1/geocode?q=Atlantis", nil)
	testutil.ReadJSONResponse(t, resp, &place)
	if place.Found || place.Name != "New York" {
		t.Fatalf("expected default place, got %+v", place)
	}

	resp = ts.Do(t, http.MethodGet, "/api/v1/geocode", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusBadRequest)
	_ = resp.Body.Close()
}

func TestRequestIDPropagates(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())
	req, err := http.NewRequest(http.MethodGet, ts.URL("/healthz"), nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Request-ID", "trip-req-1")
	resp := testutil.DoRequest(t, ts.HTTPClient(), req)
	_ = resp.Body.Close()
	testutil.AssertHeader(t, resp, "X-Request-ID", "trip-req-1")
}

func TestRateLimitedServer(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.TestServerConfig{
		EnableRateLimit: true,
		RateLimitConfig: api.RateLimitConfig{RequestsPerSecond: 1, Burst: 2},
	})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := ts.Do(t, http.MethodGet, "/healthz", nil)
		codes = append(codes, resp.StatusCode)
		_ = resp.Body.Close()
	}
	if fmt.Sprint(codes) != fmt.Sprint([]int{200, 200, 429}) {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func TestMetricsCountRequests(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.TestServerConfig{EnableMetrics: true})
	resp := ts.Do(t, http.MethodPost, "/api/v1/sessions", nil)
	_ = resp.Body.Close()

	resp = ts.Do(t, http.MethodGet, "/metrics", nil)
	testutil.AssertStatus(t, resp.StatusCode, http.StatusOK)
	body := testutil.ReadBody(t, resp)
	if !strings.Contains(body, "tripplanner_test_sessions_created_total 1") {
		t.Fatalf("expected session counter in metrics output:\n%s", body)
	}
}
