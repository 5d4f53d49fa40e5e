package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/internal/domain"
	"tripplanner/internal/planning/llm/llmtest"
	"tripplanner/internal/testutil"
)

const reply = `Stay here {"type":"hotel","name":"Harbor Inn","description":"Quiet","location":"Waterfront","cost":120,"rating":4.3}.`

func TestClientRoundTrip(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.TestServerConfig{Provider: llmtest.New(reply)})
	c := New(ts.Server.URL, 5*time.Second, WithHTTPClient(ts.HTTPClient()))
	ctx := context.Background()

	view, err := c.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCollecting, view.Phase)

	view, err = c.UpdateTrip(ctx, view.ID, domain.TripParameters{ToLocation: "Lisbon", People: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseConversing, view.Phase)

	chat, err := c.SendMessage(ctx, view.ID, "Where should we stay?")
	require.NoError(t, err)
	require.Len(t, chat.Recommendations, 1)
	assert.Equal(t, "Harbor Inn", chat.Recommendations[0].Name)

	gen, err := c.GenerateItinerary(ctx, view.ID)
	require.NoError(t, err)
	require.NotNil(t, gen.Visualization)
	assert.Equal(t, domain.PhaseVisualizing, gen.Phase)

	vis, err := c.Itinerary(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, gen.Visualization.Itinerary.TotalCost, vis.Itinerary.TotalCost)

	ics, err := c.ItineraryCalendar(ctx, view.ID)
	require.NoError(t, err)
	assert.Contains(t, string(ics), "BEGIN:VCALENDAR")

	back, err := c.Back(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseConversing, back.Phase)

	list, err := c.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	reset, err := c.Reset(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCollecting, reset.Phase)

	require.NoError(t, c.DeleteSession(ctx, view.ID))
	_, err = c.GetSession(ctx, view.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClientStatelessEndpoints(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())
	c := New(ts.Server.URL, 5*time.Second)
	ctx := context.Background()

	out, err := c.Extract(ctx, reply)
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, "Stay here.", out.Cleaned)

	place, err := c.Geocode(ctx, "Rio de Janeiro")
	require.NoError(t, err)
	assert.True(t, place.Found)
	assert.Equal(t, "Rio de Janeiro", place.Name)
}

func TestClientErrorBody(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.DefaultTestServerConfig())
	c := New(ts.Server.URL, 5*time.Second)
	ctx := context.Background()

	view, err := c.CreateSession(ctx)
	require.NoError(t, err)

	_, err = c.UpdateTrip(ctx, view.ID, domain.TripParameters{StartDate: "tomorrow"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "validation failed", apiErr.Message)
	assert.Contains(t, apiErr.Detail, "start_date")
}

func TestClientRetriesGet(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"label":"Oslo","name":"Oslo","found":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, WithRetries(3, time.Millisecond))
	place, err := c.Geocode(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", place.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryPost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, WithRetries(3, time.Millisecond))
	_, err := c.CreateSession(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientRetryHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	c := New(srv.URL, time.Second, WithRetries(5, time.Second))
	_, err := c.GetSession(ctx, "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
}
