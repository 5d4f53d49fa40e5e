package planning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tripplanner/internal/domain"
)

func TestWelcomeMessage(t *testing.T) {
	tests := []struct {
		name string
		trip domain.TripParameters
		want string
	}{
		{
			name: "destination only",
			trip: domain.TripParameters{ToLocation: "Paris"},
			want: "Great! I see you're planning a trip to Paris. " + welcomeInvitation,
		},
		{
			name: "origin only",
			trip: domain.TripParameters{FromLocation: "Denver"},
			want: "Great! I see you're planning a trip from Denver. " + welcomeInvitation,
		},
		{
			name: "category only",
			trip: domain.TripParameters{Category: domain.TripCategoryWeekendGetaway},
			want: "Great! I see you're planning a weekend getaway. " + welcomeInvitation,
		},
		{
			name: "everything",
			trip: domain.TripParameters{
				Category:     domain.TripCategoryVacation,
				FromLocation: "New York",
				ToLocation:   "Paris",
				StartDate:    "2026-05-01",
				EndDate:      "2026-05-07",
				Budget:       3000,
				People:       2,
				Interests:    []string{"food", "museums"},
			},
			want: "Great! I see you're planning a vacation from New York to Paris between 2026-05-01 and 2026-05-07 for 2 people with a budget of $3000. You're interested in food, museums. " + welcomeInvitation,
		},
		{
			name: "single traveller",
			trip: domain.TripParameters{ToLocation: "Oslo", People: 1},
			want: "Great! I see you're planning a trip to Oslo for 1 person. " + welcomeInvitation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WelcomeMessage(tt.trip))
		})
	}
}

func TestWelcomeMessageOmitsUnsetClauses(t *testing.T) {
	msg := WelcomeMessage(domain.TripParameters{ToLocation: "Paris"})
	assert.Contains(t, msg, "Paris")
	for _, absent := range []string{"between", "budget", "people", "person", "interested", "vacation"} {
		assert.NotContains(t, msg, absent)
	}
	assert.True(t, strings.HasSuffix(msg, "?"))
}

func TestTripContext(t *testing.T) {
	assert.Equal(t, noTripDetails, TripContext(domain.TripParameters{}))

	got := TripContext(domain.TripParameters{
		Category:   domain.TripCategoryBusiness,
		ToLocation: "Tokyo",
		Budget:     2500.5,
		People:     1,
		Notes:      "Window seat",
	})
	assert.Equal(t, "- Trip type: business\n- To: Tokyo\n- Budget: $2500.50\n- People: 1\n- Notes: Window seat", got)
}

func TestSystemPrompts(t *testing.T) {
	trip := domain.TripParameters{ToLocation: "Lima"}
	for _, prompt := range []string{chatSystemPrompt(trip), itinerarySystemPrompt(trip)} {
		assert.Contains(t, prompt, "To: Lima")
		assert.Contains(t, prompt, `"bookingUrl"`)
		assert.Contains(t, prompt, "Do not wrap recommendations in code blocks")
	}
	assert.Contains(t, itinerarySystemPrompt(trip), "morning, midday, afternoon and evening")
}
