package planning

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/internal/domain"
)

func makeRecs(n int) []domain.Recommendation {
	recs := make([]domain.Recommendation, n)
	for i := range recs {
		recs[i] = domain.Recommendation{
			Type:        domain.CategoryActivity,
			Name:        fmt.Sprintf("Stop %d", i+1),
			Description: "d",
			Location:    "Somewhere",
			Cost:        10,
			Rating:      4,
		}
	}
	return recs
}

func TestMaterializeFallback(t *testing.T) {
	trip := domain.TripParameters{FromLocation: "Boston", ToLocation: "Lisbon"}
	it := Materialize(nil, trip)

	assert.True(t, it.Fallback)
	require.Len(t, it.Items, 4)
	for _, item := range it.Items {
		assert.Equal(t, 1, item.Day)
		assert.NotEmpty(t, item.ID)
		assert.NotEmpty(t, item.Image)
		assert.Equal(t, domain.DefaultBookingURL, item.BookingURL)
	}
	assert.Equal(t, "Departure Flight", it.Items[0].Title)
	assert.Equal(t, "Boston Airport", it.Items[0].Location)
	assert.Equal(t, "Hotel Check-in", it.Items[1].Title)
	assert.Equal(t, "City Tour", it.Items[2].Title)
	assert.Equal(t, "Local Restaurant", it.Items[3].Title)
	assert.Equal(t, 480.0, it.TotalCost)
	assert.Equal(t, 1, it.TotalDays)
	require.Len(t, it.Days, 1)

	noOrigin := Materialize([]domain.Recommendation{}, domain.TripParameters{})
	assert.Equal(t, "Departure Airport", noOrigin.Items[0].Location)
	assert.Equal(t, "Departure Flight", fallbackSchedule[0].Name, "fallback table must not be mutated")
	assert.Empty(t, fallbackSchedule[0].Location)
}

func TestMaterializeNineRecommendations(t *testing.T) {
	it := Materialize(makeRecs(9), domain.TripParameters{})

	assert.False(t, it.Fallback)
	require.Len(t, it.Items, 9)
	require.Len(t, it.Days, 3)
	assert.Len(t, it.Days[0].Items, 4)
	assert.Len(t, it.Days[1].Items, 4)
	assert.Len(t, it.Days[2].Items, 1)
	assert.Equal(t, 3, it.TotalDays)
	assert.Equal(t, 90.0, it.TotalCost)

	for i, item := range it.Items {
		assert.Equal(t, i/4+1, item.Day, "item %d", i)
		assert.Equal(t, domain.DaySlots[i%4], item.Slot, "item %d", i)
		assert.Equal(t, fmt.Sprintf("Stop %d", i+1), item.Title)
	}
	assert.Equal(t, "Stop 9", it.Days[2].Items[0].Title)
	assert.Equal(t, "morning", it.Days[2].Items[0].Slot.Name)
}

func TestMaterializePreservesOrderWithinDay(t *testing.T) {
	recs := makeRecs(4)
	recs[0].Type = domain.CategoryRestaurant
	recs[3].Type = domain.CategoryFlight
	it := Materialize(recs, domain.TripParameters{})

	require.Len(t, it.Days, 1)
	for i, item := range it.Days[0].Items {
		assert.Equal(t, recs[i].Name, item.Title)
	}
}

func TestMaterializeCopiesTrip(t *testing.T) {
	trip := domain.TripParameters{ToLocation: "Rome", Interests: []string{"food"}}
	it := Materialize(makeRecs(1), trip)
	trip.Interests[0] = "museums"
	assert.Equal(t, []string{"food"}, it.Trip.Interests)
}

func TestMaterializeUniqueIDs(t *testing.T) {
	it := Materialize(makeRecs(12), domain.TripParameters{})
	seen := map[string]bool{}
	for _, item := range it.Items {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
}
