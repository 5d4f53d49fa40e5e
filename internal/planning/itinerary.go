package planning

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"tripplanner/internal/domain"
)

// fallbackSchedule is used when no recommendations are available. The
// flight location is filled in from the trip origin.
var fallbackSchedule = []domain.Recommendation{
	{Type: domain.CategoryFlight, Name: "Departure Flight", Description: "Flight to your destination", Cost: 250, Rating: 4.5},
	{Type: domain.CategoryHotel, Name: "Hotel Check-in", Location: "Downtown Hotel", Description: "Check in and settle into your accommodation", Cost: 150, Rating: 4.8},
	{Type: domain.CategoryActivity, Name: "City Tour", Location: "Historic District", Description: "Guided walk through the main sights", Cost: 45, Rating: 4.6},
	{Type: domain.CategoryRestaurant, Name: "Local Restaurant", Location: "Seaside Bistro", Description: "Dinner featuring local cuisine", Cost: 35, Rating: 4.7},
}

// Materialize lays recommendations out as a day schedule. Position alone
// decides placement: item i lands on day i/4+1 in slot i%4. With no
// recommendations the fixed four-item fallback for day 1 is used.
func Materialize(recs []domain.Recommendation, trip domain.TripParameters) domain.Itinerary {
	fallback := len(recs) == 0
	if fallback {
		recs = fallbackRecommendations(trip)
	}

	items := lo.Map(recs, func(r domain.Recommendation, i int) domain.ItineraryItem {
		return domain.ItineraryItem{
			ID:          uuid.New().String(),
			Day:         i/domain.ItemsPerDay + 1,
			Slot:        domain.DaySlots[i%domain.ItemsPerDay],
			Title:       r.Name,
			Location:    r.Location,
			Description: r.Description,
			Type:        r.Type,
			Cost:        r.Cost,
			Rating:      r.Rating,
			Image:       r.Image,
			BookingURL:  r.BookingURL,
		}
	})

	return domain.Itinerary{
		Trip:        trip.Clone(),
		Items:       items,
		Days:        groupByDay(items),
		TotalCost:   lo.SumBy(items, func(it domain.ItineraryItem) float64 { return it.Cost }),
		TotalDays:   max(1, lo.Max(lo.Map(items, func(it domain.ItineraryItem, _ int) int { return it.Day }))),
		Fallback:    fallback,
		GeneratedAt: time.Now().UTC(),
	}
}

func fallbackRecommendations(trip domain.TripParameters) []domain.Recommendation {
	recs := make([]domain.Recommendation, len(fallbackSchedule))
	copy(recs, fallbackSchedule)

	origin := strings.TrimSpace(trip.FromLocation)
	if origin == "" {
		origin = "Departure"
	}
	recs[0].Location = origin + " Airport"

	for i := range recs {
		recs[i].Image = domain.DefaultImage(recs[i].Type)
		recs[i].BookingURL = domain.DefaultBookingURL
	}
	return recs
}

// groupByDay keeps input order within each day. Items arrive sorted by day.
func groupByDay(items []domain.ItineraryItem) []domain.DayPlan {
	var days []domain.DayPlan
	for _, it := range items {
		if n := len(days); n == 0 || days[n-1].Day != it.Day {
			days = append(days, domain.DayPlan{Day: it.Day})
		}
		days[len(days)-1].Items = append(days[len(days)-1].Items, it)
	}
	return days
}
