package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/internal/domain"
	"tripplanner/internal/planning"
)

func sampleRecs(n int) []domain.Recommendation {
	recs := make([]domain.Recommendation, n)
	for i := range recs {
		recs[i] = domain.Recommendation{
			Type:        domain.CategoryActivity,
			Name:        "Stop",
			Description: "Something to do",
			Location:    "Old Town",
			BookingURL:  "#",
		}
	}
	recs[0].BookingURL = "https://tickets.example/1"
	return recs
}

func TestExportOneEventPerItem(t *testing.T) {
	trip := domain.TripParameters{Category: domain.TripCategoryVacation, ToLocation: "Paris", StartDate: "2026-05-01"}
	it := planning.Materialize(sampleRecs(6), trip)

	out, err := Export(it, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 6, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "X-WR-CALNAME:Vacation to Paris")
	assert.Contains(t, out, "SUMMARY:Stop")
	assert.Contains(t, out, "LOCATION:Old Town")
	assert.Contains(t, out, "URL:https://tickets.example/1")
	assert.Equal(t, 1, strings.Count(out, "URL:"), "the # sentinel is not exported")

	// Day 1 morning, day 2 midday.
	assert.Contains(t, out, "DTSTART:20260501T090000Z")
	assert.Contains(t, out, "DTEND:20260501T120000Z")
	assert.Contains(t, out, "DTSTART:20260502T120000Z")
	assert.Contains(t, out, "DTEND:20260502T140000Z")
}

func TestExportUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	trip := domain.TripParameters{ToLocation: "Paris", StartDate: "2026-05-01"}
	it := planning.Materialize(sampleRecs(1), trip)

	out, err := Export(it, loc)
	require.NoError(t, err)
	// 09:00 CEST is 07:00 UTC.
	assert.Contains(t, out, "DTSTART:20260501T070000Z")
	assert.Contains(t, out, "X-WR-TIMEZONE:Europe/Paris")
}

func TestExportWithoutStartDate(t *testing.T) {
	it := planning.Materialize(nil, domain.TripParameters{})
	it.GeneratedAt = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	out, err := Export(it, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "DTSTART:20260314T090000Z")
	assert.Contains(t, out, "DTSTART:20260314T190000Z")
	assert.Contains(t, out, "X-WR-CALNAME:Trip itinerary")
}

func TestExportBadStartDate(t *testing.T) {
	it := planning.Materialize(nil, domain.TripParameters{StartDate: "soon"})
	_, err := Export(it, time.UTC)
	assert.Error(t, err)
}

func TestCalendarName(t *testing.T) {
	assert.Equal(t, "Weekend Getaway to Lisbon", calendarName(domain.TripParameters{
		Category:   domain.TripCategoryWeekendGetaway,
		ToLocation: "Lisbon",
	}))
	assert.Equal(t, "Trip to Oslo", calendarName(domain.TripParameters{ToLocation: "Oslo"}))
}
