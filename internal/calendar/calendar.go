// Package calendar exports itineraries as iCalendar documents.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tripplanner/internal/domain"
)

const productID = "-//tripplanner//itinerary//EN"

// slotDurations is the length of an event per time slot name.
var slotDurations = map[string]time.Duration{
	"morning":   3 * time.Hour,
	"midday":    2 * time.Hour,
	"afternoon": 4 * time.Hour,
	"evening":   2 * time.Hour,
}

const defaultDuration = 2 * time.Hour

// Export renders one VEVENT per itinerary item. Day 1 is the trip start
// date, or the generation date when the trip has none. Slot times are read
// in loc; a nil loc means UTC.
func Export(it domain.Itinerary, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	anchor, err := anchorDate(it, loc)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(calendarName(it.Trip))
	cal.SetXWRTimezone(loc.String())

	stamp := it.GeneratedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, item := range it.Items {
		start, err := slotStart(anchor, item, loc)
		if err != nil {
			return "", err
		}
		dur, ok := slotDurations[item.Slot.Name]
		if !ok {
			dur = defaultDuration
		}

		ev := cal.AddEvent(item.ID + "@tripplanner")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(dur))
		ev.SetSummary(item.Title)
		if item.Location != "" {
			ev.SetLocation(item.Location)
		}
		if item.Description != "" {
			ev.SetDescription(item.Description)
		}
		if item.BookingURL != "" && item.BookingURL != domain.DefaultBookingURL {
			ev.SetURL(item.BookingURL)
		}
	}
	return cal.Serialize(), nil
}

func anchorDate(it domain.Itinerary, loc *time.Location) (time.Time, error) {
	if it.Trip.StartDate != "" {
		d, err := time.ParseInLocation(domain.DateLayout, it.Trip.StartDate, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse start date %q: %w", it.Trip.StartDate, err)
		}
		return d, nil
	}
	gen := it.GeneratedAt
	if gen.IsZero() {
		gen = time.Now()
	}
	gen = gen.In(loc)
	return time.Date(gen.Year(), gen.Month(), gen.Day(), 0, 0, 0, 0, loc), nil
}

func slotStart(anchor time.Time, item domain.ItineraryItem, loc *time.Location) (time.Time, error) {
	clock, err := time.Parse("15:04", item.Slot.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("item %s: parse slot time %q: %w", item.ID, item.Slot.Time, err)
	}
	day := anchor.AddDate(0, 0, max(item.Day, 1)-1)
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// calendarName titles the calendar after the trip, e.g. "Weekend Getaway
// to Lisbon".
func calendarName(trip domain.TripParameters) string {
	kind := "Trip"
	if trip.Category != domain.TripCategoryUnset {
		kind = cases.Title(language.English).String(trip.Category.Label())
	}
	if to := strings.TrimSpace(trip.ToLocation); to != "" {
		return kind + " to " + to
	}
	return kind + " itinerary"
}
