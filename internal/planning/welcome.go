package planning

import (
	"fmt"
	"strings"

	"tripplanner/internal/domain"
)

const welcomeInvitation = "Let me help you create the perfect itinerary! What kind of experience are you looking for?"

// WelcomeMessage builds the greeting that opens a conversation. Each trip
// field contributes a clause only when it is set.
func WelcomeMessage(trip domain.TripParameters) string {
	var sb strings.Builder
	sb.WriteString("Great! I see you're planning")

	if trip.Category != domain.TripCategoryUnset {
		sb.WriteString(" a " + trip.Category.Label())
	} else {
		sb.WriteString(" a trip")
	}

	from := strings.TrimSpace(trip.FromLocation)
	to := strings.TrimSpace(trip.ToLocation)
	switch {
	case from != "" && to != "":
		fmt.Fprintf(&sb, " from %s to %s", from, to)
	case to != "":
		sb.WriteString(" to " + to)
	case from != "":
		sb.WriteString(" from " + from)
	}

	if trip.HasDates() {
		fmt.Fprintf(&sb, " between %s and %s", trip.StartDate, trip.EndDate)
	}
	if trip.People > 0 {
		fmt.Fprintf(&sb, " for %d %s", trip.People, pluralize(trip.People, "person", "people"))
	}
	if trip.Budget > 0 {
		sb.WriteString(" with a budget of $" + formatAmount(trip.Budget))
	}
	sb.WriteString(".")

	if len(trip.Interests) > 0 {
		fmt.Fprintf(&sb, " You're interested in %s.", strings.Join(trip.Interests, ", "))
	}

	sb.WriteString(" " + welcomeInvitation)
	return sb.String()
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
