package planning

import (
	"fmt"
	"strconv"
	"strings"

	"tripplanner/internal/domain"
)

// Fixed replies used when the completion service cannot produce one.
const (
	ChatFallbackMessage      = "I apologize, but I'm having trouble connecting to my AI services right now. Please try again in a moment."
	ItineraryFallbackMessage = "I apologize, but I'm having trouble creating your itinerary right now. Please try again in a moment."
	EmptyReplyMessage        = "I apologize, but I couldn't generate a response at the moment."

	itineraryRequest = "Please create a detailed day-by-day itinerary for my trip."
	noTripDetails    = "No specific trip details provided yet"
)

// Completion limits per call purpose.
const (
	completionTemperature = 0.7
	chatMaxTokens         = 1000
	itineraryMaxTokens    = 1500
)

// recommendationFormat is shared by both prompts so the extractor sees one
// consistent contract: flat objects inline, never in code fences.
const recommendationFormat = `When you recommend a specific place or booking, embed it inline in your reply as a single flat JSON object on one line, exactly in this shape:
{"type": "hotel|restaurant|activity|flight|transport", "name": "Name", "description": "Short description", "location": "Address or area", "cost": 120, "rating": 4.5, "image": "", "bookingUrl": ""}

Rules:
- Keep "type", "name" and "description" as the first three keys, in that order.
- Do not nest objects or arrays inside a recommendation.
- Do not wrap recommendations in code blocks or markdown fences.
- Write natural prose around the objects; they are removed before the user reads your reply.`

// TripContext renders the known trip details as a bullet list, omitting
// anything unset.
func TripContext(trip domain.TripParameters) string {
	var lines []string
	if trip.Category != domain.TripCategoryUnset {
		lines = append(lines, "Trip type: "+trip.Category.Label())
	}
	if trip.FromLocation != "" {
		lines = append(lines, "From: "+trip.FromLocation)
	}
	if trip.ToLocation != "" {
		lines = append(lines, "To: "+trip.ToLocation)
	}
	if trip.HasDates() {
		lines = append(lines, fmt.Sprintf("Dates: %s to %s", trip.StartDate, trip.EndDate))
	}
	if trip.Budget > 0 {
		lines = append(lines, "Budget: $"+formatAmount(trip.Budget))
	}
	if trip.People > 0 {
		lines = append(lines, "People: "+strconv.Itoa(trip.People))
	}
	if len(trip.Interests) > 0 {
		lines = append(lines, "Preferences: "+strings.Join(trip.Interests, ", "))
	}
	if trip.Notes != "" {
		lines = append(lines, "Notes: "+trip.Notes)
	}
	if len(lines) == 0 {
		return noTripDetails
	}
	return "- " + strings.Join(lines, "\n- ")
}

func chatSystemPrompt(trip domain.TripParameters) string {
	var sb strings.Builder
	sb.WriteString("You are a friendly, knowledgeable travel planning assistant. You help travellers shape their trip through conversation: ask about what they enjoy, suggest places to stay, eat and visit, and keep an eye on their budget.\n\n")
	sb.WriteString("## Current Trip\n\n")
	sb.WriteString(TripContext(trip))
	sb.WriteString("\n\n")
	sb.WriteString(recommendationFormat)
	sb.WriteString("\n\nKeep replies concise and conversational. Recommend at most four places per reply.\n")
	return sb.String()
}

func itinerarySystemPrompt(trip domain.TripParameters) string {
	var sb strings.Builder
	sb.WriteString("You are a travel planning assistant that turns a conversation into a concrete day-by-day itinerary.\n\n")
	sb.WriteString("## Current Trip\n\n")
	sb.WriteString(TripContext(trip))
	sb.WriteString("\n\n")
	sb.WriteString(recommendationFormat)
	sb.WriteString("\n\nList the itinerary in chronological order with four recommendations per day: morning, midday, afternoon and evening. Use the conversation so far to respect the traveller's preferences and budget. Start with a one-sentence summary of the trip.\n")
	return sb.String()
}

// formatAmount prints whole amounts without decimals.
func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
