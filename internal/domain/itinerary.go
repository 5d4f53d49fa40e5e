package domain

import "time"

// TimeSlot is a fixed part of the day an itinerary item is scheduled in.
type TimeSlot struct {
	Name string `json:"name"`
	Time string `json:"time"` // HH:MM, local to the destination
}

// ItemsPerDay is how many items fill one itinerary day.
const ItemsPerDay = 4

// DaySlots is the cyclic schedule items are assigned to by position.
var DaySlots = [ItemsPerDay]TimeSlot{
	{Name: "morning", Time: "09:00"},
	{Name: "midday", Time: "12:00"},
	{Name: "afternoon", Time: "14:00"},
	{Name: "evening", Time: "19:00"},
}

// ItineraryItem is a recommendation placed on a day and time slot.
type ItineraryItem struct {
	ID          string   `json:"id"`
	Day         int      `json:"day"`
	Slot        TimeSlot `json:"slot"`
	Title       string   `json:"title"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Type        Category `json:"type"`
	Cost        float64  `json:"cost"`
	Rating      float64  `json:"rating"`
	Image       string   `json:"image"`
	BookingURL  string   `json:"bookingUrl"`
}

// DayPlan groups the items of one day in schedule order.
type DayPlan struct {
	Day   int             `json:"day"`
	Items []ItineraryItem `json:"items"`
}

// Itinerary is a complete, materialized schedule. It is rebuilt from
// scratch on every generation.
type Itinerary struct {
	Trip        TripParameters  `json:"trip"`
	Items       []ItineraryItem `json:"items"`
	Days        []DayPlan       `json:"days"`
	TotalCost   float64         `json:"total_cost"`
	TotalDays   int             `json:"total_days"`
	Fallback    bool            `json:"fallback"`
	Summary     string          `json:"summary,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Place is a resolved location label.
type Place struct {
	Label     string  `json:"label"`
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	// Found is false when the label was unknown and the default was used.
	Found    bool   `json:"found"`
	Timezone string `json:"timezone,omitempty"`
}

// Map display modes.
const (
	MapModeInteractive = "interactive"
	MapModePlaceholder = "placeholder"
)

// MapView is what the visualization needs to draw the route.
type MapView struct {
	Mode        string `json:"mode"`
	Origin      *Place `json:"origin,omitempty"`
	Destination *Place `json:"destination,omitempty"`
}

// Visualization is the payload of the visualizing phase.
type Visualization struct {
	SessionID string         `json:"session_id"`
	Trip      TripParameters `json:"trip"`
	Itinerary Itinerary      `json:"itinerary"`
	Map       MapView        `json:"map"`
	Notice    string         `json:"notice,omitempty"`
}

// ItineraryResponse is returned by a generate request. On success
// Visualization is set. When the completion service failed, Message holds
// the apology appended to the transcript and the phase is unchanged.
type ItineraryResponse struct {
	Phase         SessionPhase   `json:"phase"`
	Visualization *Visualization `json:"visualization,omitempty"`
	Message       *ChatMessage   `json:"message,omitempty"`
	Notice        string         `json:"notice,omitempty"`
}
