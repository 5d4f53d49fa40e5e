package domain

import "time"

// SessionView is the externally visible state of a planning session.
type SessionView struct {
	ID              string           `json:"id"`
	Phase           SessionPhase     `json:"phase"`
	Trip            TripParameters   `json:"trip"`
	Transcript      []ChatMessage    `json:"transcript"`
	Recommendations []Recommendation `json:"recommendations"`
	HasItinerary    bool             `json:"has_itinerary"`
	CanGenerate     bool             `json:"can_generate"`
	Pending         bool             `json:"pending"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
