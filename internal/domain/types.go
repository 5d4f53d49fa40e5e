// Package domain defines the trip planner data model shared across packages.
package domain

import "strings"

// TripCategory is the kind of trip being planned.
type TripCategory string

const (
	TripCategoryUnset          TripCategory = ""
	TripCategoryVacation       TripCategory = "vacation"
	TripCategoryBusiness       TripCategory = "business"
	TripCategoryRoadTrip       TripCategory = "road-trip"
	TripCategoryWeekendGetaway TripCategory = "weekend-getaway"
	TripCategoryDayTrip        TripCategory = "day-trip"
)

// IsValidTripCategory reports whether c is a known category or unset.
func IsValidTripCategory(c TripCategory) bool {
	switch c {
	case TripCategoryUnset, TripCategoryVacation, TripCategoryBusiness,
		TripCategoryRoadTrip, TripCategoryWeekendGetaway, TripCategoryDayTrip:
		return true
	}
	return false
}

// Label returns the human form used in prose, e.g. "weekend getaway".
func (c TripCategory) Label() string {
	return strings.ReplaceAll(string(c), "-", " ")
}

// Defaults applied when a trip leaves budget or party size unset.
const (
	DefaultBudget = 1000
	DefaultPeople = 2
)

// DateLayout is the calendar date format used for trip dates.
const DateLayout = "2006-01-02"

// TripParameters is what the user tells us about the trip. Every field is
// optional; zero values mean "not provided".
type TripParameters struct {
	Category     TripCategory `json:"category,omitempty"`
	FromLocation string       `json:"from_location,omitempty"`
	ToLocation   string       `json:"to_location,omitempty"`
	StartDate    string       `json:"start_date,omitempty"`
	EndDate      string       `json:"end_date,omitempty"`
	Budget       float64      `json:"budget,omitempty"`
	People       int          `json:"people,omitempty"`
	Interests    []string     `json:"interests,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

// DefaultTripParameters returns the record a session starts with and
// returns to on reset.
func DefaultTripParameters() TripParameters {
	return TripParameters{}
}

// BudgetOrDefault returns the budget, or DefaultBudget when unset.
func (p TripParameters) BudgetOrDefault() float64 {
	if p.Budget > 0 {
		return p.Budget
	}
	return DefaultBudget
}

// PeopleOrDefault returns the party size, or DefaultPeople when unset.
func (p TripParameters) PeopleOrDefault() int {
	if p.People > 0 {
		return p.People
	}
	return DefaultPeople
}

// IsUseful reports whether there is enough to start a conversation: a
// category, an origin or a destination.
func (p TripParameters) IsUseful() bool {
	return p.Category != TripCategoryUnset ||
		strings.TrimSpace(p.FromLocation) != "" ||
		strings.TrimSpace(p.ToLocation) != ""
}

// HasDates reports whether both start and end dates are set.
func (p TripParameters) HasDates() bool {
	return p.StartDate != "" && p.EndDate != ""
}

// Clone returns a deep copy.
func (p TripParameters) Clone() TripParameters {
	if p.Interests != nil {
		p.Interests = append([]string(nil), p.Interests...)
	}
	return p
}

// Equal compares two parameter sets, treating interests as a set.
func (p TripParameters) Equal(o TripParameters) bool {
	if p.Category != o.Category || p.FromLocation != o.FromLocation ||
		p.ToLocation != o.ToLocation || p.StartDate != o.StartDate ||
		p.EndDate != o.EndDate || p.Budget != o.Budget ||
		p.People != o.People || p.Notes != o.Notes {
		return false
	}
	if len(p.Interests) != len(o.Interests) {
		return false
	}
	seen := make(map[string]struct{}, len(p.Interests))
	for _, i := range p.Interests {
		seen[i] = struct{}{}
	}
	for _, i := range o.Interests {
		if _, ok := seen[i]; !ok {
			return false
		}
	}
	return true
}

// SessionPhase is the current step of the planning flow.
type SessionPhase string

const (
	PhaseCollecting  SessionPhase = "collecting"
	PhaseConversing  SessionPhase = "conversing"
	PhaseVisualizing SessionPhase = "visualizing"
)
