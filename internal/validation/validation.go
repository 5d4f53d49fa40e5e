// Package validation provides input validation for trip planner API requests.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"tripplanner/internal/domain"
)

// Validation error types for specific error handling.
var (
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrTooLong       = errors.New("value exceeds maximum length")
	ErrInvalidFormat = errors.New("invalid format")
	ErrOutOfRange    = errors.New("value out of range")
)

// Constraints for validation.
const (
	MaxLocationLength = 200
	MaxNotesLength    = 2000
	MaxInterests      = 20
	MaxInterestLength = 64
	MaxPeople         = 100
	MaxBudget         = 10_000_000
	MaxMessageLength  = 4000
	MaxExtractLength  = 200_000
)

// FieldError provides detailed validation error information for one field.
type FieldError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, truncate(e.Value, 50), e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// NormalizeTrip trims free-text fields, lowercases the category and
// deduplicates interests, dropping empty ones.
func NormalizeTrip(p domain.TripParameters) domain.TripParameters {
	p.Category = domain.TripCategory(strings.ToLower(strings.TrimSpace(string(p.Category))))
	p.FromLocation = strings.TrimSpace(p.FromLocation)
	p.ToLocation = strings.TrimSpace(p.ToLocation)
	p.StartDate = strings.TrimSpace(p.StartDate)
	p.EndDate = strings.TrimSpace(p.EndDate)
	p.Notes = strings.TrimSpace(p.Notes)
	if len(p.Interests) > 0 {
		p.Interests = lo.Uniq(lo.Compact(lo.Map(p.Interests, func(s string, _ int) string {
			return strings.TrimSpace(s)
		})))
	}
	if len(p.Interests) == 0 {
		p.Interests = nil
	}
	return p
}

// ValidateTrip checks a normalized trip. Every field is optional; only the
// values that are present are checked.
func ValidateTrip(p domain.TripParameters) error {
	if !domain.IsValidTripCategory(p.Category) {
		return &FieldError{
			Field:  "category",
			Value:  string(p.Category),
			Reason: "must be one of vacation, business, road-trip, weekend-getaway, day-trip",
			Err:    ErrInvalidFormat,
		}
	}
	if err := checkLength("from_location", p.FromLocation, MaxLocationLength); err != nil {
		return err
	}
	if err := checkLength("to_location", p.ToLocation, MaxLocationLength); err != nil {
		return err
	}
	if err := checkLength("notes", p.Notes, MaxNotesLength); err != nil {
		return err
	}

	start, err := parseDate("start_date", p.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", p.EndDate)
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return &FieldError{Field: "end_date", Value: p.EndDate, Reason: "must not be before start_date", Err: ErrOutOfRange}
	}

	if p.Budget < 0 || p.Budget > MaxBudget {
		return &FieldError{Field: "budget", Reason: fmt.Sprintf("must be between 0 and %d", MaxBudget), Err: ErrOutOfRange}
	}
	if p.People < 0 || p.People > MaxPeople {
		return &FieldError{Field: "people", Reason: fmt.Sprintf("must be between 0 and %d", MaxPeople), Err: ErrOutOfRange}
	}

	if len(p.Interests) > MaxInterests {
		return &FieldError{Field: "interests", Reason: fmt.Sprintf("at most %d interests", MaxInterests), Err: ErrTooLong}
	}
	for _, interest := range p.Interests {
		if err := checkLength("interests", interest, MaxInterestLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMessage checks a chat message body.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return &FieldError{Field: "message", Reason: "cannot be empty", Err: ErrEmptyValue}
	}
	return checkLength("message", text, MaxMessageLength)
}

// ValidateExtractText checks the input of a stateless extraction request.
func ValidateExtractText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &FieldError{Field: "text", Reason: "cannot be empty", Err: ErrEmptyValue}
	}
	if len(text) > MaxExtractLength {
		return &FieldError{
			Field:  "text",
			Reason: fmt.Sprintf("exceeds maximum length of %d bytes", MaxExtractLength),
			Err:    ErrTooLong,
		}
	}
	return nil
}

// ValidateLocation checks a free-form place label such as a geocoding
// query.
func ValidateLocation(field, label string) error {
	if strings.TrimSpace(label) == "" {
		return &FieldError{Field: field, Reason: "cannot be empty", Err: ErrEmptyValue}
	}
	return checkLength(field, label, MaxLocationLength)
}

func checkLength(field, value string, maxLen int) error {
	if len(value) > maxLen {
		return &FieldError{
			Field:  field,
			Value:  value,
			Reason: fmt.Sprintf("exceeds maximum length of %d characters", maxLen),
			Err:    ErrTooLong,
		}
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, &FieldError{Field: field, Value: value, Reason: "must be YYYY-MM-DD", Err: ErrInvalidFormat}
	}
	return t, nil
}

// truncate shortens a string for display in error messages.
// truncate shortens s to at most maxLen bytes, cutting on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
