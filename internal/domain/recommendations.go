package domain

import "strings"

// Category classifies a travel recommendation. Values outside the
// documented set are kept as given.
type Category string

const (
	CategoryHotel      Category = "hotel"
	CategoryRestaurant Category = "restaurant"
	CategoryActivity   Category = "activity"
	CategoryFlight     Category = "flight"
	CategoryTransport  Category = "transport"
)

// Defaults for recommendation fields the model leaves out.
const (
	DefaultLocation   = "Location not specified"
	DefaultBookingURL = "#"
)

var defaultImages = map[Category]string{
	CategoryHotel:      "https://images.unsplash.com/photo-1566073771259-6a8506099945?w=400&fit=crop",
	CategoryRestaurant: "https://images.unsplash.com/photo-1414235077428-338989a2e8c0?w=400&fit=crop",
	CategoryActivity:   "https://images.unsplash.com/photo-1449824913935-59a10b8d2000?w=400&fit=crop",
	CategoryFlight:     "https://images.unsplash.com/photo-1436491865332-7a61a109cc05?w=400&fit=crop",
	CategoryTransport:  "https://images.unsplash.com/photo-1488646953014-85cb44e25828?w=400&fit=crop",
}

// DefaultImage returns the stock image for a category, falling back to the
// activity image.
func DefaultImage(c Category) string {
	if img, ok := defaultImages[Category(strings.ToLower(strings.TrimSpace(string(c))))]; ok {
		return img
	}
	return defaultImages[CategoryActivity]
}

// Recommendation is a single structured suggestion extracted from model
// output. JSON keys follow the shape the model is asked to emit.
type Recommendation struct {
	Type        Category `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Cost        float64  `json:"cost"`
	Rating      float64  `json:"rating"`
	Image       string   `json:"image"`
	BookingURL  string   `json:"bookingUrl"`
}

// ExtractRequest is the input for the stateless extraction endpoint.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse pairs the extracted records with the cleaned prose.
type ExtractResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Cleaned         string           `json:"cleaned"`
}
