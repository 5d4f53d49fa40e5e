// Package geo resolves trip location labels to coordinates from a static
// table and derives map data for the visualization.
package geo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/ringsaturn/tzf"
	"golang.org/x/text/cases"

	"tripplanner/internal/domain"
	"tripplanner/internal/observability"
)

// DefaultPlace is returned for labels the table does not know.
var DefaultPlace = domain.Place{Name: "New York", Longitude: -74.0060, Latitude: 40.7128}

type city struct {
	name     string
	lng, lat float64
}

// cities maps case-folded names to coordinates.
var cities = buildTable([]city{
	{"New York", -74.0060, 40.7128},
	{"Los Angeles", -118.2437, 34.0522},
	{"Chicago", -87.6298, 41.8781},
	{"San Francisco", -122.4194, 37.7749},
	{"Boston", -71.0589, 42.3601},
	{"Seattle", -122.3321, 47.6062},
	{"Miami", -80.1918, 25.7617},
	{"Denver", -104.9903, 39.7392},
	{"Las Vegas", -115.1398, 36.1699},
	{"Toronto", -79.3832, 43.6532},
	{"Vancouver", -123.1207, 49.2827},
	{"Mexico City", -99.1332, 19.4326},
	{"London", -0.1276, 51.5072},
	{"Paris", 2.3522, 48.8566},
	{"Rome", 12.4964, 41.9028},
	{"Barcelona", 2.1734, 41.3851},
	{"Madrid", -3.7038, 40.4168},
	{"Lisbon", -9.1393, 38.7223},
	{"Amsterdam", 4.9041, 52.3676},
	{"Berlin", 13.4050, 52.5200},
	{"Prague", 14.4378, 50.0755},
	{"Vienna", 16.3738, 48.2082},
	{"Zürich", 8.5417, 47.3769},
	{"Athens", 23.7275, 37.9838},
	{"Istanbul", 28.9784, 41.0082},
	{"Dubai", 55.2708, 25.2048},
	{"Cairo", 31.2357, 30.0444},
	{"Cape Town", 18.4241, -33.9249},
	{"Tokyo", 139.6503, 35.6762},
	{"Kyoto", 135.7681, 35.0116},
	{"Seoul", 126.9780, 37.5665},
	{"Bangkok", 100.5018, 13.7563},
	{"Singapore", 103.8198, 1.3521},
	{"Bali", 115.1889, -8.4095},
	{"Sydney", 151.2093, -33.8688},
	{"Rio de Janeiro", -43.1729, -22.9068},
	{"Buenos Aires", -58.3816, -34.6037},
	{"São Paulo", -46.6333, -23.5505},
	{"Reykjavík", -21.9426, 64.1466},
})

func buildTable(list []city) map[string]city {
	m := make(map[string]city, len(list))
	for _, c := range list {
		m[foldKey(c.name)] = c
	}
	return m
}

// foldKey normalizes a label for lookup: only the part before the first
// comma counts, so "Paris, France" finds Paris.
func foldKey(label string) string {
	if i := strings.IndexByte(label, ','); i >= 0 {
		label = label[:i]
	}
	label = strings.Join(strings.Fields(label), " ")
	return cases.Fold().String(label)
}

// Geocoder resolves labels from the static table. Results, including
// misses, are memoized. Timezones are computed from offline polygon data
// loaded on first use.
type Geocoder struct {
	memo     *cache.Cache
	ttl      time.Duration
	mapToken string
	logger   observability.Logger

	tzOnce   sync.Once
	tzFinder tzf.F
	tzErr    error

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// Option configures a Geocoder.
type Option func(*Geocoder)

// WithMapToken sets the mapping-service credential. Without it map views
// are placeholders.
func WithMapToken(token string) Option {
	return func(g *Geocoder) { g.mapToken = strings.TrimSpace(token) }
}

// WithLogger sets the geocoder's logger.
func WithLogger(l observability.Logger) Option {
	return func(g *Geocoder) { g.logger = l }
}

// New creates a geocoder whose memo entries live for ttl. Expired entries
// are swept on lookup misses, at most once per ttl.
func New(ttl time.Duration, opts ...Option) *Geocoder {
	g := &Geocoder{memo: cache.New(ttl, 0), ttl: ttl}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = observability.NewLogger(observability.DefaultConfig())
	}
	g.logger = g.logger.WithComponent("geo")
	return g
}

// Lookup resolves a label. Unknown or empty labels yield DefaultPlace with
// Found false.
func (g *Geocoder) Lookup(label string) (domain.Place, bool) {
	key := foldKey(label)
	if v, ok := g.memo.Get(key); ok {
		p := v.(domain.Place)
		p.Label = label
		return p, p.Found
	}

	p := DefaultPlace
	if c, ok := cities[key]; ok && key != "" {
		p = domain.Place{Name: c.name, Longitude: c.lng, Latitude: c.lat, Found: true}
	}
	p.Timezone = g.Timezone(p)
	g.sweep(time.Now())
	g.memo.Set(key, p, cache.DefaultExpiration)

	p.Label = label
	return p, p.Found
}

func (g *Geocoder) sweep(now time.Time) {
	g.sweepMu.Lock()
	defer g.sweepMu.Unlock()
	if now.Sub(g.lastSweep) < g.ttl {
		return
	}
	g.memo.DeleteExpired()
	g.lastSweep = now
}

// Timezone returns the IANA zone containing the place, or "" when the
// polygon data is unavailable.
func (g *Geocoder) Timezone(p domain.Place) string {
	g.tzOnce.Do(func() {
		g.tzFinder, g.tzErr = tzf.NewDefaultFinder()
		if g.tzErr != nil {
			g.logger.Warn("timezone finder unavailable", "error", g.tzErr)
		}
	})
	if g.tzErr != nil || g.tzFinder == nil {
		return ""
	}
	return g.tzFinder.GetTimezoneName(p.Longitude, p.Latitude)
}

// MapView builds the route data for a trip. Unset locations are left out.
func (g *Geocoder) MapView(_ context.Context, trip domain.TripParameters) domain.MapView {
	view := domain.MapView{Mode: domain.MapModePlaceholder}
	if g.mapToken != "" {
		view.Mode = domain.MapModeInteractive
	}
	if label := strings.TrimSpace(trip.FromLocation); label != "" {
		p, _ := g.Lookup(label)
		view.Origin = &p
	}
	if label := strings.TrimSpace(trip.ToLocation); label != "" {
		p, _ := g.Lookup(label)
		view.Destination = &p
	}
	return view
}

// Interactive reports whether a mapping credential is configured.
func (g *Geocoder) Interactive() bool {
	return g.mapToken != ""
}
