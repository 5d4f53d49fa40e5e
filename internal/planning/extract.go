package planning

import (
	"cmp"
	"encoding/json"
	"math"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"tripplanner/internal/domain"
	"tripplanner/internal/observability"
)

// Extraction strategies, in priority order.
const (
	StrategyNone   = ""
	StrategyFenced = "fenced"
	StrategyStrict = "strict"
	StrategyLoose  = "loose"
)

var (
	// fencedJSONRe matches fenced code blocks tagged as JSON.
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	// typeKeyRe matches a literal "type" key.
	typeKeyRe = regexp.MustCompile(`"type"\s*:`)
)

// Extraction is the detailed result of a single Extract call.
type Extraction struct {
	Recommendations []domain.Recommendation
	// Strategy names the strategy that produced the records, or StrategyNone.
	Strategy string
	// Skipped counts candidates that failed to parse or validate.
	Skipped int
}

// Extractor pulls travel recommendations out of free-form model text.
// It is safe for concurrent use.
type Extractor struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger observability.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithRand sets the random source used for defaulted cost and rating.
func WithRand(r *rand.Rand) ExtractorOption {
	return func(e *Extractor) { e.rng = r }
}

// WithExtractorLogger sets the logger for skipped candidates.
func WithExtractorLogger(l observability.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor seeded from the clock unless WithRand is
// given.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	seed := uint64(time.Now().UnixNano())
	e := &Extractor{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = observability.NewLogger(observability.DefaultConfig())
	}
	e.logger = e.logger.WithComponent("extractor")
	return e
}

// Extract returns the valid recommendations embedded in text, in order of
// appearance. An empty result is not an error.
func (e *Extractor) Extract(text string) []domain.Recommendation {
	return e.ExtractDetailed(text).Recommendations
}

// ExtractDetailed runs the strategies in priority order and stops at the
// first one that yields at least one valid record.
func (e *Extractor) ExtractDetailed(text string) Extraction {
	objs := scanObjects(text)
	typed := typeKeyIndex(text)
	strategies := []struct {
		name string
		find func() []candidate
	}{
		{StrategyFenced, func() []candidate { return fencedCandidates(text) }},
		{StrategyStrict, func() []candidate {
			return nestedCandidates(text, objs, func(o object) bool {
				return hasLeadingStringKeys(text[o.start:o.end], "type", "name", "description")
			})
		}},
		{StrategyLoose, func() []candidate {
			return nestedCandidates(text, objs, typed.contains)
		}},
	}

	var skipped int
	for _, st := range strategies {
		recs, n := e.parseAll(st.find(), 0)
		skipped += n
		if len(recs) > 0 {
			return Extraction{Recommendations: recs, Strategy: st.name, Skipped: skipped}
		}
	}
	return Extraction{Recommendations: []domain.Recommendation{}, Skipped: skipped}
}

// maxCandidateDepth bounds how far parseAll descends into objects that did
// not yield a record themselves.
const maxCandidateDepth = 8

// candidate is one piece of JSON text to try. When an eligible candidate
// fails, or it was not eligible, its inner objects are tried instead.
type candidate struct {
	text     string
	eligible bool
	inner    func() []candidate
}

// fencedCandidates returns the contents of ```json blocks. A block holding
// an array contributes each element.
func fencedCandidates(text string) []candidate {
	var out []candidate
	add := func(body string) {
		out = append(out, candidate{text: body, eligible: true})
	}
	for _, m := range fencedJSONRe.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "[") {
			var items []json.RawMessage
			if err := json.Unmarshal([]byte(body), &items); err == nil {
				for _, it := range items {
					add(string(it))
				}
				continue
			}
		}
		add(body)
	}
	return out
}

// nestedCandidates turns scanned objects into candidates; accept decides
// which objects the strategy tries directly. The strict strategy accepts
// objects whose first three keys are type, name and description with
// string values; the loose one accepts any object holding a "type" key.
func nestedCandidates(text string, objs []object, accept func(object) bool) []candidate {
	out := make([]candidate, len(objs))
	for i, o := range objs {
		out[i] = candidate{
			text:     text[o.start:o.end],
			eligible: accept(o),
			inner:    func() []candidate { return nestedCandidates(text, o.inner, accept) },
		}
	}
	return out
}

// typeKeys holds the offsets of every "type" key in a text, in order.
type typeKeys [][]int

func typeKeyIndex(text string) typeKeys {
	return typeKeys(typeKeyRe.FindAllStringIndex(text, -1))
}

// contains reports whether a "type" key lies entirely inside o. Matches do
// not overlap, so only the first match starting inside o can fit.
func (k typeKeys) contains(o object) bool {
	i, _ := slices.BinarySearchFunc(k, o.start, func(m []int, start int) int {
		return cmp.Compare(m[0], start)
	})
	return i < len(k) && k[i][1] <= o.end
}

func hasLeadingStringKeys(candidate string, keys ...string) bool {
	dec := json.NewDecoder(strings.NewReader(candidate))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return false
	}
	for _, want := range keys {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if key, ok := tok.(string); !ok || key != want {
			return false
		}
		val, err := dec.Token()
		if err != nil {
			return false
		}
		if _, ok := val.(string); !ok {
			return false
		}
	}
	return true
}

// parseAll returns the records found in cands, in order. A candidate that
// does not yield a record is replaced by whatever its inner objects yield;
// it counts as skipped only when that is nothing.
func (e *Extractor) parseAll(cands []candidate, depth int) ([]domain.Recommendation, int) {
	var (
		recs    []domain.Recommendation
		skipped int
	)
	for _, c := range cands {
		if c.eligible {
			if rec, ok := e.parse(c.text); ok {
				recs = append(recs, rec)
				continue
			}
		}
		if c.inner != nil && depth < maxCandidateDepth {
			inner, n := e.parseAll(c.inner(), depth+1)
			skipped += n
			if len(inner) > 0 {
				recs = append(recs, inner...)
				continue
			}
		}
		if c.eligible {
			skipped++
		}
	}
	return recs, skipped
}

func (e *Extractor) parse(candidate string) (domain.Recommendation, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		e.logger.Debug("skipping malformed candidate", "error", err, "length", len(candidate))
		return domain.Recommendation{}, false
	}

	typ, okType := stringField(raw, "type")
	name, okName := stringField(raw, "name")
	desc, okDesc := stringField(raw, "description")
	if !okType || !okName || !okDesc {
		e.logger.Debug("skipping incomplete candidate", "has_type", okType, "has_name", okName, "has_description", okDesc)
		return domain.Recommendation{}, false
	}

	rec := domain.Recommendation{
		Type:        domain.Category(typ),
		Name:        name,
		Description: desc,
		Location:    domain.DefaultLocation,
		BookingURL:  domain.DefaultBookingURL,
	}
	if v, ok := stringField(raw, "location"); ok {
		rec.Location = v
	}
	if v, ok := stringField(raw, "image"); ok {
		rec.Image = v
	} else {
		rec.Image = domain.DefaultImage(rec.Type)
	}
	if v, ok := stringField(raw, "bookingUrl"); ok {
		rec.BookingURL = v
	}

	if v, ok := numberField(raw, "cost"); ok {
		rec.Cost = v
	} else {
		rec.Cost = e.defaultCost()
	}
	if v, ok := numberField(raw, "rating"); ok {
		rec.Rating = v
	} else {
		rec.Rating = e.defaultRating()
	}
	return rec, true
}

// defaultCost returns an integer in [50, 250).
func (e *Extractor) defaultCost() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(50 + e.rng.IntN(200))
}

// defaultRating returns a value in [3.0, 5.0) with one decimal place.
func (e *Extractor) defaultRating() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return math.Floor((3+e.rng.Float64()*2)*10) / 10
}

// stringField returns the value of a string field exactly as given. Blank
// values count as missing.
func stringField(raw map[string]any, key string) (string, bool) {
	s, ok := raw[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// numberField reads a non-negative number. Numeric strings such as "$80"
// or "1,200" are accepted.
func numberField(raw map[string]any, key string) (float64, bool) {
	var f float64
	switch v := raw[key].(type) {
	case float64:
		f = v
	case string:
		s := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(v))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}
