// Package gesture turns hand poses into debounced symbols: it holds the
// symbol vocabulary, the template matcher used when the detector reports no
// category, the majority-vote smoother and the hold-duration tracker.
package gesture

import (
	"math"
	"sort"

	"github.com/ayusman/mudra/internal/detector"
)

// DefaultTolerance is the maximum summed landmark distance for a template match.
const DefaultTolerance = 0.15

// Template is a reference hand pose for one symbol.
type Template struct {
	ID        string             // Unique identifier for the template
	Symbol    Symbol             // Symbol reported when the template matches
	Landmarks []detector.Point3D // Normalized landmarks
	Tolerance float64            // Maximum distance for a match
}

// Match represents a matching result between input and a template.
type Match struct {
	Template *Template // The matched template
	Score    float64   // Match score (0-1, higher is better)
	Distance float64   // Summed Euclidean distance between input and template
}

// StaticMatcher matches hand poses against registered templates.
// It is not safe for concurrent use.
type StaticMatcher struct {
	templates []*Template
}

// NewStaticMatcher creates a new StaticMatcher instance.
func NewStaticMatcher() *StaticMatcher {
	return &StaticMatcher{
		templates: make([]*Template, 0),
	}
}

// AddTemplate adds a template. Templates without landmarks are ignored.
func (m *StaticMatcher) AddTemplate(t *Template) {
	if t == nil || len(t.Landmarks) == 0 {
		return
	}
	if t.Tolerance <= 0 {
		t.Tolerance = DefaultTolerance
	}
	m.templates = append(m.templates, t)
}

// RemoveTemplate removes a template by its ID.
func (m *StaticMatcher) RemoveTemplate(id string) {
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered templates.
func (m *StaticMatcher) Len() int {
	return len(m.templates)
}

// Match finds matching templates for the given hand landmarks.
// Returns matches sorted by score in descending order (best matches first).
func (m *StaticMatcher) Match(hand *detector.HandLandmarks) []Match {
	if hand == nil {
		return nil
	}

	normalized := hand.Normalize()
	if normalized == nil {
		return nil
	}

	input := normalized.Points[:]

	var matches []Match
	for _, template := range m.templates {
		distance := euclideanDistance(input, template.Landmarks)
		if distance > template.Tolerance {
			continue
		}
		matches = append(matches, Match{
			Template: template,
			Score:    1.0 / (1.0 + distance),
			Distance: distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// Classify returns the symbol of the best matching template and its score.
// It returns SymbolNone and 0 when nothing matches.
func (m *StaticMatcher) Classify(hand *detector.HandLandmarks) (Symbol, float64) {
	matches := m.Match(hand)
	if len(matches) == 0 {
		return SymbolNone, 0
	}
	return matches[0].Template.Symbol, matches[0].Score
}

// euclideanDistance sums the distances between corresponding points.
func euclideanDistance(a, b []detector.Point3D) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}

	n := min(len(a), len(b))

	var total float64
	for i := 0; i < n; i++ {
		dx := a[i].X - b[i].X
		dy := a[i].Y - b[i].Y
		dz := a[i].Z - b[i].Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}

	return total
}
