// Package match associates free-text names with known sponsors.
package match

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"khidma/internal/core"
)

// MaxDistance is the largest edit distance still accepted as a match.
const MaxDistance = 5

// Confidence reported for screenshot matches.
const (
	ConfidenceMatched   = 0.9
	ConfidenceUnmatched = 0.5
)

// Candidate is a named record that can be matched.
type Candidate struct {
	ID   string
	Name string
}

// Result is the best candidate for a name together with its distance.
type Result struct {
	Candidate
	Distance int
}

// Distance is the Levenshtein edit distance between a and b, counted in runes.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Best returns the candidate closest to name, or false when there are no
// candidates or the closest one is more than MaxDistance edits away. Ties
// keep the earliest candidate.
func Best(name string, candidates []Candidate) (Result, bool) {
	if len(candidates) == 0 {
		return Result{}, false
	}
	name = strings.TrimSpace(name)
	best := Result{Distance: -1}
	for _, c := range candidates {
		d := Distance(name, strings.TrimSpace(c.Name))
		if best.Distance < 0 || d < best.Distance {
			best = Result{Candidate: c, Distance: d}
		}
	}
	if best.Distance > MaxDistance {
		return Result{}, false
	}
	return best, true
}

// Candidates converts sponsors into match candidates.
func Candidates(sponsors []core.Sponsor) []Candidate {
	out := make([]Candidate, 0, len(sponsors))
	for _, s := range sponsors {
		out = append(out, Candidate{ID: s.ID, Name: s.Name})
	}
	return out
}

// Sponsor finds the sponsor named on a payment screenshot: an exact name, or
// one name containing the other. It reports the confidence shown next to the
// suggestion.
func Sponsor(senderName string, sponsors []core.Sponsor) (*core.Sponsor, float64) {
	sender := strings.TrimSpace(senderName)
	if sender == "" {
		return nil, ConfidenceUnmatched
	}
	for i := range sponsors {
		name := sponsors[i].Name
		if name == "" {
			continue
		}
		if name == sender || strings.Contains(name, sender) || strings.Contains(sender, name) {
			return &sponsors[i], ConfidenceMatched
		}
	}
	return nil, ConfidenceUnmatched
}
