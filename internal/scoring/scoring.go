// Package scoring maps feature vectors to independent per-label connection
// scores and turns them into percentage distributions.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/lazypower/rapport/internal/features"
)

// Label is a connection type.
type Label string

const (
	Social       Label = "Social"
	Romantic     Label = "Romantic"
	Spiritual    Label = "Spiritual"
	Professional Label = "Professional"
)

// Labels returns every label in tie-break order.
func Labels() []Label {
	return []Label{Social, Romantic, Spiritual, Professional}
}

// ParseLabel validates a label name.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown connection type %q", s)
}

// RawScores holds one independent score in [0,1] per label. Scores are
// evidence, not probabilities: they do not sum to 1.
type RawScores map[Label]float64

// Distribution holds integer percentages per label, each derived from its own
// raw score. Entries do not sum to 100.
type Distribution map[Label]int

// Strategy scores a feature vector.
type Strategy interface {
	Score(v features.Vector) RawScores
}

// Ranked is a label with its score.
type Ranked struct {
	Label Label
	Score float64
}

// Rank orders labels by score descending. Equal scores keep tie-break order.
func Rank(raw RawScores) []Ranked {
	out := make([]Ranked, 0, 4)
	for _, l := range Labels() {
		out = append(out, Ranked{Label: l, Score: raw[l]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Normalize clamps and scales each raw score to a rounded percentage and
// picks the highest label from the unrounded clamped scores.
func Normalize(raw RawScores) (Distribution, Label) {
	dist := make(Distribution, 4)
	highest := Social
	best := math.Inf(-1)
	for _, l := range Labels() {
		s := features.Clamp01(raw[l])
		dist[l] = int(math.RoundToEven(s * 100))
		if s > best {
			best = s
			highest = l
		}
	}
	return dist, highest
}

// Classifier applies a Strategy. It is safe for concurrent use as long as the
// strategy is.
type Classifier struct {
	strategy Strategy
}

// NewClassifier wraps a strategy. A nil strategy uses the weighted default.
func NewClassifier(s Strategy) *Classifier {
	if s == nil {
		s = NewWeighted(DefaultWeights())
	}
	return &Classifier{strategy: s}
}

// Score clamps the vector and scores it.
func (c *Classifier) Score(v features.Vector) RawScores {
	raw := c.strategy.Score(v.Clamp())
	out := make(RawScores, 4)
	for _, l := range Labels() {
		out[l] = features.Clamp01(raw[l])
	}
	return out
}

// Classify returns the top label and its clamped raw score.
func (c *Classifier) Classify(v features.Vector) (Label, float64) {
	raw := c.Score(v)
	_, top := Normalize(raw)
	return top, raw[top]
}

// NewStrategy builds a strategy by name: "weighted", "profile" or
// "profile-override". Empty selects weighted.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "", "weighted":
		return NewWeighted(DefaultWeights()), nil
	case "profile":
		return NewProfile(DefaultProfiles(), false), nil
	case "profile-override":
		return NewProfile(DefaultProfiles(), true), nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", name)
	}
}
