package scoring

import (
	"math"

	"github.com/lazypower/rapport/internal/features"
)

// Derived terms usable in a Weights table alongside the six signal names.
const (
	TermLowFormality = "low_formality" // 1 - formality
	TermLowTask      = "low_task"      // 1 - task_focus
	TermLowRomantic  = "low_romantic"  // 1 - romantic_language
	TermCalm         = "calm"          // 1 - emotional_intensity
	TermMidIntensity = "mid_intensity" // 1 - 2|intensity - 0.5|, peaks at 0.5
	TermRomanticBand = "romantic_band" // 1 when 0.3 <= romantic_language <= 0.6
)

// Term is one weighted component of a label's base score.
type Term struct {
	Name   string
	Weight float64
}

// Boosts are the adjustments applied by the interaction rules.
type Boosts struct {
	// romantic > 0.6 and warmth > 0.6
	SynergyRomantic     float64
	SynergyProfessional float64
	SynergySocial       float64
	// intensity > 0.8 and romantic > 0.5
	Passion float64
	// warmth > 0.6, 0.3 <= intensity <= 0.7, task < 0.4
	Friendly float64
	// spiritual > 0.6 and 0.2 <= calm <= 0.8
	Devotion float64
	// task > 0.7, formality > 0.6, romantic < 0.3
	Business float64
}

// Weights is the coefficient table for the weighted-interaction strategy.
type Weights struct {
	Terms  map[Label][]Term
	Boosts Boosts
}

// DefaultWeights returns the tuned coefficient table.
func DefaultWeights() Weights {
	return Weights{
		Terms: map[Label][]Term{
			Romantic: {
				{features.RomanticLanguage, 0.45},
				{features.EmotionalWarmth, 0.25},
				{features.EmotionalIntensity, 0.10},
				{TermLowFormality, 0.10},
				{TermLowTask, 0.10},
			},
			Social: {
				{features.EmotionalWarmth, 0.40},
				{TermRomanticBand, 0.15},
				{TermMidIntensity, 0.20},
				{TermLowTask, 0.15},
				{TermLowFormality, 0.10},
			},
			Spiritual: {
				{features.SpiritualReference, 0.60},
				{features.EmotionalWarmth, 0.15},
				{TermCalm, 0.15},
				{features.Formality, 0.10},
			},
			Professional: {
				{features.TaskFocus, 0.50},
				{features.Formality, 0.25},
				{TermLowRomantic, 0.10},
				{TermCalm, 0.15},
			},
		},
		Boosts: Boosts{
			SynergyRomantic:     0.20,
			SynergyProfessional: -0.10,
			SynergySocial:       -0.05,
			Passion:             0.10,
			Friendly:            0.15,
			Devotion:            0.15,
			Business:            0.20,
		},
	}
}

// Weighted scores labels with a linear base sum followed by interaction rules.
type Weighted struct {
	terms  map[Label][]Term
	boosts Boosts
}

// NewWeighted copies w so later changes to the caller's table have no effect.
func NewWeighted(w Weights) *Weighted {
	terms := make(map[Label][]Term, len(w.Terms))
	for l, ts := range w.Terms {
		terms[l] = append([]Term(nil), ts...)
	}
	return &Weighted{terms: terms, boosts: w.Boosts}
}

// term evaluates a signal or derived term. Unknown names contribute 0.
func term(v features.Vector, name string) float64 {
	switch name {
	case TermLowFormality:
		return 1 - v.Formality
	case TermLowTask:
		return 1 - v.TaskFocus
	case TermLowRomantic:
		return 1 - v.RomanticLanguage
	case TermCalm:
		return 1 - v.EmotionalIntensity
	case TermMidIntensity:
		return 1 - math.Abs(v.EmotionalIntensity-0.5)*2
	case TermRomanticBand:
		if v.RomanticLanguage >= 0.3 && v.RomanticLanguage <= 0.6 {
			return 1
		}
		return 0
	}
	return v.Get(name)
}

// Score implements Strategy.
func (w *Weighted) Score(v features.Vector) RawScores {
	v = v.Clamp()
	raw := make(RawScores, 4)
	for _, l := range Labels() {
		sum := 0.0
		for _, t := range w.terms[l] {
			sum += t.Weight * term(v, t.Name)
		}
		raw[l] = sum
	}

	ew, rl, sr := v.EmotionalWarmth, v.RomanticLanguage, v.SpiritualReference
	tf, fm, ei := v.TaskFocus, v.Formality, v.EmotionalIntensity
	b := w.boosts

	if rl > 0.6 && ew > 0.6 {
		raw[Romantic] += b.SynergyRomantic
		raw[Professional] += b.SynergyProfessional
		raw[Social] += b.SynergySocial
	}
	if ei > 0.8 && rl > 0.5 {
		raw[Romantic] += b.Passion
	}
	if ew > 0.6 && ei >= 0.3 && ei <= 0.7 && tf < 0.4 {
		raw[Social] += b.Friendly
	}
	if calm := 1 - ei; sr > 0.6 && calm >= 0.2 && calm <= 0.8 {
		raw[Spiritual] += b.Devotion
	}
	if tf > 0.7 && fm > 0.6 && rl < 0.3 {
		raw[Professional] += b.Business
	}

	for l, s := range raw {
		raw[l] = features.Clamp01(s)
	}
	return raw
}
