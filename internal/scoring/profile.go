package scoring

import (
	"math"
	"sort"

	"github.com/lazypower/rapport/internal/features"
)

const (
	professionalTaskThreshold = 0.8
	spiritualRefThreshold     = 0.7
	softBoost                 = 0.5
	overrideConfidence        = 0.95
	overrideCap               = 0.94
)

// Profiles maps each label to reference values for a subset of signals.
type Profiles map[Label]map[string]float64

// DefaultProfiles returns the hand-tuned reference profiles.
func DefaultProfiles() Profiles {
	return Profiles{
		Social: {
			features.EmotionalWarmth:    0.6,
			features.RomanticLanguage:   0.1,
			features.TaskFocus:          0.2,
			features.Formality:          0.2,
			features.EmotionalIntensity: 0.4,
		},
		Romantic: {
			features.RomanticLanguage:   0.8,
			features.EmotionalWarmth:    0.7,
			features.EmotionalIntensity: 0.6,
			features.Formality:          0.1,
		},
		Spiritual: {
			features.SpiritualReference: 0.8,
			features.EmotionalWarmth:    0.5,
			features.EmotionalIntensity: 0.3,
		},
		Professional: {
			features.TaskFocus:          0.8,
			features.Formality:          0.7,
			features.RomanticLanguage:   0.0,
			features.EmotionalIntensity: 0.2,
		},
	}
}

// Profile scores each label by closeness to its reference profile.
//
// With Override set, a decisive task or spiritual signal forces that label to
// 0.95 and caps the others below it instead of applying the soft boosts.
type Profile struct {
	profiles map[Label][]target
	override bool
}

type target struct {
	name  string
	value float64
}

// NewProfile copies p. Targets are stored sorted by signal name so the
// deviation sum always adds in the same order.
func NewProfile(p Profiles, override bool) *Profile {
	cp := make(map[Label][]target, len(p))
	for l, targets := range p {
		ts := make([]target, 0, len(targets))
		for k, v := range targets {
			ts = append(ts, target{name: k, value: v})
		}
		sort.Slice(ts, func(i, j int) bool { return ts[i].name < ts[j].name })
		cp[l] = ts
	}
	return &Profile{profiles: cp, override: override}
}

// Score implements Strategy.
func (p *Profile) Score(v features.Vector) RawScores {
	v = v.Clamp()
	raw := make(RawScores, 4)
	for _, l := range Labels() {
		targets := p.profiles[l]
		if len(targets) == 0 {
			raw[l] = 0
			continue
		}
		dev := 0.0
		for _, t := range targets {
			dev += math.Abs(v.Get(t.name) - t.value)
		}
		raw[l] = 1 - dev/float64(len(targets))
	}

	if p.override {
		forced := Label("")
		switch {
		case v.TaskFocus > professionalTaskThreshold:
			forced = Professional
		case v.SpiritualReference > spiritualRefThreshold:
			forced = Spiritual
		}
		if forced != "" {
			for l, s := range raw {
				raw[l] = math.Min(features.Clamp01(s), overrideCap)
			}
			raw[forced] = overrideConfidence
			return raw
		}
	} else {
		if v.TaskFocus > professionalTaskThreshold {
			raw[Professional] += softBoost
		}
		if v.SpiritualReference > spiritualRefThreshold {
			raw[Spiritual] += softBoost
		}
	}

	for l, s := range raw {
		raw[l] = features.Clamp01(s)
	}
	return raw
}
