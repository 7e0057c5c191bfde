// Package features turns conversation text into the six lexical signals the
// classifier scores.
package features

import "math"

// Signal names, as they appear in JSON and in scoring profiles.
const (
	EmotionalWarmth    = "emotional_warmth"
	RomanticLanguage   = "romantic_language"
	SpiritualReference = "spiritual_reference"
	TaskFocus          = "task_focus"
	Formality          = "formality"
	EmotionalIntensity = "emotional_intensity"
)

// SignalNames lists every signal in canonical order.
func SignalNames() []string {
	return []string{
		EmotionalWarmth,
		RomanticLanguage,
		SpiritualReference,
		TaskFocus,
		Formality,
		EmotionalIntensity,
	}
}

// Message is a single utterance in a conversation.
type Message struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Vector holds the six signals, each in [0,1] once clamped.
type Vector struct {
	EmotionalWarmth    float64 `json:"emotional_warmth"`
	RomanticLanguage   float64 `json:"romantic_language"`
	SpiritualReference float64 `json:"spiritual_reference"`
	TaskFocus          float64 `json:"task_focus"`
	Formality          float64 `json:"formality"`
	EmotionalIntensity float64 `json:"emotional_intensity"`
}

// Get returns the named signal, or 0 for an unknown name.
func (v Vector) Get(name string) float64 {
	switch name {
	case EmotionalWarmth:
		return v.EmotionalWarmth
	case RomanticLanguage:
		return v.RomanticLanguage
	case SpiritualReference:
		return v.SpiritualReference
	case TaskFocus:
		return v.TaskFocus
	case Formality:
		return v.Formality
	case EmotionalIntensity:
		return v.EmotionalIntensity
	}
	return 0
}

// FromMap builds a Vector from signal names. Missing keys are zero.
func FromMap(m map[string]float64) Vector {
	return Vector{
		EmotionalWarmth:    m[EmotionalWarmth],
		RomanticLanguage:   m[RomanticLanguage],
		SpiritualReference: m[SpiritualReference],
		TaskFocus:          m[TaskFocus],
		Formality:          m[Formality],
		EmotionalIntensity: m[EmotionalIntensity],
	}
}

// Map returns the vector keyed by signal name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, 6)
	for _, name := range SignalNames() {
		m[name] = v.Get(name)
	}
	return m
}

// Clamp returns a copy with every signal forced into [0,1]. NaN becomes 0.
func (v Vector) Clamp() Vector {
	return Vector{
		EmotionalWarmth:    Clamp01(v.EmotionalWarmth),
		RomanticLanguage:   Clamp01(v.RomanticLanguage),
		SpiritualReference: Clamp01(v.SpiritualReference),
		TaskFocus:          Clamp01(v.TaskFocus),
		Formality:          Clamp01(v.Formality),
		EmotionalIntensity: Clamp01(v.EmotionalIntensity),
	}
}

// Round returns a copy with every signal rounded to 4 decimals.
func (v Vector) Round() Vector {
	return Vector{
		EmotionalWarmth:    round4(v.EmotionalWarmth),
		RomanticLanguage:   round4(v.RomanticLanguage),
		SpiritualReference: round4(v.SpiritualReference),
		TaskFocus:          round4(v.TaskFocus),
		Formality:          round4(v.Formality),
		EmotionalIntensity: round4(v.EmotionalIntensity),
	}
}

// IsZero reports whether every signal is exactly zero.
func (v Vector) IsZero() bool {
	return v == Vector{}
}

// Clamp01 forces x into [0,1].
func Clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
