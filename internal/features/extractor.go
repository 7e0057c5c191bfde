package features

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Per-signal token divisors. A signal saturates once it hits about one
// vocabulary token per divisor tokens of conversation.
const (
	warmthDivisor    = 20
	romanticDivisor  = 25
	spiritualDivisor = 25
	taskDivisor      = 25
	formalityDivisor = 30

	phraseWeight       = 2.0
	capsWeight         = 0.5
	maxContractionCost = 0.5
	minCapsWordLen     = 3
)

var (
	tokenRe = regexp.MustCompile(`[a-z']+`)
	capsRe  = regexp.MustCompile(`\b[A-Z]{2,}\b`)

	// Typographic apostrophes are not folded by NFKC.
	apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")
)

type wordSet map[string]struct{}

func newWordSet(words []string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

func (s wordSet) hits(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if _, ok := s[t]; ok {
			n++
		}
	}
	return n
}

// Extractor computes heuristic feature vectors. It holds only immutable
// lookup tables and is safe for concurrent use.
type Extractor struct {
	warmth    wordSet
	romantic  wordSet
	spiritual wordSet
	task      wordSet
	formality wordSet
	intensity wordSet
	phrases   []string
}

// NewExtractor builds an Extractor over the given vocabulary.
func NewExtractor(v Vocabulary) *Extractor {
	phrases := make([]string, 0, len(v.RomanticPhrases))
	for _, p := range v.RomanticPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Extractor{
		warmth:    newWordSet(v.Warmth),
		romantic:  newWordSet(v.Romantic),
		spiritual: newWordSet(v.Spiritual),
		task:      newWordSet(v.Task),
		formality: newWordSet(v.Formality),
		intensity: newWordSet(v.Intensity),
		phrases:   phrases,
	}
}

// Tokenize lowercases text and splits it into alphabetic tokens, keeping
// apostrophes inside tokens.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(normalize(text)), -1)
}

func normalize(text string) string {
	return apostrophes.Replace(norm.NFKC.String(text))
}

// Extract computes the feature vector for an ordered conversation. An empty
// conversation yields the zero vector.
func (e *Extractor) Extract(messages []Message) Vector {
	if len(messages) == 0 {
		return Vector{}
	}

	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
	}
	joined := normalize(strings.Join(texts, "\n"))
	lower := strings.ToLower(joined)
	tokens := tokenRe.FindAllString(lower, -1)
	tokenCount := len(tokens)

	warmth := ratio(float64(e.warmth.hits(tokens)), per(tokenCount, warmthDivisor))

	phraseHits := 0
	for _, p := range e.phrases {
		phraseHits += strings.Count(lower, p)
	}
	romanticRaw := float64(e.romantic.hits(tokens)) + float64(phraseHits)*phraseWeight
	romantic := ratio(romanticRaw, per(tokenCount, romanticDivisor))

	spiritual := ratio(float64(e.spiritual.hits(tokens)), per(tokenCount, spiritualDivisor))
	task := ratio(float64(e.task.hits(tokens)), per(tokenCount, taskDivisor))

	contractions := 0
	for _, t := range tokens {
		if strings.Contains(t, "'") || strings.HasSuffix(t, "nt") {
			contractions++
		}
	}
	formalityBase := float64(e.formality.hits(tokens)) / per(tokenCount, formalityDivisor)
	penalty := min(maxContractionCost, float64(contractions)/per(tokenCount, 1))
	formality := Clamp01(formalityBase - penalty)

	exclamations := strings.Count(joined, "!")
	caps := 0
	for _, w := range capsRe.FindAllString(joined, -1) {
		if len(w) >= minCapsWordLen {
			caps++
		}
	}
	intensityRaw := float64(exclamations) + float64(caps)*capsWeight + float64(e.intensity.hits(tokens))
	intensity := ratio(intensityRaw, per(len(messages), 1))

	return Vector{
		EmotionalWarmth:    warmth,
		RomanticLanguage:   romantic,
		SpiritualReference: spiritual,
		TaskFocus:          task,
		Formality:          formality,
		EmotionalIntensity: intensity,
	}.Round()
}

// per returns n/divisor (integer division) floored at 1.
func per(n, divisor int) float64 {
	return float64(max(1, n/divisor))
}

// ratio divides and caps at 1.
func ratio(num, den float64) float64 {
	return min(1.0, num/den)
}
