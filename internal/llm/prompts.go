package llm

import "fmt"

const featureInstructions = `You score conversations between two people on six signals. ` +
	`Return ONLY a JSON object with numeric values between 0 and 1.`

// FeaturePrompt generates the prompt asking a model to score a conversation
// on the six connection signals.
func FeaturePrompt(conversation string) string {
	return fmt.Sprintf(`You are a conversation analysis system. Read the conversation between two people and score how strongly it shows each signal.

CONVERSATION:
%s

Signals (each a number from 0.0 to 1.0):
- emotional_warmth: gratitude, care, kindness, support
- romantic_language: affection, pet names, longing, dating
- spiritual_reference: faith, prayer, religion, meditation
- task_focus: work, projects, deadlines, scheduling
- formality: polite or professional register, salutations and sign-offs
- emotional_intensity: exclamations, capitals, strong feelings

Rules:
- Score the conversation as a whole, not individual messages
- Use 0 when a signal is absent
- Return STRICT JSON with exactly these six keys and no other text

Return a JSON object:
{"emotional_warmth": 0.0, "romantic_language": 0.0, "spiritual_reference": 0.0, "task_focus": 0.0, "formality": 0.0, "emotional_intensity": 0.0}`, conversation)
}
