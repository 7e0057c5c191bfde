package features

// Vocabulary is the set of closed word lists the extractor matches against.
// Entries are lowercase single tokens except RomanticPhrases, which are
// matched as substrings of the lowercased conversation.
type Vocabulary struct {
	Warmth          []string
	Romantic        []string
	RomanticPhrases []string
	Spiritual       []string
	Task            []string
	Formality       []string
	Intensity       []string
}

// DefaultVocabulary returns the curated word lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Warmth: []string{
			"thank", "thanks", "appreciate", "grateful", "happy", "glad", "support",
			"care", "caring", "kind", "kindness", "nice", "friendly", "enjoy", "welcome",
		},
		Romantic: []string{
			"love", "lover", "lovely", "darling", "babe", "bby", "baby", "sweetheart",
			"honey", "kiss", "kisses", "romantic", "date", "dating", "heart", "xoxo",
		},
		RomanticPhrases: []string{"miss you", "i miss you"},
		Spiritual: []string{
			"god", "allah", "jesus", "bible", "quran", "torah", "temple", "church",
			"mosque", "bless", "blessed", "prayer", "pray", "faith", "spiritual",
			"meditate", "meditation", "soul", "divine",
		},
		Task: []string{
			"project", "deadline", "deliverable", "meeting", "meet", "schedule", "plan",
			"task", "todo", "assign", "assignment", "objective", "goal", "kpi", "report",
			"update", "work", "workstream", "status", "document", "review", "sync",
		},
		Formality: []string{
			"regards", "best", "sincerely", "dear", "please", "kindly", "mr", "mrs",
			"sir", "madam", "respectfully",
		},
		Intensity: []string{
			"amazing", "awesome", "incredible", "fantastic", "terrible", "awful",
			"furious", "angry", "urgent", "critical", "disaster", "love", "hate",
		},
	}
}
