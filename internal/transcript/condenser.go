package transcript

import (
	"fmt"
	"strings"

	"github.com/lazypower/rapport/internal/features"
)

const (
	// DefaultMaxChars bounds the conversation text sent to a model.
	DefaultMaxChars = 12000
	messageMax      = 500
)

// Condense renders a conversation as "[sender] text" lines for a prompt.
// Each message is cut at 500 chars; when the whole exceeds maxChars the
// oldest messages are dropped and a marker notes how many.
func Condense(msgs []features.Message, maxChars int) string {
	if len(msgs) == 0 {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	lines := make([]string, len(msgs))
	for i, m := range msgs {
		text := strings.TrimSpace(m.Text)
		if len(text) > messageMax {
			text = text[:messageMax] + "..."
		}
		sender := m.Sender
		if sender == "" {
			sender = "?"
		}
		lines[i] = fmt.Sprintf("[%s] %s", sender, text)
	}

	// Keep the most recent lines that fit.
	start := len(lines)
	total := 0
	for start > 0 {
		n := len(lines[start-1]) + 1
		if total+n > maxChars && start < len(lines) {
			break
		}
		total += n
		start--
	}

	var b strings.Builder
	if start > 0 {
		fmt.Fprintf(&b, "[... %d earlier messages omitted]\n", start)
	}
	b.WriteString(strings.Join(lines[start:], "\n"))
	return b.String()
}
