package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lazypower/rapport/internal/store"
)

// PairKey is the canonical key for an unordered user pair: "min-max".
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// ParsePairKey splits a pair key back into its ordered ids.
func ParsePairKey(key string) (int64, int64, error) {
	left, right, ok := strings.Cut(key, "-")
	if !ok {
		return 0, 0, fmt.Errorf("pair key %q: missing separator", key)
	}
	a, err := strconv.ParseInt(left, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("pair key %q: %w", key, err)
	}
	b, err := strconv.ParseInt(right, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("pair key %q: %w", key, err)
	}
	if a > b {
		return 0, 0, fmt.Errorf("pair key %q: ids out of order", key)
	}
	return a, b, nil
}

// Fingerprint identifies the state of a conversation. A cached summary is
// valid only while both the last timestamp and the count match exactly.
type Fingerprint struct {
	PairKey       string
	LastMessageAt int64 // Unix ms, 0 for an empty conversation
	MessageCount  int
}

// FingerprintOf fingerprints a conversation ordered oldest first. The
// timestamp is that of the last message.
func FingerprintOf(pairKey string, msgs []store.Message) Fingerprint {
	fp := Fingerprint{PairKey: pairKey, MessageCount: len(msgs)}
	if len(msgs) > 0 {
		fp.LastMessageAt = msgs[len(msgs)-1].SentAt
	}
	return fp
}

// Matches reports whether s was computed from this exact conversation state.
func (f Fingerprint) Matches(s *store.Summary) bool {
	return s != nil &&
		s.PairKey == f.PairKey &&
		s.LastMessageAt == f.LastMessageAt &&
		s.MessageCount == f.MessageCount
}
