package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lazypower/rapport/internal/features"
)

// Summary is the cached inference for one user pair. LastMessageAt and
// MessageCount form the fingerprint the cache is validated against.
type Summary struct {
	PairKey       string
	UserA         int64
	UserB         int64
	Features      features.Vector
	Label         string
	Confidence    int // top label percentage
	Source        string
	LastMessageAt int64
	MessageCount  int
	CreatedAt     int64
	UpdatedAt     int64
}

// GetSummary returns the summary for pairKey, or nil when none is stored.
func (db *DB) GetSummary(ctx context.Context, pairKey string) (*Summary, error) {
	var (
		s   Summary
		raw string
	)
	err := db.QueryRowContext(ctx, `
		SELECT pair_key, user_a_id, user_b_id, features, label, confidence, source,
		       last_message_at, message_count, created_at, updated_at
		FROM conversation_summaries WHERE pair_key = ?
	`, pairKey).Scan(&s.PairKey, &s.UserA, &s.UserB, &raw, &s.Label, &s.Confidence, &s.Source,
		&s.LastMessageAt, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &s.Features); err != nil {
		return nil, fmt.Errorf("decode summary features for %s: %w", pairKey, err)
	}
	return &s, nil
}

// UpsertSummary inserts or overwrites the summary for s.PairKey and reports
// whether a new row was created.
func (db *DB) UpsertSummary(ctx context.Context, s *Summary) (bool, error) {
	raw, err := json.Marshal(s.Features)
	if err != nil {
		return false, fmt.Errorf("encode summary features: %w", err)
	}
	now := time.Now().UnixMilli()

	var revision int
	err = db.QueryRowContext(ctx, `
		INSERT INTO conversation_summaries
			(pair_key, user_a_id, user_b_id, features, label, confidence, source,
			 last_message_at, message_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pair_key) DO UPDATE SET
			features        = excluded.features,
			label           = excluded.label,
			confidence      = excluded.confidence,
			source          = excluded.source,
			last_message_at = excluded.last_message_at,
			message_count   = excluded.message_count,
			revision        = revision + 1,
			updated_at      = excluded.updated_at
		RETURNING revision
	`, s.PairKey, s.UserA, s.UserB, string(raw), s.Label, s.Confidence, s.Source,
		s.LastMessageAt, s.MessageCount, now, now).Scan(&revision)
	if err != nil {
		return false, fmt.Errorf("upsert summary: %w", err)
	}
	s.UpdatedAt = now
	if revision == 1 {
		s.CreatedAt = now
	}
	return revision == 1, nil
}

// CountSummaries returns how many pairs have a cached summary.
func (db *DB) CountSummaries(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversation_summaries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return n, nil
}
