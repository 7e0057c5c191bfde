package store

import (
	"context"
	"fmt"
	"time"
)

// maxReasonSize caps the stored gate reason.
const maxReasonSize = 1024

// InferenceRun records one non-cached inference.
type InferenceRun struct {
	ID           int64
	RunID        string
	PairKey      string
	Label        string
	Confidence   int
	Source       string
	Reason       string
	MessageCount int
	CreatedAt    int64
}

// RecordRun appends an audit row. Truncates the reason to 1KB.
func (db *DB) RecordRun(ctx context.Context, r *InferenceRun) error {
	if len(r.Reason) > maxReasonSize {
		r.Reason = r.Reason[:maxReasonSize]
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	result, err := db.ExecContext(ctx, `
		INSERT INTO inference_runs (run_id, pair_key, label, confidence, source, reason, message_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.PairKey, r.Label, r.Confidence, r.Source, r.Reason, r.MessageCount, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	r.ID, _ = result.LastInsertId()
	return nil
}

// PairRuns returns the most recent runs for a pair, newest first.
func (db *DB) PairRuns(ctx context.Context, pairKey string, limit int) ([]InferenceRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, pair_key, label, confidence, source, COALESCE(reason, ''), message_count, created_at
		FROM inference_runs WHERE pair_key = ? ORDER BY created_at DESC, id DESC LIMIT ?
	`, pairKey, limit)
	if err != nil {
		return nil, fmt.Errorf("get pair runs: %w", err)
	}
	defer rows.Close()

	var runs []InferenceRun
	for rows.Next() {
		var r InferenceRun
		if err := rows.Scan(&r.ID, &r.RunID, &r.PairKey, &r.Label, &r.Confidence, &r.Source, &r.Reason, &r.MessageCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountRuns returns the number of audit rows written under runID.
func (db *DB) CountRuns(ctx context.Context, runID string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inference_runs WHERE run_id = ?", runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
