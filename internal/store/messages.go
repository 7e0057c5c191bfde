package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Message is one stored direct message. SentAt is Unix milliseconds.
type Message struct {
	ID          int64
	SenderID    int64
	ReceiverID  int64
	Body        string
	SentAt      int64
	ImportBatch string
}

// Pair summarizes the stored conversation between two users. A is always the
// smaller id.
type Pair struct {
	A             int64
	B             int64
	LastMessageAt int64
	MessageCount  int
}

// AddMessage stores a message and returns its id. A zero SentAt is stamped
// with the current time.
func (db *DB) AddMessage(ctx context.Context, m *Message) (int64, error) {
	if m.SentAt == 0 {
		m.SentAt = time.Now().UnixMilli()
	}
	result, err := db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, body, sent_at, import_batch)
		VALUES (?, ?, ?, ?, ?)
	`, m.SenderID, m.ReceiverID, m.Body, m.SentAt, nullString(m.ImportBatch))
	if err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}
	m.ID, _ = result.LastInsertId()
	return m.ID, nil
}

// AddMessages stores messages in one transaction, tagging each with batch.
func (db *DB) AddMessages(ctx context.Context, msgs []Message, batch string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, body, sent_at, import_batch)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for i, m := range msgs {
		sentAt := m.SentAt
		if sentAt == 0 {
			sentAt = now
		}
		if _, err := stmt.ExecContext(ctx, m.SenderID, m.ReceiverID, m.Body, sentAt, nullString(batch)); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("import message %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(msgs), nil
}

// PairMessages returns every message exchanged between a and b in either
// direction, oldest first.
func (db *DB) PairMessages(ctx context.Context, a, b int64) ([]Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, body, sent_at, COALESCE(import_batch, '')
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY sent_at, id
	`, a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("get pair messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentPairMessages returns the latest limit messages between a and b,
// oldest first.
func (db *DB) RecentPairMessages(ctx context.Context, a, b int64, limit int) ([]Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, body, sent_at, import_batch FROM (
			SELECT id, sender_id, receiver_id, body, sent_at, COALESCE(import_batch, '') AS import_batch
			FROM messages
			WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
			ORDER BY sent_at DESC, id DESC
			LIMIT ?
		) ORDER BY sent_at, id
	`, a, b, b, a, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent pair messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListPairs returns every user pair with stored messages, most recently
// active first. limit <= 0 returns all pairs.
func (db *DB) ListPairs(ctx context.Context, limit int) ([]Pair, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT MIN(sender_id, receiver_id) AS a, MAX(sender_id, receiver_id) AS b,
		       MAX(sent_at), COUNT(*)
		FROM messages
		WHERE sender_id != receiver_id
		GROUP BY a, b
		ORDER BY MAX(sent_at) DESC, a, b
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.A, &p.B, &p.LastMessageAt, &p.MessageCount); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// CountMessages returns the total number of stored messages.
func (db *DB) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.SentAt, &m.ImportBatch); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
