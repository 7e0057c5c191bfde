package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Session is an opaque, externally validated session identifier bound to a user.
type Session struct {
	ID        int64
	SessionID string
	UserID    int64
	CreatedAt int64
	ExpiresAt *int64
}

// CreateSession registers sessionID for userID. A zero ttl never expires.
func (db *DB) CreateSession(ctx context.Context, sessionID string, userID int64, ttl time.Duration) (*Session, error) {
	now := time.Now().UnixMilli()
	var expires *int64
	if ttl > 0 {
		at := now + ttl.Milliseconds()
		expires = &at
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, userID, now, expires)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Session{
		ID:        id,
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: expires,
	}, nil
}

// LookupSession resolves a session id through the unique index. Expired
// sessions are reported as ErrSessionNotFound.
func (db *DB) LookupSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	err := db.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, created_at, expires_at
		FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.SessionID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if s.ExpiresAt != nil && *s.ExpiresAt <= time.Now().UnixMilli() {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// DeleteSession removes a session. Unknown ids are not an error.
func (db *DB) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes expired sessions and returns how many went.
func (db *DB) PurgeExpiredSessions(ctx context.Context) (int, error) {
	result, err := db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
