package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateAndLookupSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	s, err := db.CreateSession(ctx, "sess-001", 42, 0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil for zero ttl", *s.ExpiresAt)
	}

	got, err := db.LookupSession(ctx, "sess-001")
	if err != nil {
		t.Fatalf("LookupSession: %v", err)
	}
	if got.UserID != 42 || got.ID != s.ID {
		t.Errorf("got %+v, want user 42 id %d", got, s.ID)
	}
}

func TestLookupSessionUnknown(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LookupSession(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionIDUnique(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.CreateSession(ctx, "dup", 1, 0); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := db.CreateSession(ctx, "dup", 2, 0); err == nil {
		t.Error("expected UNIQUE violation for duplicate session_id")
	}
}

func TestExpiredSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.CreateSession(ctx, "old", 1, time.Millisecond); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := db.LookupSession(ctx, "old"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired lookup err = %v, want ErrSessionNotFound", err)
	}
	n, err := db.PurgeExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
}

func TestDeleteSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	db.CreateSession(ctx, "gone", 1, time.Hour)
	if err := db.DeleteSession(ctx, "gone"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := db.LookupSession(ctx, "gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if err := db.DeleteSession(ctx, "never"); err != nil {
		t.Errorf("deleting unknown session: %v", err)
	}
}

func TestSessionLookupUsesIndex(t *testing.T) {
	db := openTestDB(t)
	rows, err := db.Query("EXPLAIN QUERY PLAN SELECT id FROM sessions WHERE session_id = ?", "x")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	defer rows.Close()

	usesIndex := false
	for rows.Next() {
		var id, parent, notused int
		var detail string
		if err := rows.Scan(&id, &parent, &notused, &detail); err != nil {
			t.Fatalf("scan plan: %v", err)
		}
		if len(detail) >= 6 && detail[:6] == "SEARCH" {
			usesIndex = true
		}
	}
	if !usesIndex {
		t.Error("session lookup should SEARCH an index, not SCAN")
	}
}
