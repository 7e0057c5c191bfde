package store

import (
	"context"
	"testing"
)

func seedMessages(t *testing.T, db *DB, msgs ...Message) {
	t.Helper()
	for i := range msgs {
		if _, err := db.AddMessage(context.Background(), &msgs[i]); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}
}

func TestPairMessagesBothDirections(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedMessages(t, db,
		Message{SenderID: 3, ReceiverID: 7, Body: "first", SentAt: 1000},
		Message{SenderID: 7, ReceiverID: 3, Body: "reply", SentAt: 2000},
		Message{SenderID: 3, ReceiverID: 9, Body: "elsewhere", SentAt: 1500},
		Message{SenderID: 3, ReceiverID: 7, Body: "third", SentAt: 3000},
	)

	for _, args := range [][2]int64{{3, 7}, {7, 3}} {
		msgs, err := db.PairMessages(ctx, args[0], args[1])
		if err != nil {
			t.Fatalf("PairMessages: %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("PairMessages(%d,%d) = %d messages, want 3", args[0], args[1], len(msgs))
		}
		want := []string{"first", "reply", "third"}
		for i, m := range msgs {
			if m.Body != want[i] {
				t.Errorf("msgs[%d] = %q, want %q", i, m.Body, want[i])
			}
		}
	}
}

func TestPairMessagesEmpty(t *testing.T) {
	db := openTestDB(t)
	msgs, err := db.PairMessages(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("PairMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages, want 0", len(msgs))
	}
}

func TestRecentPairMessages(t *testing.T) {
	db := openTestDB(t)
	for i := int64(1); i <= 5; i++ {
		seedMessages(t, db, Message{SenderID: 1, ReceiverID: 2, Body: string(rune('a' + i - 1)), SentAt: i * 100})
	}

	msgs, err := db.RecentPairMessages(context.Background(), 2, 1, 2)
	if err != nil {
		t.Fatalf("RecentPairMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Body != "d" || msgs[1].Body != "e" {
		t.Errorf("got %q,%q, want d,e in chronological order", msgs[0].Body, msgs[1].Body)
	}
}

func TestAddMessageStampsTime(t *testing.T) {
	db := openTestDB(t)
	m := Message{SenderID: 1, ReceiverID: 2, Body: "now"}
	id, err := db.AddMessage(context.Background(), &m)
	if err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if id == 0 || m.ID != id {
		t.Errorf("id = %d, m.ID = %d", id, m.ID)
	}
	if m.SentAt == 0 {
		t.Error("SentAt not stamped")
	}
}

func TestAddMessagesBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	n, err := db.AddMessages(ctx, []Message{
		{SenderID: 1, ReceiverID: 2, Body: "a", SentAt: 10},
		{SenderID: 2, ReceiverID: 1, Body: "b", SentAt: 20},
	}, "batch-1")
	if err != nil {
		t.Fatalf("AddMessages: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}
	msgs, _ := db.PairMessages(ctx, 1, 2)
	for _, m := range msgs {
		if m.ImportBatch != "batch-1" {
			t.Errorf("ImportBatch = %q, want batch-1", m.ImportBatch)
		}
	}
}

func TestListPairs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedMessages(t, db,
		Message{SenderID: 7, ReceiverID: 3, Body: "x", SentAt: 100},
		Message{SenderID: 3, ReceiverID: 7, Body: "y", SentAt: 300},
		Message{SenderID: 1, ReceiverID: 2, Body: "z", SentAt: 200},
		Message{SenderID: 4, ReceiverID: 4, Body: "self", SentAt: 400},
	)

	pairs, err := db.ListPairs(ctx, 0)
	if err != nil {
		t.Fatalf("ListPairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2: %+v", len(pairs), pairs)
	}
	if pairs[0] != (Pair{A: 3, B: 7, LastMessageAt: 300, MessageCount: 2}) {
		t.Errorf("pairs[0] = %+v", pairs[0])
	}
	if pairs[1] != (Pair{A: 1, B: 2, LastMessageAt: 200, MessageCount: 1}) {
		t.Errorf("pairs[1] = %+v", pairs[1])
	}

	limited, err := db.ListPairs(ctx, 1)
	if err != nil {
		t.Fatalf("ListPairs limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d pairs", len(limited))
	}
}
