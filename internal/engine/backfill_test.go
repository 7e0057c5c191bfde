package engine

import (
	"context"
	"testing"

	"github.com/lazypower/rapport/internal/scoring"
)

func TestBackfillCreatesThenUpdates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, 1, 2, 1_000_000, romanticLine, romanticLine)
	seed(t, db, 3, 4, 2_000_000, "please review the report", "regards")
	seed(t, db, 5, 6, 3_000_000, "hello")
	e := NewFromDB(db)

	rep, err := e.Backfill(ctx, db, BackfillOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if rep.RunID == "" {
		t.Error("run id should be set")
	}
	if rep.Pairs != 3 || rep.Processed != 3 || rep.Created != 3 || rep.Failed != 0 {
		t.Errorf("report = %+v, want 3 created", rep)
	}
	if n, _ := db.CountSummaries(ctx); n != 3 {
		t.Errorf("summaries = %d, want 3", n)
	}
	if n, _ := db.CountRuns(ctx, rep.RunID); n != 3 {
		t.Errorf("runs for %s = %d, want 3", rep.RunID, n)
	}

	rep, err = e.Backfill(ctx, db, BackfillOptions{})
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if rep.Updated != 3 || rep.Created != 0 {
		t.Errorf("second report = %+v, want 3 updated", rep)
	}
}

func TestBackfillMaxPairs(t *testing.T) {
	db := testDB(t)
	seed(t, db, 1, 2, 1_000_000, "a")
	seed(t, db, 3, 4, 2_000_000, "b")
	seed(t, db, 5, 6, 3_000_000, "c")

	rep, err := NewFromDB(db).Backfill(context.Background(), db, BackfillOptions{MaxPairs: 2})
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if rep.Processed != 2 {
		t.Errorf("processed = %d, want 2", rep.Processed)
	}
	if s, _ := db.GetSummary(context.Background(), "1-2"); s != nil {
		t.Error("least recent pair should be skipped")
	}
}

func TestBackfillDryRunStoresNothing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, 1, 2, 1_000_000, "a", "b")
	seed(t, db, 3, 4, 2_000_000, "c")

	rep, err := NewFromDB(db).Backfill(ctx, db, BackfillOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if rep.Processed != 2 || rep.Created != 0 || rep.Updated != 0 {
		t.Errorf("report = %+v", rep)
	}
	if n, _ := db.CountSummaries(ctx); n != 0 {
		t.Errorf("summaries = %d, want 0", n)
	}
	if n, _ := db.CountRuns(ctx, rep.RunID); n != 0 {
		t.Errorf("runs = %d, want 0", n)
	}
}

func TestBackfillTruncatesAndLiveInferenceRecomputes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, 1, 2, 1_000_000, "a", "b", "c", "d", "e")
	e := NewFromDB(db)

	if _, err := e.Backfill(ctx, db, BackfillOptions{LimitPerPair: 2}); err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	s, _ := db.GetSummary(ctx, "1-2")
	if s == nil || s.MessageCount != 2 || s.LastMessageAt != 1_004_000 {
		t.Fatalf("summary = %+v, want fingerprint of the 2 most recent messages", s)
	}

	res, err := e.Infer(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if res.Cached || res.MessageCount != 5 {
		t.Errorf("result = %+v, want a recompute over all 5 messages", res)
	}
}

func TestBackfillSkipsExternal(t *testing.T) {
	db := testDB(t)
	seed(t, db, 1, 2, 1_000_000, "hey", "hi")
	fx := &fakeExtractor{}
	e := NewFromDB(db, WithClassifier(scoring.NewClassifier(taskSwitch)), WithExternal(fx))

	if _, err := e.Backfill(context.Background(), db, BackfillOptions{Concurrency: 1}); err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if fx.calls != 0 {
		t.Errorf("external called %d times, want 0", fx.calls)
	}
	s, _ := db.GetSummary(context.Background(), "1-2")
	if s == nil || s.Source != SourceHeuristic {
		t.Errorf("summary = %+v, want heuristic source", s)
	}
}
