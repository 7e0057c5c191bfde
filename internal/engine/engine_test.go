package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/lazypower/rapport/internal/features"
	"github.com/lazypower/rapport/internal/llm"
	"github.com/lazypower/rapport/internal/scoring"
	"github.com/lazypower/rapport/internal/store"
)

const romanticLine = "I love you so much, thank you for always being there, my love!"

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seed stores texts alternating between a and b, one second apart from start.
func seed(t *testing.T, db *store.DB, a, b, start int64, texts ...string) {
	t.Helper()
	for i, text := range texts {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		m := &store.Message{SenderID: from, ReceiverID: to, Body: text, SentAt: start + int64(i)*1000}
		if _, err := db.AddMessage(context.Background(), m); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}
}

type scoreFunc func(features.Vector) scoring.RawScores

func (f scoreFunc) Score(v features.Vector) scoring.RawScores { return f(v) }

// taskSwitch is Professional when task focus is high and ambiguous otherwise.
var taskSwitch = scoreFunc(func(v features.Vector) scoring.RawScores {
	if v.TaskFocus >= 0.9 {
		return scoring.RawScores{scoring.Professional: 0.9, scoring.Social: 0.2, scoring.Romantic: 0.1, scoring.Spiritual: 0.1}
	}
	return scoring.RawScores{scoring.Social: 0.5, scoring.Romantic: 0.45, scoring.Professional: 0.3, scoring.Spiritual: 0.1}
})

func TestInferConfidentHeuristics(t *testing.T) {
	db := testDB(t)
	seed(t, db, 1, 2, 1_000_000, romanticLine, romanticLine, romanticLine)
	mock := &llm.MockClient{Response: &llm.Response{Content: proJSON}}
	e := NewFromDB(db, WithExternal(NewLLMExtractor(mock)))

	res, err := e.Infer(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if res.HighestLabel != scoring.Romantic {
		t.Errorf("label = %s, want Romantic", res.HighestLabel)
	}
	if res.Distribution[scoring.Romantic] != 100 {
		t.Errorf("distribution = %v, want Romantic 100", res.Distribution)
	}
	if res.Cached || res.Source != SourceHeuristic || res.MessageCount != 3 || res.PairKey != "1-2" {
		t.Errorf("result = %+v", res)
	}
	if mock.CallCount() != 0 {
		t.Errorf("external called %d times, want 0", mock.CallCount())
	}

	s, err := db.GetSummary(context.Background(), "1-2")
	if err != nil || s == nil {
		t.Fatalf("GetSummary = %v, %v", s, err)
	}
	if s.Label != "Romantic" || s.Confidence != 100 || s.Source != SourceHeuristic {
		t.Errorf("summary = %+v", s)
	}
	if s.LastMessageAt != 1_002_000 || s.MessageCount != 3 {
		t.Errorf("summary fingerprint = (%d, %d), want (1002000, 3)", s.LastMessageAt, s.MessageCount)
	}
}

func TestInferCacheHit(t *testing.T) {
	db := testDB(t)
	seed(t, db, 1, 2, 1_000_000, romanticLine, romanticLine, romanticLine)
	e := NewFromDB(db)
	ctx := context.Background()

	first, err := e.Infer(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	second, err := e.Infer(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !second.Cached {
		t.Error("second inference should be served from the cache")
	}
	if second.HighestLabel != first.HighestLabel || second.Source != first.Source {
		t.Errorf("cached result %+v differs from %+v", second, first)
	}
	for _, l := range scoring.Labels() {
		if second.Distribution[l] != first.Distribution[l] {
			t.Errorf("%s: cached %d, computed %d", l, second.Distribution[l], first.Distribution[l])
		}
	}

	runs, err := db.PairRuns(ctx, "1-2", 10)
	if err != nil {
		t.Fatalf("PairRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("runs = %d, want 1 (cache hits are not recorded)", len(runs))
	}
}

func TestInferStaleCountMisses(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, 1, 2, 1_000_000, "a", "b", "c", "d", "e")
	e := NewFromDB(db)

	if _, err := e.Infer(ctx, 1, 2); err != nil {
		t.Fatalf("Infer: %v", err)
	}

	// Same last timestamp, one more message.
	if _, err := db.AddMessage(ctx, &store.Message{SenderID: 1, ReceiverID: 2, Body: "f", SentAt: 1_004_000}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	res, err := e.Infer(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if res.Cached {
		t.Error("changed message count must invalidate the cache")
	}
	if res.MessageCount != 6 {
		t.Errorf("message count = %d, want 6", res.MessageCount)
	}
	s, _ := db.GetSummary(ctx, "1-2")
	if s.LastMessageAt != 1_004_000 || s.MessageCount != 6 {
		t.Errorf("summary fingerprint = (%d, %d), want (1004000, 6)", s.LastMessageAt, s.MessageCount)
	}
}

func TestInferAmbiguousUsesExternal(t *testing.T) {
	db := testDB(t)
	seed(t, db, 3, 4, 1_000_000, "hey", "hi")
	mock := &llm.MockClient{Response: &llm.Response{Content: proJSON}}
	e := NewFromDB(db,
		WithClassifier(scoring.NewClassifier(taskSwitch)),
		WithExternal(NewLLMExtractor(mock)))

	res, err := e.Infer(context.Background(), 3, 4)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if res.HighestLabel != scoring.Professional || res.Source != SourceExternal {
		t.Errorf("result = %+v, want Professional from external", res)
	}
	if res.Distribution[scoring.Professional] != 90 || res.Distribution[scoring.Social] != 20 {
		t.Errorf("distribution = %v", res.Distribution)
	}
	if mock.CallCount() != 1 {
		t.Errorf("external called %d times, want 1", mock.CallCount())
	}

	s, _ := db.GetSummary(context.Background(), "3-4")
	if s.Features.TaskFocus != 0.95 || s.Source != SourceExternal {
		t.Errorf("summary = %+v, want external features cached", s)
	}

	// The cached external features are rescored on a hit.
	again, _ := e.Infer(context.Background(), 3, 4)
	if !again.Cached || again.HighestLabel != scoring.Professional || again.Source != SourceExternal {
		t.Errorf("cached result = %+v", again)
	}
	if mock.CallCount() != 1 {
		t.Errorf("external called %d times after hit, want 1", mock.CallCount())
	}
}

func TestInferExternalFailureFallsBack(t *testing.T) {
	db := testDB(t)
	seed(t, db, 3, 4, 1_000_000, "hey", "hi")
	mock := &llm.MockClient{Err: errors.New("invalid api key")}
	e := NewFromDB(db,
		WithClassifier(scoring.NewClassifier(taskSwitch)),
		WithExternal(NewLLMExtractor(mock, WithRetryBackoff(0))))

	res, err := e.Infer(context.Background(), 3, 4)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if res.Source != SourceFallback || res.HighestLabel != scoring.Social {
		t.Errorf("result = %+v, want Social via fallback", res)
	}
	if mock.CallCount() != 1 {
		t.Errorf("external called %d times, want 1", mock.CallCount())
	}

	runs, _ := db.PairRuns(context.Background(), "3-4", 1)
	if len(runs) != 1 || runs[0].Source != SourceFallback || runs[0].Reason == "" {
		t.Errorf("runs = %+v, want a fallback run with a reason", runs)
	}
}

func TestInferEmptyConversation(t *testing.T) {
	db := testDB(t)
	e := NewFromDB(db)
	ctx := context.Background()

	res, err := e.Infer(ctx, 8, 9)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if res.MessageCount != 0 || res.Cached || res.Source != SourceHeuristic {
		t.Errorf("result = %+v", res)
	}
	s, _ := db.GetSummary(ctx, "8-9")
	if s == nil || s.LastMessageAt != 0 || !s.Features.IsZero() {
		t.Errorf("summary = %+v, want zero fingerprint and features", s)
	}

	res, _ = e.Infer(ctx, 8, 9)
	if !res.Cached {
		t.Error("empty conversation should hit the cache on the second call")
	}
}

func TestAnalyze(t *testing.T) {
	e := New(nil, nil)
	a := e.Analyze([]features.Message{
		{Sender: "1", Text: romanticLine},
		{Sender: "2", Text: romanticLine},
		{Sender: "1", Text: romanticLine},
	})
	if a.HighestLabel != scoring.Romantic {
		t.Errorf("label = %s, want Romantic", a.HighestLabel)
	}
	if a.Scores[scoring.Romantic] != 1 || a.Distribution[scoring.Romantic] != 100 {
		t.Errorf("scores = %v distribution = %v", a.Scores, a.Distribution)
	}
	if a.Features.RomanticLanguage <= 0.5 {
		t.Errorf("features = %+v", a.Features)
	}
}

type fakeSummaries struct {
	getErr    error
	upsertErr error
	upserts   int
}

func (f *fakeSummaries) GetSummary(ctx context.Context, key string) (*store.Summary, error) {
	return nil, f.getErr
}

func (f *fakeSummaries) UpsertSummary(ctx context.Context, s *store.Summary) (bool, error) {
	f.upserts++
	return f.upsertErr == nil, f.upsertErr
}

type staticMessages []store.Message

func (m staticMessages) PairMessages(ctx context.Context, a, b int64) ([]store.Message, error) {
	return m, nil
}

type failingMessages struct{}

func (failingMessages) PairMessages(ctx context.Context, a, b int64) ([]store.Message, error) {
	return nil, errors.New("disk on fire")
}

func TestInferStoreFailuresAreNotFatal(t *testing.T) {
	msgs := staticMessages{
		{SenderID: 1, ReceiverID: 2, Body: romanticLine, SentAt: 10},
		{SenderID: 2, ReceiverID: 1, Body: romanticLine, SentAt: 20},
	}
	sums := &fakeSummaries{getErr: errors.New("locked"), upsertErr: errors.New("readonly")}
	e := New(msgs, sums)

	res, err := e.Infer(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if res.Cached || res.HighestLabel != scoring.Romantic {
		t.Errorf("result = %+v", res)
	}
	if sums.upserts != 1 {
		t.Errorf("upserts = %d, want 1", sums.upserts)
	}
}

func TestInferMessageSourceError(t *testing.T) {
	e := New(failingMessages{}, &fakeSummaries{})
	if _, err := e.Infer(context.Background(), 1, 2); err == nil {
		t.Fatal("expected error when messages cannot be loaded")
	}
}

func TestClassifyProfessionalVector(t *testing.T) {
	e := New(nil, nil)
	label, dist := e.Classify(features.Vector{TaskFocus: 0.9, Formality: 0.8, EmotionalWarmth: 0.2})
	if label != scoring.Professional {
		t.Errorf("label = %s, want Professional", label)
	}
	if dist[scoring.Professional] != 100 {
		t.Errorf("distribution = %v", dist)
	}
}
