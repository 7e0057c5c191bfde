package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/rapport/internal/features"
	"github.com/lazypower/rapport/internal/logging"
	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/scoring"
	"github.com/lazypower/rapport/internal/store"
)

// MessageSource loads a pair's conversation in chronological order.
type MessageSource interface {
	PairMessages(ctx context.Context, a, b int64) ([]store.Message, error)
}

// SummaryStore persists cached inferences.
type SummaryStore interface {
	GetSummary(ctx context.Context, pairKey string) (*store.Summary, error)
	UpsertSummary(ctx context.Context, s *store.Summary) (bool, error)
}

// RunRecorder keeps the audit trail of non-cached inferences.
type RunRecorder interface {
	RecordRun(ctx context.Context, r *store.InferenceRun) error
}

// Engine infers the connection type between two users.
type Engine struct {
	messages   MessageSource
	summaries  SummaryStore
	runs       RunRecorder
	extractor  *features.Extractor
	classifier *scoring.Classifier
	external   FeatureExtractor
	gateCfg    GateConfig
	gate       *Gate
	logger     *slog.Logger
	metrics    *metrics.Manager
}

// Option configures an Engine.
type Option func(*Engine)

// WithExternal enables the external extractor for ambiguous conversations.
func WithExternal(fe FeatureExtractor) Option {
	return func(e *Engine) { e.external = fe }
}

func WithClassifier(c *scoring.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

func WithGateConfig(cfg GateConfig) Option {
	return func(e *Engine) { e.gateCfg = cfg }
}

func WithVocabulary(v features.Vocabulary) Option {
	return func(e *Engine) { e.extractor = features.NewExtractor(v) }
}

func WithRunRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.runs = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine over the given stores.
func New(messages MessageSource, summaries SummaryStore, opts ...Option) *Engine {
	e := &Engine{
		messages:  messages,
		summaries: summaries,
		gateCfg:   DefaultGateConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		e.extractor = features.NewExtractor(features.DefaultVocabulary())
	}
	if e.classifier == nil {
		e.classifier = scoring.NewClassifier(nil)
	}
	e.logger = logging.Or(e.logger)
	e.gate = NewGate(e.gateCfg, e.external, e.logger)
	return e
}

// NewFromDB wires every store interface to db.
func NewFromDB(db *store.DB, opts ...Option) *Engine {
	return New(db, db, append([]Option{WithRunRecorder(db)}, opts...)...)
}

// Result is the answer to a connection query.
type Result struct {
	HighestLabel scoring.Label        `json:"highest_connection_type"`
	Distribution scoring.Distribution `json:"distribution"`
	PairKey      string               `json:"pair_key"`
	MessageCount int                  `json:"message_count"`
	Cached       bool                 `json:"cached"`
	Source       string               `json:"source"`
	Created      bool                 `json:"-"`

	storeErr error
}

// Analysis is a stateless heuristic classification.
type Analysis struct {
	Features     features.Vector      `json:"features"`
	Scores       scoring.RawScores    `json:"scores"`
	Distribution scoring.Distribution `json:"distribution"`
	HighestLabel scoring.Label        `json:"highest_connection_type"`
}

// Extract computes heuristic features for msgs.
func (e *Engine) Extract(msgs []features.Message) features.Vector {
	return e.extractor.Extract(msgs)
}

// Score returns the clamped raw score for every label.
func (e *Engine) Score(v features.Vector) scoring.RawScores {
	return e.classifier.Score(v)
}

// Classify returns the highest label and the percentage distribution.
func (e *Engine) Classify(v features.Vector) (scoring.Label, scoring.Distribution) {
	dist, top := scoring.Normalize(e.classifier.Score(v))
	return top, dist
}

// Analyze classifies msgs with heuristics only. Nothing is stored.
func (e *Engine) Analyze(msgs []features.Message) Analysis {
	v := e.Extract(msgs)
	raw := e.Score(v)
	dist, top := scoring.Normalize(raw)
	return Analysis{Features: v, Scores: raw, Distribution: dist, HighestLabel: top}
}

type inferOpts struct {
	runID         string
	heuristicOnly bool
	skipCache     bool
	dryRun        bool
}

// Infer returns the connection type for users a and b, reusing the cached
// summary when the conversation has not changed since it was computed.
func (e *Engine) Infer(ctx context.Context, a, b int64) (*Result, error) {
	msgs, err := e.messages.PairMessages(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("load messages %s: %w", PairKey(a, b), err)
	}
	return e.infer(ctx, a, b, msgs, inferOpts{runID: uuid.NewString()})
}

func (e *Engine) infer(ctx context.Context, a, b int64, msgs []store.Message, o inferOpts) (*Result, error) {
	start := time.Now()
	if a > b {
		a, b = b, a
	}
	key := PairKey(a, b)
	fp := FingerprintOf(key, msgs)

	if !o.skipCache {
		cached, err := e.summaries.GetSummary(ctx, key)
		if err != nil {
			e.logger.Warn("cache: lookup failed, recomputing", "pair", key, "error", err)
			cached = nil
		}
		if fp.Matches(cached) {
			e.metrics.RecordCacheLookup(true)
			dist, top := scoring.Normalize(e.classifier.Score(cached.Features))
			e.metrics.RecordInference(string(top), cached.Source, time.Since(start))
			return &Result{
				HighestLabel: top,
				Distribution: dist,
				PairKey:      key,
				MessageCount: fp.MessageCount,
				Cached:       true,
				Source:       cached.Source,
			}, nil
		}
		e.metrics.RecordCacheLookup(false)
	}

	fmsgs := toFeatureMessages(msgs)
	heuristic := e.extractor.Extract(fmsgs)
	raw := e.classifier.Score(heuristic)

	var decision Decision
	if o.heuristicOnly {
		decision = Decision{Features: heuristic, Source: SourceHeuristic, Reason: "heuristic only"}
	} else {
		decision = e.gate.Decide(ctx, fmsgs, heuristic, raw)
	}
	if decision.Source == SourceExternal {
		raw = e.classifier.Score(decision.Features)
	}
	dist, top := scoring.Normalize(raw)

	res := &Result{
		HighestLabel: top,
		Distribution: dist,
		PairKey:      key,
		MessageCount: fp.MessageCount,
		Source:       decision.Source,
	}
	e.metrics.RecordInference(string(top), decision.Source, time.Since(start))
	if o.dryRun {
		return res, nil
	}

	created, err := e.summaries.UpsertSummary(ctx, &store.Summary{
		PairKey:       key,
		UserA:         a,
		UserB:         b,
		Features:      decision.Features,
		Label:         string(top),
		Confidence:    dist[top],
		Source:        decision.Source,
		LastMessageAt: fp.LastMessageAt,
		MessageCount:  fp.MessageCount,
	})
	if err != nil {
		e.logger.Warn("cache: store failed", "pair", key, "error", err)
		res.storeErr = err
	}
	res.Created = created

	if e.runs != nil {
		if err := e.runs.RecordRun(ctx, &store.InferenceRun{
			RunID:        o.runID,
			PairKey:      key,
			Label:        string(top),
			Confidence:   dist[top],
			Source:       decision.Source,
			Reason:       decision.Reason,
			MessageCount: fp.MessageCount,
		}); err != nil {
			e.logger.Warn("runs: record failed", "pair", key, "error", err)
		}
	}

	e.logger.Debug("inferred",
		"pair", key,
		"label", top,
		"source", decision.Source,
		"messages", fp.MessageCount,
		"reason", decision.Reason)
	return res, nil
}

func toFeatureMessages(msgs []store.Message) []features.Message {
	out := make([]features.Message, len(msgs))
	for i, m := range msgs {
		out[i] = features.Message{Sender: strconv.FormatInt(m.SenderID, 10), Text: m.Body}
	}
	return out
}
