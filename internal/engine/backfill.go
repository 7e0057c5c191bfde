package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/rapport/internal/store"
)

const (
	defaultBackfillLimit       = 50
	defaultBackfillConcurrency = 4
)

// PairSource enumerates conversations for a backfill.
type PairSource interface {
	ListPairs(ctx context.Context, limit int) ([]store.Pair, error)
	RecentPairMessages(ctx context.Context, a, b int64, limit int) ([]store.Message, error)
}

// BackfillOptions controls a bulk recompute.
type BackfillOptions struct {
	LimitPerPair int  // most recent messages per pair, default 50
	MaxPairs     int  // 0 means every pair
	DryRun       bool // classify without storing
	Concurrency  int  // default 4
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	RunID     string        `json:"run_id"`
	Pairs     int           `json:"pairs"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Backfill recomputes summaries for existing pairs using heuristics only,
// ignoring the cache. Each summary records the fingerprint of the truncated
// conversation it was computed from.
func (e *Engine) Backfill(ctx context.Context, src PairSource, opts BackfillOptions) (*BackfillReport, error) {
	if opts.LimitPerPair <= 0 {
		opts.LimitPerPair = defaultBackfillLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultBackfillConcurrency
	}

	start := time.Now()
	report := &BackfillReport{RunID: uuid.NewString()}

	pairs, err := src.ListPairs(ctx, opts.MaxPairs)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	report.Pairs = len(pairs)
	e.logger.Info("backfill: starting",
		"run_id", report.RunID,
		"pairs", len(pairs),
		"limit_per_pair", opts.LimitPerPair,
		"dry_run", opts.DryRun)

	jobs := make(chan store.Pair)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for range opts.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				outcome := e.backfillPair(ctx, src, p, opts, report.RunID)
				e.metrics.RecordBackfillPair(outcome)
				mu.Lock()
				switch outcome {
				case "failed":
					report.Failed++
				case "created":
					report.Processed++
					report.Created++
				case "updated":
					report.Processed++
					report.Updated++
				default:
					report.Processed++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, p := range pairs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- p:
		}
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(start)
	e.logger.Info("backfill: done",
		"run_id", report.RunID,
		"processed", report.Processed,
		"created", report.Created,
		"updated", report.Updated,
		"failed", report.Failed,
		"duration", report.Duration)
	return report, ctx.Err()
}

func (e *Engine) backfillPair(ctx context.Context, src PairSource, p store.Pair, opts BackfillOptions, runID string) string {
	msgs, err := src.RecentPairMessages(ctx, p.A, p.B, opts.LimitPerPair)
	if err != nil {
		e.logger.Warn("backfill: load messages", "pair", PairKey(p.A, p.B), "error", err)
		return "failed"
	}
	res, err := e.infer(ctx, p.A, p.B, msgs, inferOpts{
		runID:         runID,
		heuristicOnly: true,
		skipCache:     true,
		dryRun:        opts.DryRun,
	})
	if err != nil {
		e.logger.Warn("backfill: infer", "pair", PairKey(p.A, p.B), "error", err)
		return "failed"
	}
	switch {
	case res.storeErr != nil:
		return "failed"
	case opts.DryRun:
		return "dry_run"
	case res.Created:
		return "created"
	default:
		return "updated"
	}
}
