package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lazypower/rapport/internal/features"
	"github.com/lazypower/rapport/internal/llm"
	"github.com/lazypower/rapport/internal/logging"
	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/transcript"
)

// ErrExtractorUnavailable is returned when the external extractor cannot
// produce features. Callers fall back to the heuristic vector.
var ErrExtractorUnavailable = errors.New("external extractor unavailable")

const (
	defaultExternalTimeout = 30 * time.Second
	defaultRetryBackoff    = 500 * time.Millisecond
	maxAttempts            = 2
	responsePrefixLen      = 200
)

// FeatureExtractor produces a feature vector for a conversation.
type FeatureExtractor interface {
	ExtractFeatures(ctx context.Context, msgs []features.Message) (features.Vector, error)
}

// LLMExtractor asks a generative model to score a conversation.
type LLMExtractor struct {
	client   llm.Client
	timeout  time.Duration
	backoff  time.Duration
	maxChars int
	logger   *slog.Logger
	metrics  *metrics.Manager
}

// ExtractorOption configures an LLMExtractor.
type ExtractorOption func(*LLMExtractor)

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) ExtractorOption {
	return func(x *LLMExtractor) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithRetryBackoff sets the pause before the single retry.
func WithRetryBackoff(d time.Duration) ExtractorOption {
	return func(x *LLMExtractor) {
		if d >= 0 {
			x.backoff = d
		}
	}
}

// WithMaxChars caps the condensed conversation sent to the model.
func WithMaxChars(n int) ExtractorOption {
	return func(x *LLMExtractor) {
		if n > 0 {
			x.maxChars = n
		}
	}
}

func WithExtractorLogger(l *slog.Logger) ExtractorOption {
	return func(x *LLMExtractor) { x.logger = l }
}

func WithExtractorMetrics(m *metrics.Manager) ExtractorOption {
	return func(x *LLMExtractor) { x.metrics = m }
}

// NewLLMExtractor wraps client.
func NewLLMExtractor(client llm.Client, opts ...ExtractorOption) *LLMExtractor {
	x := &LLMExtractor{
		client:   client,
		timeout:  defaultExternalTimeout,
		backoff:  defaultRetryBackoff,
		maxChars: transcript.DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(x)
	}
	x.logger = logging.Or(x.logger)
	return x
}

// ExtractFeatures condenses msgs, prompts the model and parses its reply.
// Transient failures get one retry. Any failure yields a zero vector and an
// error wrapping ErrExtractorUnavailable.
func (x *LLMExtractor) ExtractFeatures(ctx context.Context, msgs []features.Message) (features.Vector, error) {
	prompt := llm.FeaturePrompt(transcript.Condense(msgs, x.maxChars))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := x.call(ctx, prompt)
		if err == nil {
			v, perr := parseFeatureResponse(resp.Content)
			if perr != nil {
				x.metrics.RecordExternalCall("invalid")
				x.logger.Warn("external: unparsable response",
					"provider", resp.Provider,
					"error", perr,
					"response_prefix", truncateClean(resp.Content, responsePrefixLen))
				return features.Vector{}, fmt.Errorf("%w: %v", ErrExtractorUnavailable, perr)
			}
			x.metrics.RecordExternalCall("success")
			return v, nil
		}

		lastErr = err
		if attempt == maxAttempts || !llm.IsTransient(err) || ctx.Err() != nil {
			break
		}
		x.metrics.RecordExternalCall("retry")
		x.logger.Info("external: transient failure, retrying", "error", err, "backoff", x.backoff)
		if !sleepCtx(ctx, x.backoff) {
			break
		}
	}

	x.metrics.RecordExternalCall("error")
	x.logger.Warn("external: giving up", "error", lastErr)
	return features.Vector{}, fmt.Errorf("%w: %v", ErrExtractorUnavailable, lastErr)
}

func (x *LLMExtractor) call(ctx context.Context, prompt string) (*llm.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	resp, err := x.client.Complete(callCtx, prompt)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("empty response")
	}
	return resp, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
