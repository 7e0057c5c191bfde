package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lazypower/rapport/internal/features"
	"github.com/lazypower/rapport/internal/logging"
	"github.com/lazypower/rapport/internal/scoring"
)

// Feature sources recorded with each summary.
const (
	SourceHeuristic = "heuristic"
	SourceExternal  = "external"
	SourceFallback  = "fallback"
)

// gateEpsilon absorbs float error when a score sits exactly on a threshold.
const gateEpsilon = 1e-9

// GateConfig holds the thresholds for trusting heuristic features.
type GateConfig struct {
	MinTop    float64
	MinMargin float64
}

// DefaultGateConfig accepts heuristics when the top raw score is at least
// 0.7 and leads the runner-up by at least 0.15.
func DefaultGateConfig() GateConfig {
	return GateConfig{MinTop: 0.7, MinMargin: 0.15}
}

// Decision is the gate's verdict on which features to score.
type Decision struct {
	Features features.Vector
	Source   string
	Reason   string
}

// Gate decides between heuristic features and the external extractor.
type Gate struct {
	cfg       GateConfig
	extractor FeatureExtractor
	logger    *slog.Logger
}

// NewGate builds a gate. A nil extractor always keeps the heuristics.
func NewGate(cfg GateConfig, extractor FeatureExtractor, logger *slog.Logger) *Gate {
	return &Gate{cfg: cfg, extractor: extractor, logger: logging.Or(logger)}
}

// Confident reports whether raw scores pass both thresholds.
func (g *Gate) Confident(raw scoring.RawScores) (bool, float64, float64) {
	ranked := scoring.Rank(raw)
	top := ranked[0].Score
	margin := top - ranked[1].Score
	ok := top+gateEpsilon >= g.cfg.MinTop && margin+gateEpsilon >= g.cfg.MinMargin
	return ok, top, margin
}

// Decide keeps the heuristic vector when the scores are confident and
// otherwise consults the external extractor. Extractor errors and all-zero
// replies fall back to the heuristic vector.
func (g *Gate) Decide(ctx context.Context, msgs []features.Message, heuristic features.Vector, raw scoring.RawScores) Decision {
	ok, top, margin := g.Confident(raw)
	if ok {
		return Decision{
			Features: heuristic,
			Source:   SourceHeuristic,
			Reason:   fmt.Sprintf("confident: top=%.3f margin=%.3f", top, margin),
		}
	}
	if g.extractor == nil {
		return Decision{
			Features: heuristic,
			Source:   SourceHeuristic,
			Reason:   fmt.Sprintf("ambiguous, no external extractor: top=%.3f margin=%.3f", top, margin),
		}
	}

	ext, err := g.extractor.ExtractFeatures(ctx, msgs)
	if err != nil {
		g.logger.Warn("gate: external extraction failed, using heuristics", "error", err)
		return Decision{
			Features: heuristic,
			Source:   SourceFallback,
			Reason:   truncateClean("external failed: "+err.Error(), 200),
		}
	}
	if ext.IsZero() {
		g.logger.Warn("gate: external extraction returned no signal, using heuristics")
		return Decision{
			Features: heuristic,
			Source:   SourceFallback,
			Reason:   "external returned all zeros",
		}
	}
	return Decision{
		Features: ext.Clamp().Round(),
		Source:   SourceExternal,
		Reason:   fmt.Sprintf("ambiguous: top=%.3f margin=%.3f", top, margin),
	}
}
