package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lazypower/rapport/internal/config"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/llm"
	"github.com/lazypower/rapport/internal/logging"
	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/scoring"
	"github.com/lazypower/rapport/internal/store"
)

// app holds what every command needs: config, logger and an open database.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *store.DB
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger := logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: db}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// engine builds the inference engine. With external set, a configured
// provider is wired in; a missing or broken provider only disables it.
func (a *app) engine(external bool, m *metrics.Manager) (*engine.Engine, error) {
	strategy, err := scoring.NewStrategy(a.cfg.Scoring.Strategy)
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{
		engine.WithClassifier(scoring.NewClassifier(strategy)),
		engine.WithGateConfig(engine.GateConfig{MinTop: a.cfg.Gate.MinTop, MinMargin: a.cfg.Gate.MinMargin}),
		engine.WithLogger(a.logger),
		engine.WithMetrics(m),
	}

	if external {
		client, err := llm.NewClient(a.cfg.External)
		switch {
		case errors.Is(err, llm.ErrNoProvider):
			a.logger.Info("external extractor disabled: no provider configured")
		case err != nil:
			a.logger.Warn("external extractor disabled", "error", err)
		default:
			a.logger.Info("external extractor enabled",
				"provider", a.cfg.External.Provider,
				"model", a.cfg.External.Model)
			opts = append(opts, engine.WithExternal(engine.NewLLMExtractor(client,
				engine.WithTimeout(a.cfg.External.Timeout),
				engine.WithRetryBackoff(a.cfg.External.RetryBackoff),
				engine.WithExtractorLogger(a.logger),
				engine.WithExtractorMetrics(m),
			)))
		}
	}

	return engine.NewFromDB(a.db, opts...), nil
}
