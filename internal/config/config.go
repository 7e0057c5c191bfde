// Package config defines rapport's configuration and loads it from defaults,
// an optional YAML file and RAPPORT_ environment variables.
package config

import (
	"fmt"
	"time"
)

// Config holds all rapport configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	External ExternalConfig `koanf:"external"`
	Scoring  ScoringConfig  `koanf:"scoring"`
	Gate     GateConfig     `koanf:"gate"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Bind string `koanf:"bind"`
	Port int    `koanf:"port"`
	// RequireSession rejects API calls without a known X-Session-ID.
	RequireSession bool `koanf:"require_session"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"` // empty resolves to store.DefaultDBPath()
}

// ExternalConfig selects the generative model used when heuristics are
// ambiguous. An empty Provider disables the external path.
type ExternalConfig struct {
	Provider     string        `koanf:"provider"` // "gemini", "openai", "anthropic", "ollama"
	Model        string        `koanf:"model"`
	APIKey       string        `koanf:"api_key"`
	BaseURL      string        `koanf:"base_url"`
	Temperature  float64       `koanf:"temperature"`
	Timeout      time.Duration `koanf:"timeout"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

type ScoringConfig struct {
	Strategy string `koanf:"strategy"` // "weighted", "profile", "profile-override"
}

// GateConfig holds the thresholds for accepting heuristic features.
type GateConfig struct {
	MinTop    float64 `koanf:"min_top"`
	MinMargin float64 `koanf:"min_margin"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "text" or "json"
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37780,
		},
		External: ExternalConfig{
			Temperature:  0.2,
			Timeout:      30 * time.Second,
			RetryBackoff: 500 * time.Millisecond,
		},
		Scoring: ScoringConfig{
			Strategy: "weighted",
		},
		Gate: GateConfig{
			MinTop:    0.7,
			MinMargin: 0.15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

var (
	providers  = map[string]bool{"": true, "gemini": true, "openai": true, "anthropic": true, "ollama": true}
	strategies = map[string]bool{"weighted": true, "profile": true, "profile-override": true}
	levels     = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
)

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	case !providers[c.External.Provider]:
		return fmt.Errorf("%w: unknown external.provider %q", ErrInvalidConfig, c.External.Provider)
	case c.External.Timeout <= 0:
		return fmt.Errorf("%w: external.timeout must be positive", ErrInvalidConfig)
	case c.External.RetryBackoff < 0:
		return fmt.Errorf("%w: external.retry_backoff must not be negative", ErrInvalidConfig)
	case !strategies[c.Scoring.Strategy]:
		return fmt.Errorf("%w: unknown scoring.strategy %q", ErrInvalidConfig, c.Scoring.Strategy)
	case c.Gate.MinTop < 0 || c.Gate.MinTop > 1:
		return fmt.Errorf("%w: gate.min_top %v outside [0,1]", ErrInvalidConfig, c.Gate.MinTop)
	case c.Gate.MinMargin < 0 || c.Gate.MinMargin > 1:
		return fmt.Errorf("%w: gate.min_margin %v outside [0,1]", ErrInvalidConfig, c.Gate.MinMargin)
	case !levels[c.Log.Level]:
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}
