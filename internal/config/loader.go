package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "RAPPORT_"
	envConfig  = "RAPPORT_CONFIG"
	envNesting = "__"
)

// providerKeyEnv lists the conventional API key variables in the order they
// are probed when no provider is configured.
var providerKeyEnv = []struct{ provider, env string }{
	{"gemini", "GEMINI_API_KEY"},
	{"openai", "OPENAI_API_KEY"},
	{"anthropic", "ANTHROPIC_API_KEY"},
}

// Load builds a Config by layering, low to high precedence:
//  1. Default()
//  2. the YAML file named by RAPPORT_CONFIG, if set
//  3. RAPPORT_ env vars, with "__" separating sections (RAPPORT_SERVER__PORT)
//
// Provider API keys fall back to GEMINI_API_KEY, OPENAI_API_KEY or
// ANTHROPIC_API_KEY.
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envConfig {
			return ""
		}
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, strings.ToLower(envNesting), ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	applyKeyEnv(&cfg.External)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyKeyEnv fills the API key from the provider's conventional variable.
// A key found with no provider configured selects that provider.
func applyKeyEnv(ext *ExternalConfig) {
	if ext.APIKey != "" {
		return
	}
	for _, p := range providerKeyEnv {
		key := os.Getenv(p.env)
		if key == "" {
			continue
		}
		if ext.Provider == "" {
			ext.Provider = p.provider
		}
		if ext.Provider == p.provider {
			ext.APIKey = key
			return
		}
	}
}
