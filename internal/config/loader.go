package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if VERDICT_CONFIG is set
//  3. env (prefix VERDICT_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("VERDICT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: VERDICT_ADDR, VERDICT_QUEUE_SIZE, ...
	// Keys keep their underscores to match the koanf tags on the struct.
	envProvider := env.Provider("VERDICT_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "verdict_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot start with.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StatisticalWeight < 0 || c.GeminiWeight < 0 || c.OpenAIWeight < 0:
		return fmt.Errorf("%w: backend weights must be non-negative", ErrInvalidConfig)
	case c.GeminiEnabled && c.GeminiAPIKey == "":
		return fmt.Errorf("%w: gemini enabled without api key", ErrInvalidConfig)
	case c.OpenAIEnabled && c.OpenAIAPIKey == "":
		return fmt.Errorf("%w: openai enabled without api key", ErrInvalidConfig)
	}
	return nil
}
