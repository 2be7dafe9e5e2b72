// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and env layers override them in Load.
// - External errors are wrapped via this package's sentinel kinds.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON entries.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory batch-scoring queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of batch-scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the duplicate-submission cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxHistory bounds stored training history.
	MaxHistory int `koanf:"max_history"`

	// StatisticalWeight is the statistical backend's blend weight.
	StatisticalWeight float64 `koanf:"statistical_weight"`

	// Gemini backend wiring.
	GeminiEnabled bool    `koanf:"gemini_enabled"`
	GeminiWeight  float64 `koanf:"gemini_weight"`
	GeminiAPIKey  string  `koanf:"gemini_api_key"`
	GeminiModel   string  `koanf:"gemini_model"`

	// OpenAI backend wiring. BaseURL supports OpenAI-compatible endpoints.
	OpenAIEnabled bool    `koanf:"openai_enabled"`
	OpenAIWeight  float64 `koanf:"openai_weight"`
	OpenAIAPIKey  string  `koanf:"openai_api_key"`
	OpenAIModel   string  `koanf:"openai_model"`
	OpenAIBaseURL string  `koanf:"openai_base_url"`
}

// New returns the default configuration. LLM backends start disabled so a
// bare deployment serves statistical-only predictions without credentials.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9090",
		QueueSize:         10_000,
		WorkerCount:       4,
		DedupeSize:        50_000,
		MaxHistory:        100_000,
		StatisticalWeight: 0.25,
		GeminiWeight:      0.40,
		OpenAIWeight:      0.35,
	}
}
