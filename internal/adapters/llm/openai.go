package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/okian/verdict/internal/domain/outcome"
)

// OpenAI backend identity and defaults.
const (
	// OpenAIName identifies the OpenAI-backed prediction backend.
	OpenAIName = "openai"

	defaultOpenAIModel = "gpt-4o-mini"
	openaiTemperature  = 0.2
	openaiMaxTokens    = 800
)

// The OpenAI-side calibration runs slightly more settlement-heavy and more
// self-assured than Gemini's.
const openaiDefaultConfidence = 0.60

func openaiDefaults() outcome.Distribution {
	return outcome.Distribution{
		outcome.PlaintiffWin: 0.32,
		outcome.DefendantWin: 0.28,
		outcome.Settlement:   0.30,
		outcome.Dismissed:    0.10,
	}
}

// OpenAIConfig configures the OpenAI-compatible generator. BaseURL allows
// pointing at any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// openaiGenerator implements TextGenerator via langchaingo's OpenAI client.
type openaiGenerator struct {
	llm *openai.LLM
}

// NewOpenAI creates the OpenAI-backed prediction backend.
func NewOpenAI(cfg OpenAIConfig, opts ...Option) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}

	clientOpts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai: create client: %w", err)
	}

	gen := &openaiGenerator{llm: client}
	base := []Option{WithCalibration(openaiDefaults(), openaiDefaultConfidence)}
	return NewBackend(OpenAIName, gen, append(base, opts...)...), nil
}

// Generate issues one completion call against the configured model.
func (g *openaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(openaiTemperature),
		llms.WithMaxTokens(openaiMaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if out == "" {
		return "", fmt.Errorf("openai generate: empty response")
	}
	return out, nil
}
