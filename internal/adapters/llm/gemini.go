package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/okian/verdict/internal/domain/outcome"
)

// Gemini backend identity and defaults.
const (
	// GeminiName identifies the Gemini-backed prediction backend.
	GeminiName = "gemini"

	defaultGeminiModel = "gemini-2.0-flash"
	geminiTemperature  = 0.2
)

// geminiDefaultConfidence and geminiDefaults reflect observed calibration of
// the provider; they differ deliberately from the OpenAI-side values.
const geminiDefaultConfidence = 0.55

func geminiDefaults() outcome.Distribution {
	return outcome.Distribution{
		outcome.PlaintiffWin: 0.35,
		outcome.DefendantWin: 0.30,
		outcome.Settlement:   0.25,
		outcome.Dismissed:    0.10,
	}
}

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// geminiGenerator implements TextGenerator via the Gemini API.
type geminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGemini creates the Gemini-backed prediction backend.
func NewGemini(ctx context.Context, cfg GeminiConfig, opts ...Option) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	gen := &geminiGenerator{client: client, model: cfg.Model}
	base := []Option{WithCalibration(geminiDefaults(), geminiDefaultConfidence)}
	return NewBackend(GeminiName, gen, append(base, opts...)...), nil
}

// Generate issues one generation call against the configured model.
func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](geminiTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	return text, nil
}
