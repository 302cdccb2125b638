package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Supported backend identifiers.
const (
	BackendGemini = "GEMINI"
	BackendOllama = "OLLAMA"
)

// Config carries everything a provider adapter needs. Unused fields are
// ignored by adapters that do not need them.
type Config struct {
	GeminiAPIKey  string
	OllamaBaseURL string

	GenerationModelID  string
	EmbeddingModelID   string
	EmbeddingModelSize int

	InputMaxCharacters    int
	GenerationMaxTokens   int
	GenerationTemperature float64
}

// NewProvider builds the adapter named by backend.
func NewProvider(ctx context.Context, backend string, cfg Config, logger *zap.Logger) (Provider, error) {
	switch backend {
	case BackendGemini:
		return NewGeminiProvider(ctx, cfg, logger)
	case BackendOllama:
		return NewOllamaProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm backend: %q", backend)
	}
}
