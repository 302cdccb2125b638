package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Prefixes understood by nomic-style embedding models to distinguish indexed
// content from search queries.
const (
	ollamaDocumentPrefix = "search_document: "
	ollamaQueryPrefix    = "search_query: "
)

// OllamaProvider implements Provider against a local Ollama server's REST API.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client

	generationModelID string
	embeddingModelID  string
	embeddingSize     int

	inputMaxCharacters    int
	generationMaxTokens   int
	generationTemperature float64

	logger *zap.Logger
}

// NewOllamaProvider creates an adapter talking to cfg.OllamaBaseURL.
func NewOllamaProvider(cfg Config, logger *zap.Logger) *OllamaProvider {
	return &OllamaProvider{
		baseURL:               strings.TrimRight(cfg.OllamaBaseURL, "/"),
		httpClient:            &http.Client{Timeout: 120 * time.Second},
		generationModelID:     cfg.GenerationModelID,
		embeddingModelID:      cfg.EmbeddingModelID,
		embeddingSize:         cfg.EmbeddingModelSize,
		inputMaxCharacters:    cfg.InputMaxCharacters,
		generationMaxTokens:   cfg.GenerationMaxTokens,
		generationTemperature: cfg.GenerationTemperature,
		logger:                logger,
	}
}

// EmbeddingSize implements Provider.
func (p *OllamaProvider) EmbeddingSize() int { return p.embeddingSize }

// ProcessText implements Provider.
func (p *OllamaProvider) ProcessText(text string) string {
	return truncate(text, p.inputMaxCharacters)
}

// ConstructMessage implements Provider.
func (p *OllamaProvider) ConstructMessage(text string, role Role) Message {
	return Message{Role: role, Content: p.ProcessText(text)}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedText implements Provider. The document type is expressed through the
// nomic-style task prefixes.
func (p *OllamaProvider) EmbedText(ctx context.Context, text string, documentType DocumentType) ([]float32, error) {
	if p.embeddingModelID == "" {
		return nil, errors.New("embedding model for ollama was not set")
	}

	prefix := ollamaDocumentPrefix
	if documentType == DocumentTypeQuery {
		prefix = ollamaQueryPrefix
	}

	var out ollamaEmbedResponse
	err := p.postJSON(ctx, "/api/embeddings", ollamaEmbedRequest{
		Model:  p.embeddingModelID,
		Prompt: prefix + text,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding failed: %w", err)
	}

	if len(out.Embedding) == 0 {
		p.logger.Error("ollama returned an empty embedding",
			zap.String("model", p.embeddingModelID))
		return nil, nil
	}
	return out.Embedding, nil
}

type ollamaChatRequest struct {
	Model    string            `json:"model"`
	Messages []Message         `json:"messages"`
	Stream   bool              `json:"stream"`
	Options  ollamaChatOptions `json:"options"`
}

type ollamaChatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
}

// GenerateText implements Provider using Ollama's chat endpoint. The prompt is
// appended to the history as the final user message.
func (p *OllamaProvider) GenerateText(ctx context.Context, prompt string, chatHistory []Message, maxOutputTokens int, temperature float64) (string, error) {
	if p.generationModelID == "" {
		return "", errors.New("generation model for ollama was not set")
	}

	if maxOutputTokens == 0 {
		maxOutputTokens = p.generationMaxTokens
	}
	if temperature == 0 {
		temperature = p.generationTemperature
	}

	messages := make([]Message, 0, len(chatHistory)+1)
	messages = append(messages, chatHistory...)
	messages = append(messages, p.ConstructMessage(prompt, RoleUser))

	var out ollamaChatResponse
	err := p.postJSON(ctx, "/api/chat", ollamaChatRequest{
		Model:    p.generationModelID,
		Messages: messages,
		Stream:   false,
		Options: ollamaChatOptions{
			Temperature: temperature,
			NumPredict:  maxOutputTokens,
		},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("ollama generation failed: %w", err)
	}

	if out.Message.Content == "" {
		p.logger.Error("ollama returned an empty generation response",
			zap.String("model", p.generationModelID))
		return "", errors.New("ollama returned no generated text")
	}
	return out.Message.Content, nil
}

func (p *OllamaProvider) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
