package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini task types for asymmetric retrieval embeddings.
const (
	geminiTaskDocument = "RETRIEVAL_DOCUMENT"
	geminiTaskQuery    = "RETRIEVAL_QUERY"
)

// GeminiProvider implements Provider on top of the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client

	generationModelID string
	embeddingModelID  string
	embeddingSize     int

	inputMaxCharacters    int
	generationMaxTokens   int
	generationTemperature float64

	logger *zap.Logger
}

// NewGeminiProvider creates the Gemini client. The API key must be set.
func NewGeminiProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiProvider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini api key is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiProvider{
		client:                client,
		generationModelID:     cfg.GenerationModelID,
		embeddingModelID:      cfg.EmbeddingModelID,
		embeddingSize:         cfg.EmbeddingModelSize,
		inputMaxCharacters:    cfg.InputMaxCharacters,
		generationMaxTokens:   cfg.GenerationMaxTokens,
		generationTemperature: cfg.GenerationTemperature,
		logger:                logger,
	}, nil
}

// EmbeddingSize implements Provider.
func (p *GeminiProvider) EmbeddingSize() int { return p.embeddingSize }

// ProcessText implements Provider.
func (p *GeminiProvider) ProcessText(text string) string {
	return truncate(text, p.inputMaxCharacters)
}

// ConstructMessage implements Provider.
func (p *GeminiProvider) ConstructMessage(text string, role Role) Message {
	return Message{Role: role, Content: p.ProcessText(text)}
}

// GenerateText implements Provider. System-role history entries become the
// model's system instruction; the prompt is appended as the final user turn.
func (p *GeminiProvider) GenerateText(ctx context.Context, prompt string, chatHistory []Message, maxOutputTokens int, temperature float64) (string, error) {
	if p.generationModelID == "" {
		return "", errors.New("generation model for gemini was not set")
	}

	if maxOutputTokens == 0 {
		maxOutputTokens = p.generationMaxTokens
	}
	if temperature == 0 {
		temperature = p.generationTemperature
	}

	var systemInstruction *genai.Content
	contents := make([]*genai.Content, 0, len(chatHistory)+1)
	for _, msg := range chatHistory {
		switch msg.Role {
		case RoleSystem:
			systemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	contents = append(contents, genai.NewContentFromText(p.ProcessText(prompt), genai.RoleUser))

	result, err := p.client.Models.GenerateContent(ctx, p.generationModelID, contents, &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		MaxOutputTokens:   int32(maxOutputTokens),
		Temperature:       genai.Ptr(float32(temperature)),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		p.logger.Error("gemini returned an empty generation response",
			zap.String("model", p.generationModelID))
		return "", errors.New("gemini returned no generation candidates")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// EmbedText implements Provider, mapping the document type onto Gemini's
// retrieval task types.
func (p *GeminiProvider) EmbedText(ctx context.Context, text string, documentType DocumentType) ([]float32, error) {
	if p.embeddingModelID == "" {
		return nil, errors.New("embedding model for gemini was not set")
	}

	taskType := geminiTaskDocument
	if documentType == DocumentTypeQuery {
		taskType = geminiTaskQuery
	}

	result, err := p.client.Models.EmbedContent(ctx, p.embeddingModelID,
		genai.Text(text),
		&genai.EmbedContentConfig{TaskType: taskType})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		p.logger.Error("gemini returned an empty embedding",
			zap.String("model", p.embeddingModelID))
		return nil, nil
	}
	return result.Embeddings[0].Values, nil
}

func truncate(text string, max int) string {
	if max > 0 && len(text) > max {
		text = text[:max]
	}
	return strings.TrimSpace(text)
}
