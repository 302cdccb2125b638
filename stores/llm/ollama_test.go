package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOllamaTestProvider(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOllamaProvider(Config{
		OllamaBaseURL:         server.URL,
		GenerationModelID:     "llama3",
		EmbeddingModelID:      "nomic-embed-text:v1.5",
		EmbeddingModelSize:    4,
		InputMaxCharacters:    1024,
		GenerationMaxTokens:   200,
		GenerationTemperature: 0.2,
	}, zap.NewNop())
}

func TestOllamaEmbedTextUsesTaskPrefixes(t *testing.T) {
	var prompts []string
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts = append(prompts, req.Prompt)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 2, 3, 4}})
	})

	vec, err := p.EmbedText(context.Background(), "some chunk", DocumentTypeDocument)
	require.NoError(t, err)
	assert.Len(t, vec, 4)

	_, err = p.EmbedText(context.Background(), "some question", DocumentTypeQuery)
	require.NoError(t, err)

	require.Len(t, prompts, 2)
	assert.Equal(t, "search_document: some chunk", prompts[0])
	assert.Equal(t, "search_query: some question", prompts[1])
}

func TestOllamaEmbedTextEmptyEmbeddingIsNotAnError(t *testing.T) {
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	})

	vec, err := p.EmbedText(context.Background(), "text", DocumentTypeDocument)
	require.NoError(t, err)
	assert.Nil(t, vec)
}

func TestOllamaEmbedTextServerError(t *testing.T) {
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := p.EmbedText(context.Background(), "text", DocumentTypeDocument)
	require.Error(t, err)
}

func TestOllamaGenerateTextAppendsPromptToHistory(t *testing.T) {
	var got ollamaChatRequest
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: RoleAssistant, Content: "generated"},
		})
	})

	history := []Message{{Role: RoleSystem, Content: "be brief"}}
	answer, err := p.GenerateText(context.Background(), "what is x", history, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "generated", answer)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, RoleUser, got.Messages[1].Role)
	assert.Equal(t, "what is x", got.Messages[1].Content)

	// Zero caller values fall back to the configured defaults.
	assert.Equal(t, 200, got.Options.NumPredict)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
	assert.False(t, got.Stream)
}

func TestOllamaGenerateTextEmptyResponseIsError(t *testing.T) {
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{})
	})

	_, err := p.GenerateText(context.Background(), "q", nil, 0, 0)
	require.Error(t, err)
}

func TestProcessTextTruncates(t *testing.T) {
	p := NewOllamaProvider(Config{InputMaxCharacters: 5, OllamaBaseURL: "http://localhost"}, zap.NewNop())
	assert.Equal(t, "abcde", p.ProcessText("abcdefgh"))
	assert.Equal(t, "ab", p.ProcessText(" ab "))
}
