// Package llm abstracts the text-generation and embedding capabilities the
// RAG pipeline depends on. Concrete adapters are selected by a factory keyed
// on a configuration string.
package llm

import "context"

// Role tags a chat message. The set is closed: system, user, assistant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DocumentType tells the embedding provider whether the text is indexed
// content or a search query. Some models preprocess the two differently.
type DocumentType string

const (
	DocumentTypeDocument DocumentType = "document"
	DocumentTypeQuery    DocumentType = "query"
)

// Message is one role-tagged entry of a chat history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider is the capability contract every LLM backend implements.
//
// GenerateText and EmbedText honor the caller's context for timeouts; a
// timed-out call surfaces as an error, never silently as empty output. A zero
// maxOutputTokens or temperature means "use the provider's configured
// default".
type Provider interface {
	GenerateText(ctx context.Context, prompt string, chatHistory []Message, maxOutputTokens int, temperature float64) (string, error)
	EmbedText(ctx context.Context, text string, documentType DocumentType) ([]float32, error)

	// EmbeddingSize is the fixed dimensionality of vectors produced by the
	// configured embedding model.
	EmbeddingSize() int

	// ProcessText applies the provider's input preprocessing (truncation to
	// the configured maximum character count, whitespace trim).
	ProcessText(text string) string

	// ConstructMessage builds a chat message in the provider's expected
	// format, preprocessing the text on the way.
	ConstructMessage(text string, role Role) Message
}
