// Package config loads application settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings holds every tunable the server reads at startup. Values are loaded
// once and treated as read-only afterwards.
type Settings struct {
	AppName     string
	AppVersion  string
	ServicePort string

	// Relational storage for projects, assets and chunks.
	DatabasePath string

	// Uploaded files land under FilesDir/<project_id>/.
	FilesDir         string
	FileAllowedTypes []string
	FileMaxSizeMB    int64
	DefaultChunkSize int
	DefaultOverlap   int

	// Page size used when walking a project's chunks during indexing. This is
	// independent of the vector store's insert batch size.
	IndexPageSize int

	GenerationBackend string
	EmbeddingBackend  string

	GeminiAPIKey string
	OllamaBaseURL string

	GenerationModelID  string
	EmbeddingModelID   string
	EmbeddingModelSize int

	InputMaxCharacters   int
	GenerationMaxTokens  int
	GenerationTemperature float64

	VectorDBBackend        string
	VectorDBURL            string
	VectorDBAPIKey         string
	VectorDBDistanceMethod string

	PrimaryLang string
	DefaultLang string

	EnableFileWatcher bool

	UnidocLicenseKey string
}

// Load reads the .env file if present and builds the settings from the
// environment. Missing optional values fall back to sane defaults.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		// Not an error: production deployments set real env vars.
	}

	s := &Settings{
		AppName:     getEnv("APP_NAME", "mini-rag"),
		AppVersion:  getEnv("APP_VERSION", "0.1.0"),
		ServicePort: getEnv("SERVICE_PORT", "8080"),

		DatabasePath: getEnv("DATABASE_PATH", "minirag.db"),

		FilesDir:         getEnv("FILES_DIR", "assets/files"),
		FileAllowedTypes: splitList(getEnv("FILE_ALLOWED_TYPES", ".txt,.md,.pdf")),
		FileMaxSizeMB:    getEnvInt64("FILE_MAX_SIZE", 10),
		DefaultChunkSize: getEnvInt("FILE_DEFAULT_CHUNK_SIZE", 512),
		DefaultOverlap:   getEnvInt("FILE_DEFAULT_OVERLAP_SIZE", 64),

		IndexPageSize: getEnvInt("INDEX_PAGE_SIZE", 100),

		GenerationBackend: getEnv("GENERATION_BACKEND", "GEMINI"),
		EmbeddingBackend:  getEnv("EMBEDDING_BACKEND", "OLLAMA"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),

		GenerationModelID:  getEnv("GENERATION_MODEL_ID", "gemini-2.5-flash"),
		EmbeddingModelID:   getEnv("EMBEDDING_MODEL_ID", "nomic-embed-text:v1.5"),
		EmbeddingModelSize: getEnvInt("EMBEDDING_MODEL_SIZE", 768),

		InputMaxCharacters:    getEnvInt("INPUT_DEFAULT_MAX_CHARACTERS", 1024),
		GenerationMaxTokens:   getEnvInt("GENERATION_DEFAULT_MAX_TOKENS", 1000),
		GenerationTemperature: getEnvFloat("GENERATION_DEFAULT_TEMPERATURE", 0.1),

		VectorDBBackend:        getEnv("VECTOR_DB_BACKEND", "QDRANT"),
		VectorDBURL:            getEnv("VECTOR_DB_URL", "http://localhost:6333"),
		VectorDBAPIKey:         os.Getenv("VECTOR_DB_API_KEY"),
		VectorDBDistanceMethod: getEnv("VECTOR_DB_DISTANCE_METHOD", "cosine"),

		PrimaryLang: getEnv("PRIMARY_LANG", "en"),
		DefaultLang: getEnv("DEFAULT_LANG", "en"),

		EnableFileWatcher: getEnvBool("ENABLE_FILE_WATCHER", false),

		UnidocLicenseKey: os.Getenv("UNIDOC_LICENSE_KEY"),
	}

	if s.IndexPageSize <= 0 {
		return nil, fmt.Errorf("INDEX_PAGE_SIZE must be positive, got %d", s.IndexPageSize)
	}
	if s.EmbeddingModelSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_MODEL_SIZE must be positive, got %d", s.EmbeddingModelSize)
	}

	return s, nil
}

// FileMaxSizeBytes returns the upload size limit in bytes.
func (s *Settings) FileMaxSizeBytes() int64 {
	return s.FileMaxSizeMB * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
