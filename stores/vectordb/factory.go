package vectordb

import (
	"fmt"

	"go.uber.org/zap"
)

// Supported backend identifiers.
const (
	BackendQdrant = "QDRANT"
	BackendChroma = "CHROMA"
)

// Config carries the connection settings shared by the adapters.
type Config struct {
	URL            string
	APIKey         string
	DistanceMethod DistanceMethod
}

// NewProvider builds the adapter named by backend. The returned provider is
// not yet connected; callers run Connect once at startup.
func NewProvider(backend string, cfg Config, logger *zap.Logger) (Provider, error) {
	switch backend {
	case BackendQdrant:
		return NewQdrantProvider(cfg, logger), nil
	case BackendChroma:
		return NewChromaProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported vector db backend: %q", backend)
	}
}
