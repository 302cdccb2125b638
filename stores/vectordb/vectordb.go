// Package vectordb abstracts the named-collection vector store the indexing
// and retrieval pipeline writes to and searches. Adapters are selected by a
// factory keyed on a configuration string.
package vectordb

import (
	"context"

	"minirag/models"
)

// DistanceMethod selects how similarity is computed inside a collection.
type DistanceMethod string

const (
	DistanceCosine DistanceMethod = "cosine"
	DistanceDot    DistanceMethod = "dot"
)

// Record is the unit stored in a collection. IDs are caller-assigned and must
// be unique within the collection; the vector's length must equal the
// collection's configured embedding size.
type Record struct {
	ID       int
	Text     string
	Metadata models.Metadata
	Vector   []float32
}

// CollectionInfo is the metadata exposed for one collection.
type CollectionInfo struct {
	Name        string `json:"name"`
	RecordCount int64  `json:"record_count"`
}

// Provider is the capability contract every vector store backend implements.
//
// CreateCollection reports whether a collection was actually created: calling
// it without doReset on an existing collection is a no-op returning false,
// not an error. InsertMany is all-or-nothing per call at this boundary; the
// adapter performs no retries.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect() error

	IsCollectionExisted(ctx context.Context, name string) (bool, error)
	ListAllCollections(ctx context.Context) ([]string, error)
	GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	CreateCollection(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error)
	DeleteCollection(ctx context.Context, name string) error

	InsertMany(ctx context.Context, name string, records []Record) error
	SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]models.RetrievedDocument, error)
}
