package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata is a free-form string-keyed document attached to chunks and vector
// records. It is stored as a JSON column in SQLite.
type Metadata map[string]any

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata column type %T", src)
	}
}

// Project identifies a tenant workspace. Exactly one vector collection maps to
// each project, named from ProjectID. Projects are created lazily on first
// reference and never deleted here.
type Project struct {
	ID        int64     `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Asset is an uploaded source file belonging to a project.
type Asset struct {
	ID             int64     `db:"id" json:"id"`
	AssetProjectID int64     `db:"asset_project_id" json:"asset_project_id"`
	AssetType      string    `db:"asset_type" json:"asset_type"`
	AssetName      string    `db:"asset_name" json:"asset_name"`
	AssetSize      int64     `db:"asset_size" json:"asset_size"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// AssetTypeFile is the only asset type currently produced by the upload route.
const AssetTypeFile = "file"

// DataChunk is a bounded, ordered slice of a source asset's text. ChunkOrder
// is 1-based and unique within (project, asset) only; the vector store key is
// assigned separately at indexing time.
type DataChunk struct {
	ID             int64    `db:"id" json:"id"`
	ChunkText      string   `db:"chunk_text" json:"chunk_text"`
	ChunkMetadata  Metadata `db:"chunk_metadata" json:"chunk_metadata"`
	ChunkOrder     int      `db:"chunk_order" json:"chunk_order"`
	ChunkProjectID int64    `db:"chunk_project_id" json:"chunk_project_id"`
	ChunkAssetID   int64    `db:"chunk_asset_id" json:"chunk_asset_id"`
}

// RetrievedDocument is an ephemeral similarity-search hit. Score semantics
// depend on the vector store's configured distance method; higher is more
// relevant.
type RetrievedDocument struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
