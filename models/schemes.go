package models

// PushRequest asks the server to (re)index a project's chunks into the vector
// store. DoReset wipes the target collection before the first insert.
type PushRequest struct {
	DoReset bool `json:"do_reset"`
}

// SearchRequest carries a semantic-search or answer query.
type SearchRequest struct {
	Text  string `json:"text" binding:"required"`
	Limit int    `json:"limit"`
}

// ProcessRequest configures chunking for one asset (FileID set) or for every
// asset of the project (FileID empty).
type ProcessRequest struct {
	FileID      string `json:"file_id"`
	ChunkSize   int    `json:"chunk_size"`
	OverlapSize int    `json:"overlap_size"`
	DoReset     bool   `json:"do_reset"`
}
