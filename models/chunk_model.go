package models

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ChunkModel provides access to the chunks table.
type ChunkModel struct {
	db *sqlx.DB
}

// NewChunkModel creates a ChunkModel backed by db.
func NewChunkModel(db *sqlx.DB) *ChunkModel {
	return &ChunkModel{db: db}
}

// InsertManyChunks bulk-inserts chunks in batches inside one transaction per
// batch. Returns the number of rows written.
func (m *ChunkModel) InsertManyChunks(ctx context.Context, chunks []DataChunk, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = 100
	}

	inserted := 0
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		tx, err := m.db.BeginTxx(ctx, nil)
		if err != nil {
			return inserted, fmt.Errorf("beginning chunk batch: %w", err)
		}
		for _, c := range chunks[start:end] {
			_, err := tx.NamedExecContext(ctx,
				`INSERT INTO chunks (chunk_text, chunk_metadata, chunk_order, chunk_project_id, chunk_asset_id)
				 VALUES (:chunk_text, :chunk_metadata, :chunk_order, :chunk_project_id, :chunk_asset_id)`, c)
			if err != nil {
				tx.Rollback()
				return inserted, fmt.Errorf("inserting chunk: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return inserted, fmt.Errorf("committing chunk batch: %w", err)
		}
		inserted += end - start
	}
	return inserted, nil
}

// GetProjectChunks returns one page of a project's chunks in insertion order.
// Paging is 1-indexed; an out-of-range page yields an empty slice, which is
// the indexing loop's termination signal.
func (m *ChunkModel) GetProjectChunks(ctx context.Context, projectID int64, pageNo, pageSize int) ([]DataChunk, error) {
	if pageNo < 1 {
		pageNo = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var chunks []DataChunk
	err := m.db.SelectContext(ctx, &chunks,
		`SELECT id, chunk_text, chunk_metadata, chunk_order, chunk_project_id, chunk_asset_id
		 FROM chunks WHERE chunk_project_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		projectID, pageSize, (pageNo-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("reading chunks page %d: %w", pageNo, err)
	}
	return chunks, nil
}

// DeleteChunksByProjectID removes every chunk of a project and reports how
// many rows were deleted.
func (m *ChunkModel) DeleteChunksByProjectID(ctx context.Context, projectID int64) (int, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM chunks WHERE chunk_project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for project %d: %w", projectID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(n), nil
}
