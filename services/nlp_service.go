package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"minirag/models"
	"minirag/stores/llm"
	"minirag/stores/vectordb"
)

// ChunkStore is the slice of chunk persistence the NLP service consumes.
// Paging is 1-indexed; an out-of-range page returns an empty slice.
type ChunkStore interface {
	GetProjectChunks(ctx context.Context, projectID int64, pageNo, pageSize int) ([]models.DataChunk, error)
	DeleteChunksByProjectID(ctx context.Context, projectID int64) (int, error)
}

// TemplateParser resolves localized prompt fragments.
type TemplateParser interface {
	Get(group, key string, vars map[string]any) (string, bool)
}

// NLPService drives the indexing and retrieval pipeline: pushing a project's
// chunks into the vector store, semantic search, and RAG answer assembly.
type NLPService interface {
	// IndexProject makes every persisted chunk of the project searchable.
	// Record ids are a run-local counter starting at 0, deliberately
	// decoupled from chunk database ids. Re-running without doReset
	// duplicates records under fresh ids; callers re-index with doReset=true.
	// On a mid-run insert failure, pages inserted so far remain (partial
	// success, no rollback).
	IndexProject(ctx context.Context, project *models.Project, doReset bool) (int, error)

	// GetCollectionInfo reports metadata for the project's collection.
	GetCollectionInfo(ctx context.Context, project *models.Project) (*vectordb.CollectionInfo, error)

	// SearchCollection embeds the query and returns ranked hits. It fails
	// closed: an empty query embedding, a missing collection, or zero hits
	// all yield an empty result and no error.
	SearchCollection(ctx context.Context, project *models.Project, text string, limit int) ([]models.RetrievedDocument, error)

	// AnswerQuestion retrieves, assembles the localized prompt, and asks the
	// generation provider. An empty retrieval short-circuits to the
	// all-empty triple without calling the generator.
	AnswerQuestion(ctx context.Context, project *models.Project, query string, limit int) (answer, fullPrompt string, chatHistory []llm.Message, err error)

	// ResetCollection deletes the project's collection.
	ResetCollection(ctx context.Context, project *models.Project) error
}

type nlpServiceImpl struct {
	vectorDB         vectordb.Provider
	generationClient llm.Provider
	embeddingClient  llm.Provider
	templateParser   TemplateParser
	chunkStore       ChunkStore
	pageSize         int
	logger           *zap.Logger
}

// NewNLPService wires the NLP service. pageSize bounds how many chunks are
// read (and embedded) per iteration, independent of the vector store's own
// insert batch size.
func NewNLPService(
	vectorDB vectordb.Provider,
	generationClient llm.Provider,
	embeddingClient llm.Provider,
	templateParser TemplateParser,
	chunkStore ChunkStore,
	pageSize int,
	logger *zap.Logger,
) NLPService {
	if pageSize < 1 {
		pageSize = 100
	}
	return &nlpServiceImpl{
		vectorDB:         vectorDB,
		generationClient: generationClient,
		embeddingClient:  embeddingClient,
		templateParser:   templateParser,
		chunkStore:       chunkStore,
		pageSize:         pageSize,
		logger:           logger,
	}
}

// CollectionName derives the vector collection name for a project. One
// project maps to exactly one collection.
func CollectionName(projectID string) string {
	return "collection_" + strings.TrimSpace(projectID)
}

func (s *nlpServiceImpl) IndexProject(ctx context.Context, project *models.Project, doReset bool) (int, error) {
	if project == nil {
		return 0, ErrProjectNotFound
	}

	collectionName := CollectionName(project.ProjectID)
	inserted := 0
	recordID := 0

	for pageNo := 1; ; pageNo++ {
		chunks, err := s.chunkStore.GetProjectChunks(ctx, project.ID, pageNo, s.pageSize)
		if err != nil {
			return inserted, fmt.Errorf("fetching chunks page %d: %w", pageNo, err)
		}
		if len(chunks) == 0 {
			break
		}

		records := make([]vectordb.Record, 0, len(chunks))
		for _, chunk := range chunks {
			vector, err := s.embeddingClient.EmbedText(ctx, chunk.ChunkText, llm.DocumentTypeDocument)
			if err != nil {
				return inserted, fmt.Errorf("embedding chunk %d: %w", chunk.ID, err)
			}
			if len(vector) == 0 {
				return inserted, fmt.Errorf("empty embedding for chunk %d", chunk.ID)
			}
			records = append(records, vectordb.Record{
				ID:       recordID,
				Text:     chunk.ChunkText,
				Metadata: chunk.ChunkMetadata,
				Vector:   vector,
			})
			recordID++
		}

		// The reset applies at most once per run; later pages must not wipe
		// what earlier pages inserted.
		_, err = s.vectorDB.CreateCollection(ctx, collectionName,
			s.embeddingClient.EmbeddingSize(), doReset && pageNo == 1)
		if err != nil {
			return inserted, fmt.Errorf("%w: preparing collection %q: %v", ErrVectorInsert, collectionName, err)
		}

		if err := s.vectorDB.InsertMany(ctx, collectionName, records); err != nil {
			return inserted, fmt.Errorf("%w: page %d: %v", ErrVectorInsert, pageNo, err)
		}
		inserted += len(chunks)

		s.logger.Info("indexed chunk page",
			zap.String("project", project.ProjectID),
			zap.Int("page", pageNo),
			zap.Int("page_chunks", len(chunks)),
			zap.Int("inserted_total", inserted))
	}

	return inserted, nil
}

func (s *nlpServiceImpl) GetCollectionInfo(ctx context.Context, project *models.Project) (*vectordb.CollectionInfo, error) {
	if project == nil {
		return nil, ErrProjectNotFound
	}
	return s.vectorDB.GetCollectionInfo(ctx, CollectionName(project.ProjectID))
}

func (s *nlpServiceImpl) ResetCollection(ctx context.Context, project *models.Project) error {
	if project == nil {
		return ErrProjectNotFound
	}
	return s.vectorDB.DeleteCollection(ctx, CollectionName(project.ProjectID))
}

func (s *nlpServiceImpl) SearchCollection(ctx context.Context, project *models.Project, text string, limit int) ([]models.RetrievedDocument, error) {
	if project == nil {
		return nil, ErrProjectNotFound
	}
	collectionName := CollectionName(project.ProjectID)

	vector, err := s.embeddingClient.EmbedText(ctx, text, llm.DocumentTypeQuery)
	if err != nil || len(vector) == 0 {
		// Garbage input legitimately embeds to nothing; treat provider
		// failure the same way and keep the store out of it.
		if err != nil {
			s.logger.Warn("query embedding failed, returning no results",
				zap.String("project", project.ProjectID), zap.Error(err))
		}
		return nil, nil
	}

	exists, err := s.vectorDB.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return nil, fmt.Errorf("checking collection %q: %w", collectionName, err)
	}
	if !exists {
		return nil, nil
	}

	results, err := s.vectorDB.SearchByVector(ctx, collectionName, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("searching collection %q: %w", collectionName, err)
	}
	return results, nil
}

func (s *nlpServiceImpl) AnswerQuestion(ctx context.Context, project *models.Project, query string, limit int) (string, string, []llm.Message, error) {
	retrieved, err := s.SearchCollection(ctx, project, query, limit)
	if err != nil {
		return "", "", nil, err
	}
	if len(retrieved) == 0 {
		// Nothing to ground the answer on: skip the generation call entirely.
		return "", "", nil, nil
	}

	systemPrompt, ok := s.templateParser.Get("rag", "system_prompt", nil)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: rag/system_prompt", ErrTemplateNotFound)
	}

	documentPrompts := make([]string, 0, len(retrieved))
	for idx, doc := range retrieved {
		rendered, ok := s.templateParser.Get("rag", "document_prompt", map[string]any{
			"doc_num":    idx + 1,
			"chunk_text": s.generationClient.ProcessText(doc.Text),
		})
		if !ok {
			return "", "", nil, fmt.Errorf("%w: rag/document_prompt", ErrTemplateNotFound)
		}
		documentPrompts = append(documentPrompts, rendered)
	}

	footerPrompt, ok := s.templateParser.Get("rag", "footer_prompt", map[string]any{
		"query": query,
	})
	if !ok {
		return "", "", nil, fmt.Errorf("%w: rag/footer_prompt", ErrTemplateNotFound)
	}

	chatHistory := []llm.Message{
		s.generationClient.ConstructMessage(systemPrompt, llm.RoleSystem),
	}
	fullPrompt := strings.Join(documentPrompts, "\n") + "\n\n" + footerPrompt

	answer, err := s.generationClient.GenerateText(ctx, fullPrompt, chatHistory, 0, 0)
	if err != nil {
		return "", fullPrompt, chatHistory, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if answer == "" {
		return "", fullPrompt, chatHistory, ErrGeneration
	}
	return answer, fullPrompt, chatHistory, nil
}
