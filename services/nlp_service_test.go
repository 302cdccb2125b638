package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minirag/models"
	"minirag/stores/llm"
	"minirag/stores/llm/templates"
	"minirag/stores/vectordb"
)

type stubLLM struct {
	embedFn       func(text string, documentType llm.DocumentType) ([]float32, error)
	generateFn    func(prompt string) (string, error)
	generateCalls int
	size          int
}

func (s *stubLLM) GenerateText(_ context.Context, prompt string, _ []llm.Message, _ int, _ float64) (string, error) {
	s.generateCalls++
	if s.generateFn != nil {
		return s.generateFn(prompt)
	}
	return "stub answer", nil
}

func (s *stubLLM) EmbedText(_ context.Context, text string, documentType llm.DocumentType) ([]float32, error) {
	if s.embedFn != nil {
		return s.embedFn(text, documentType)
	}
	return []float32{0.1, 0.2}, nil
}

func (s *stubLLM) EmbeddingSize() int {
	if s.size > 0 {
		return s.size
	}
	return 2
}

func (s *stubLLM) ProcessText(text string) string { return text }

func (s *stubLLM) ConstructMessage(text string, role llm.Role) llm.Message {
	return llm.Message{Role: role, Content: text}
}

type createCall struct {
	name    string
	doReset bool
}

type stubVectorDB struct {
	collections map[string][]vectordb.Record
	createCalls []createCall
	insertErr   map[int]error // keyed by 1-based insert call number
	insertCalls int
	searchCalls int
	searchHits  []models.RetrievedDocument
	searchErr   error
}

func newStubVectorDB() *stubVectorDB {
	return &stubVectorDB{collections: map[string][]vectordb.Record{}}
}

func (s *stubVectorDB) Connect(context.Context) error { return nil }
func (s *stubVectorDB) Disconnect() error             { return nil }

func (s *stubVectorDB) IsCollectionExisted(_ context.Context, name string) (bool, error) {
	_, ok := s.collections[name]
	return ok, nil
}

func (s *stubVectorDB) ListAllCollections(context.Context) ([]string, error) {
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names, nil
}

func (s *stubVectorDB) GetCollectionInfo(_ context.Context, name string) (*vectordb.CollectionInfo, error) {
	records, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", name)
	}
	return &vectordb.CollectionInfo{Name: name, RecordCount: int64(len(records))}, nil
}

func (s *stubVectorDB) CreateCollection(_ context.Context, name string, _ int, doReset bool) (bool, error) {
	s.createCalls = append(s.createCalls, createCall{name: name, doReset: doReset})
	if _, ok := s.collections[name]; ok && !doReset {
		return false, nil
	}
	s.collections[name] = nil
	return true, nil
}

func (s *stubVectorDB) DeleteCollection(_ context.Context, name string) error {
	delete(s.collections, name)
	return nil
}

func (s *stubVectorDB) InsertMany(_ context.Context, name string, records []vectordb.Record) error {
	s.insertCalls++
	if err := s.insertErr[s.insertCalls]; err != nil {
		return err
	}
	s.collections[name] = append(s.collections[name], records...)
	return nil
}

func (s *stubVectorDB) SearchByVector(_ context.Context, _ string, _ []float32, _ int) ([]models.RetrievedDocument, error) {
	s.searchCalls++
	return s.searchHits, s.searchErr
}

type stubChunkStore struct {
	chunks     []models.DataChunk
	fetchCalls int
}

func (s *stubChunkStore) GetProjectChunks(_ context.Context, _ int64, pageNo, pageSize int) ([]models.DataChunk, error) {
	s.fetchCalls++
	start := (pageNo - 1) * pageSize
	if start >= len(s.chunks) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(s.chunks) {
		end = len(s.chunks)
	}
	return s.chunks[start:end], nil
}

func (s *stubChunkStore) DeleteChunksByProjectID(context.Context, int64) (int, error) {
	n := len(s.chunks)
	s.chunks = nil
	return n, nil
}

func makeChunks(n int) []models.DataChunk {
	chunks := make([]models.DataChunk, n)
	for i := range chunks {
		chunks[i] = models.DataChunk{
			ID:        int64(i + 1),
			ChunkText: fmt.Sprintf("chunk %d", i+1),
		}
	}
	return chunks
}

func testProject() *models.Project {
	return &models.Project{ID: 1, ProjectID: "abc123"}
}

func newTestService(db *stubVectorDB, gen, embed *stubLLM, store *stubChunkStore, pageSize int) NLPService {
	parser := templates.NewParser("en", "en")
	return NewNLPService(db, gen, embed, parser, store, pageSize, zap.NewNop())
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "collection_abc123", CollectionName("abc123"))
	assert.Equal(t, "collection_abc123", CollectionName("  abc123  "))
}

func TestIndexProjectPaginatesUntilEmptyPage(t *testing.T) {
	db := newStubVectorDB()
	store := &stubChunkStore{chunks: makeChunks(5)}
	svc := newTestService(db, &stubLLM{}, &stubLLM{}, store, 2)

	inserted, err := svc.IndexProject(context.Background(), testProject(), false)
	require.NoError(t, err)
	assert.Equal(t, 5, inserted)

	// Three full-or-partial pages plus the empty page that stops the loop.
	assert.Equal(t, 4, store.fetchCalls)

	records := db.collections["collection_abc123"]
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, i, rec.ID)
	}
}

func TestIndexProjectResetAppliesOnlyToFirstPage(t *testing.T) {
	db := newStubVectorDB()
	db.collections["collection_abc123"] = []vectordb.Record{{ID: 99, Text: "stale"}}
	store := &stubChunkStore{chunks: makeChunks(5)}
	svc := newTestService(db, &stubLLM{}, &stubLLM{}, store, 2)

	inserted, err := svc.IndexProject(context.Background(), testProject(), true)
	require.NoError(t, err)
	assert.Equal(t, 5, inserted)

	require.Len(t, db.createCalls, 3)
	assert.True(t, db.createCalls[0].doReset)
	assert.False(t, db.createCalls[1].doReset)
	assert.False(t, db.createCalls[2].doReset)

	// The stale record was wiped once and every new page survived.
	require.Len(t, db.collections["collection_abc123"], 5)
	for i, rec := range db.collections["collection_abc123"] {
		assert.Equal(t, i, rec.ID)
	}
}

func TestIndexProjectEmptyProjectTouchesNothing(t *testing.T) {
	db := newStubVectorDB()
	store := &stubChunkStore{}
	svc := newTestService(db, &stubLLM{}, &stubLLM{}, store, 2)

	inserted, err := svc.IndexProject(context.Background(), testProject(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Empty(t, db.createCalls)
	assert.Equal(t, 0, db.insertCalls)
}

func TestIndexProjectKeepsEarlierPagesOnInsertFailure(t *testing.T) {
	db := newStubVectorDB()
	db.insertErr = map[int]error{2: errors.New("connection refused")}
	store := &stubChunkStore{chunks: makeChunks(4)}
	svc := newTestService(db, &stubLLM{}, &stubLLM{}, store, 2)

	inserted, err := svc.IndexProject(context.Background(), testProject(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVectorInsert)
	assert.Equal(t, 2, inserted)
	assert.Len(t, db.collections["collection_abc123"], 2)
}

func TestIndexProjectHaltsOnEmptyEmbedding(t *testing.T) {
	db := newStubVectorDB()
	embed := &stubLLM{embedFn: func(text string, _ llm.DocumentType) ([]float32, error) {
		if text == "chunk 3" {
			return nil, nil
		}
		return []float32{0.5}, nil
	}}
	store := &stubChunkStore{chunks: makeChunks(4)}
	svc := newTestService(db, &stubLLM{}, embed, store, 2)

	inserted, err := svc.IndexProject(context.Background(), testProject(), false)
	require.Error(t, err)
	assert.Equal(t, 2, inserted)
}

func TestSearchCollectionFailsClosedOnEmbeddingError(t *testing.T) {
	db := newStubVectorDB()
	db.collections["collection_abc123"] = nil
	embed := &stubLLM{embedFn: func(string, llm.DocumentType) ([]float32, error) {
		return nil, errors.New("provider down")
	}}
	svc := newTestService(db, &stubLLM{}, embed, &stubChunkStore{}, 2)

	results, err := svc.SearchCollection(context.Background(), testProject(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, db.searchCalls)
}

func TestSearchCollectionFailsClosedOnEmptyEmbedding(t *testing.T) {
	db := newStubVectorDB()
	db.collections["collection_abc123"] = nil
	embed := &stubLLM{embedFn: func(string, llm.DocumentType) ([]float32, error) {
		return []float32{}, nil
	}}
	svc := newTestService(db, &stubLLM{}, embed, &stubChunkStore{}, 2)

	results, err := svc.SearchCollection(context.Background(), testProject(), "garbage", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, db.searchCalls)
}

func TestSearchCollectionMissingCollection(t *testing.T) {
	db := newStubVectorDB()
	svc := newTestService(db, &stubLLM{}, &stubLLM{}, &stubChunkStore{}, 2)

	results, err := svc.SearchCollection(context.Background(), testProject(), "query", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, db.searchCalls)
}

func TestAnswerQuestionSkipsGenerationOnEmptyRetrieval(t *testing.T) {
	db := newStubVectorDB()
	db.collections["collection_abc123"] = nil
	gen := &stubLLM{}
	svc := newTestService(db, gen, &stubLLM{}, &stubChunkStore{}, 2)

	answer, fullPrompt, history, err := svc.AnswerQuestion(context.Background(), testProject(), "what is x", 5)
	require.NoError(t, err)
	assert.Empty(t, answer)
	assert.Empty(t, fullPrompt)
	assert.Empty(t, history)
	assert.Equal(t, 0, gen.generateCalls)
}

func TestAnswerQuestionAssemblesPrompt(t *testing.T) {
	db := newStubVectorDB()
	db.collections["collection_abc123"] = nil
	db.searchHits = []models.RetrievedDocument{
		{Text: "A is...", Score: 0.9},
		{Text: "B is...", Score: 0.8},
	}

	var seenPrompt string
	gen := &stubLLM{generateFn: func(prompt string) (string, error) {
		seenPrompt = prompt
		return "the answer", nil
	}}

	table := templates.Table{
		"en": {
			"rag": {
				"system_prompt":   "You answer from context only.",
				"document_prompt": "[{{.doc_num}}] {{.chunk_text}}",
				"footer_prompt":   "Q: {{.query}}",
			},
		},
	}
	parser := templates.NewParserWithTable(table, "en", "en")
	svc := NewNLPService(db, gen, &stubLLM{}, parser, &stubChunkStore{}, 2, zap.NewNop())

	answer, fullPrompt, history, err := svc.AnswerQuestion(context.Background(), testProject(), "What is X?", 5)
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
	assert.Equal(t, "[1] A is...\n[2] B is...\n\nQ: What is X?", fullPrompt)
	assert.Equal(t, fullPrompt, seenPrompt)

	require.Len(t, history, 1)
	assert.Equal(t, llm.RoleSystem, history[0].Role)
	assert.Equal(t, "You answer from context only.", history[0].Content)
}

func TestAnswerQuestionMissingTemplate(t *testing.T) {
	db := newStubVectorDB()
	db.collections["collection_abc123"] = nil
	db.searchHits = []models.RetrievedDocument{{Text: "doc", Score: 0.5}}

	parser := templates.NewParserWithTable(templates.Table{}, "en", "en")
	gen := &stubLLM{}
	svc := NewNLPService(db, gen, &stubLLM{}, parser, &stubChunkStore{}, 2, zap.NewNop())

	_, _, _, err := svc.AnswerQuestion(context.Background(), testProject(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Equal(t, 0, gen.generateCalls)
}

func TestAnswerQuestionWrapsGenerationFailure(t *testing.T) {
	db := newStubVectorDB()
	db.collections["collection_abc123"] = nil
	db.searchHits = []models.RetrievedDocument{{Text: "doc", Score: 0.5}}
	gen := &stubLLM{generateFn: func(string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	svc := newTestService(db, gen, &stubLLM{}, &stubChunkStore{}, 2)

	_, _, _, err := svc.AnswerQuestion(context.Background(), testProject(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestIndexThenSearchRoundTrip(t *testing.T) {
	db := newStubVectorDB()
	store := &stubChunkStore{chunks: makeChunks(3)}
	svc := newTestService(db, &stubLLM{}, &stubLLM{}, store, 2)

	inserted, err := svc.IndexProject(context.Background(), testProject(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	records := db.collections["collection_abc123"]
	require.Len(t, records, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{records[0].ID, records[1].ID, records[2].ID})

	info, err := svc.GetCollectionInfo(context.Background(), testProject())
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.RecordCount)

	db.searchHits = []models.RetrievedDocument{{Text: records[0].Text, Score: 0.99}}
	results, err := svc.SearchCollection(context.Background(), testProject(), "chunk", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk 1", results[0].Text)
}
