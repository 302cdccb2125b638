package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minirag/models"
	"minirag/services"
	"minirag/stores/llm"
	"minirag/stores/vectordb"
)

type stubProjectStore struct {
	err error
}

func (s *stubProjectStore) GetProjectOrCreateOne(_ context.Context, projectID string) (*models.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Project{ID: 1, ProjectID: projectID}, nil
}

type stubNLPService struct {
	indexInserted int
	indexErr      error

	info    *vectordb.CollectionInfo
	infoErr error

	searchResults []models.RetrievedDocument
	searchErr     error
	searchLimit   int

	answer    string
	answerErr error
}

func (s *stubNLPService) IndexProject(context.Context, *models.Project, bool) (int, error) {
	return s.indexInserted, s.indexErr
}

func (s *stubNLPService) GetCollectionInfo(context.Context, *models.Project) (*vectordb.CollectionInfo, error) {
	return s.info, s.infoErr
}

func (s *stubNLPService) SearchCollection(_ context.Context, _ *models.Project, _ string, limit int) ([]models.RetrievedDocument, error) {
	s.searchLimit = limit
	return s.searchResults, s.searchErr
}

func (s *stubNLPService) AnswerQuestion(context.Context, *models.Project, string, int) (string, string, []llm.Message, error) {
	if s.answerErr != nil {
		return "", "", nil, s.answerErr
	}
	return s.answer, "full prompt", []llm.Message{{Role: llm.RoleSystem, Content: "sys"}}, nil
}

func (s *stubNLPService) ResetCollection(context.Context, *models.Project) error { return nil }

func newNLPTestRouter(svc services.NLPService, store services.ProjectStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	c := NewNLPController(svc, store)
	router := gin.New()
	router.POST("/nlp/index/push/:project_id", c.IndexProject)
	router.GET("/nlp/index/info/:project_id", c.GetIndexInfo)
	router.POST("/nlp/index/search/:project_id", c.SearchIndex)
	router.POST("/nlp/index/answer/:project_id", c.AnswerQuestion)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

func TestIndexProjectRouteSuccess(t *testing.T) {
	svc := &stubNLPService{indexInserted: 7}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/push/abc123", models.PushRequest{DoReset: true})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.SignalInsertIntoVectorDBSuccess), payload["signal"])
	assert.Equal(t, float64(7), payload["inserted_items_count"])
}

func TestIndexProjectRouteFailure(t *testing.T) {
	svc := &stubNLPService{indexErr: services.ErrVectorInsert}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/push/abc123", models.PushRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(models.SignalInsertIntoVectorDBError), payload["signal"])
}

func TestIndexProjectRouteProjectLookupFailure(t *testing.T) {
	svc := &stubNLPService{}
	router := newNLPTestRouter(svc, &stubProjectStore{err: errors.New("db down")})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/push/abc123", models.PushRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(models.SignalProjectNotFoundError), payload["signal"])
}

func TestGetIndexInfoRoute(t *testing.T) {
	svc := &stubNLPService{info: &vectordb.CollectionInfo{Name: "collection_abc123", RecordCount: 12}}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodGet, "/nlp/index/info/abc123", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.SignalVectorDBCollectionRetrieved), payload["signal"])

	info := payload["collection_info"].(map[string]any)
	assert.Equal(t, "collection_abc123", info["name"])
	assert.Equal(t, float64(12), info["record_count"])
}

func TestSearchIndexRouteDefaultsLimit(t *testing.T) {
	svc := &stubNLPService{searchResults: []models.RetrievedDocument{{Text: "hit", Score: 0.9}}}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/search/abc123", models.SearchRequest{Text: "query"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.SignalVectorDBSearchSuccess), payload["signal"])
	assert.Equal(t, 5, svc.searchLimit)
}

func TestSearchIndexRouteEmptyResultIsError(t *testing.T) {
	svc := &stubNLPService{}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/search/abc123", models.SearchRequest{Text: "query"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(models.SignalVectorDBSearchError), payload["signal"])
}

func TestSearchIndexRouteRequiresText(t *testing.T) {
	svc := &stubNLPService{searchResults: []models.RetrievedDocument{{Text: "hit"}}}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/search/abc123", map[string]any{"limit": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(models.SignalVectorDBSearchError), payload["signal"])
}

func TestAnswerQuestionRouteSuccess(t *testing.T) {
	svc := &stubNLPService{answer: "the answer"}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/answer/abc123", models.SearchRequest{Text: "q"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.SignalRAGAnswerSuccess), payload["signal"])
	assert.Equal(t, "the answer", payload["answer"])
	assert.Equal(t, "full prompt", payload["full_prompt"])
	assert.NotEmpty(t, payload["chat_history"])
}

func TestAnswerQuestionRouteEmptyAnswerIsError(t *testing.T) {
	svc := &stubNLPService{answer: ""}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/answer/abc123", models.SearchRequest{Text: "q"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(models.SignalRAGAnswerError), payload["signal"])
}

func TestAnswerQuestionRouteGenerationFailure(t *testing.T) {
	svc := &stubNLPService{answerErr: services.ErrGeneration}
	router := newNLPTestRouter(svc, &stubProjectStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/nlp/index/answer/abc123", models.SearchRequest{Text: "q"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(models.SignalRAGAnswerError), payload["signal"])
}
