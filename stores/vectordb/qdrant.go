package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"minirag/models"
)

// qdrantInsertBatchSize bounds one points upload. Independent of the
// orchestrator's chunk page size.
const qdrantInsertBatchSize = 50

// QdrantProvider implements Provider over Qdrant's REST API.
type QdrantProvider struct {
	url        string
	apiKey     string
	distance   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewQdrantProvider creates an adapter for the Qdrant server at cfg.URL.
func NewQdrantProvider(cfg Config, logger *zap.Logger) *QdrantProvider {
	distance := "Cosine"
	if cfg.DistanceMethod == DistanceDot {
		distance = "Dot"
	}
	return &QdrantProvider{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		distance:   distance,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Connect verifies the server is reachable.
func (p *QdrantProvider) Connect(ctx context.Context) error {
	if err := p.do(ctx, http.MethodGet, "/collections", nil, nil); err != nil {
		return fmt.Errorf("connecting to qdrant at %s: %w", p.url, err)
	}
	return nil
}

// Disconnect releases idle connections.
func (p *QdrantProvider) Disconnect() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// IsCollectionExisted implements Provider.
func (p *QdrantProvider) IsCollectionExisted(ctx context.Context, name string) (bool, error) {
	var out struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	err := p.do(ctx, http.MethodGet, "/collections/"+name+"/exists", nil, &out)
	if err != nil {
		return false, err
	}
	return out.Result.Exists, nil
}

// ListAllCollections implements Provider.
func (p *QdrantProvider) ListAllCollections(ctx context.Context) ([]string, error) {
	var out struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := p.do(ctx, http.MethodGet, "/collections", nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Result.Collections))
	for _, c := range out.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

// GetCollectionInfo implements Provider.
func (p *QdrantProvider) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	var out struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
		} `json:"result"`
	}
	if err := p.do(ctx, http.MethodGet, "/collections/"+name, nil, &out); err != nil {
		return nil, err
	}
	return &CollectionInfo{Name: name, RecordCount: out.Result.PointsCount}, nil
}

// CreateCollection implements Provider. With doReset the collection is deleted
// first; without it an existing collection is left untouched and false is
// returned.
func (p *QdrantProvider) CreateCollection(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error) {
	if doReset {
		if err := p.DeleteCollection(ctx, name); err != nil {
			return false, err
		}
	}

	exists, err := p.IsCollectionExisted(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     embeddingSize,
			"distance": p.distance,
		},
	}
	if err := p.do(ctx, http.MethodPut, "/collections/"+name, body, nil); err != nil {
		return false, fmt.Errorf("creating collection %q: %w", name, err)
	}
	p.logger.Info("created qdrant collection",
		zap.String("collection", name), zap.Int("embedding_size", embeddingSize))
	return true, nil
}

// DeleteCollection implements Provider. Deleting a missing collection is a
// no-op.
func (p *QdrantProvider) DeleteCollection(ctx context.Context, name string) error {
	exists, err := p.IsCollectionExisted(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := p.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil); err != nil {
		return fmt.Errorf("deleting collection %q: %w", name, err)
	}
	return nil
}

// InsertMany implements Provider, uploading points in bounded batches.
func (p *QdrantProvider) InsertMany(ctx context.Context, name string, records []Record) error {
	for start := 0; start < len(records); start += qdrantInsertBatchSize {
		end := start + qdrantInsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		points := make([]map[string]any, 0, end-start)
		for _, rec := range records[start:end] {
			points = append(points, map[string]any{
				"id":     rec.ID,
				"vector": rec.Vector,
				"payload": map[string]any{
					"text":     rec.Text,
					"metadata": rec.Metadata,
				},
			})
		}

		body := map[string]any{"points": points}
		if err := p.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", body, nil); err != nil {
			return fmt.Errorf("inserting batch into %q: %w", name, err)
		}
	}
	return nil
}

// SearchByVector implements Provider. No hits yields an empty result, not an
// error; scores are passed through as Qdrant reports them.
func (p *QdrantProvider) SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]models.RetrievedDocument, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var out struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := p.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", body, &out); err != nil {
		return nil, fmt.Errorf("searching collection %q: %w", name, err)
	}

	results := make([]models.RetrievedDocument, 0, len(out.Result))
	for _, r := range out.Result {
		doc := models.RetrievedDocument{Score: r.Score}
		if text, ok := r.Payload["text"].(string); ok {
			doc.Text = text
		}
		results = append(results, doc)
	}
	return results, nil
}

func (p *QdrantProvider) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.url+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("api-key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s returned %s: %s", method, path, resp.Status, string(raw))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
