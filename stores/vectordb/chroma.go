package vectordb

import (
	"context"
	"fmt"
	"strconv"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"go.uber.org/zap"

	"minirag/models"
)

// ChromaProvider implements Provider over the Chroma v2 HTTP API.
type ChromaProvider struct {
	client chromago.Client
	space  string
	logger *zap.Logger
}

// NewChromaProvider creates a Chroma client for the server at cfg.URL.
func NewChromaProvider(cfg Config, logger *zap.Logger) (*ChromaProvider, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("creating chroma client: %w", err)
	}

	// Chroma names the dot-product space "ip".
	space := "cosine"
	if cfg.DistanceMethod == DistanceDot {
		space = "ip"
	}

	return &ChromaProvider{client: client, space: space, logger: logger}, nil
}

// Connect verifies the server is reachable.
func (p *ChromaProvider) Connect(ctx context.Context) error {
	if _, err := p.client.ListCollections(ctx); err != nil {
		return fmt.Errorf("connecting to chroma: %w", err)
	}
	return nil
}

// Disconnect releases the client's resources.
func (p *ChromaProvider) Disconnect() error {
	return p.client.Close()
}

// IsCollectionExisted implements Provider.
func (p *ChromaProvider) IsCollectionExisted(ctx context.Context, name string) (bool, error) {
	collections, err := p.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("listing collections: %w", err)
	}
	for _, c := range collections {
		if c.Name() == name {
			return true, nil
		}
	}
	return false, nil
}

// ListAllCollections implements Provider.
func (p *ChromaProvider) ListAllCollections(ctx context.Context) ([]string, error) {
	collections, err := p.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	names := make([]string, 0, len(collections))
	for _, c := range collections {
		names = append(names, c.Name())
	}
	return names, nil
}

// GetCollectionInfo implements Provider.
func (p *ChromaProvider) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	collection, err := p.client.GetCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting collection %q: %w", name, err)
	}
	count, err := collection.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting collection %q: %w", name, err)
	}
	return &CollectionInfo{Name: name, RecordCount: int64(count)}, nil
}

// CreateCollection implements Provider. Chroma fixes the embedding size on
// first insert rather than at creation, so only the distance space is pinned
// here; embeddingSize is validated by the server on insert.
func (p *ChromaProvider) CreateCollection(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error) {
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

	_, err = p.client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", p.space),
			),
		),
	)
	if err != nil {
		return false, fmt.Errorf("creating collection %q: %w", name, err)
	}
	p.logger.Info("created chroma collection",
		zap.String("collection", name), zap.Int("embedding_size", embeddingSize))
	return true, nil
}

// DeleteCollection implements Provider. Deleting a missing collection is a
// no-op.
func (p *ChromaProvider) DeleteCollection(ctx context.Context, name string) error {
	exists, err := p.IsCollectionExisted(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := p.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("deleting collection %q: %w", name, err)
	}
	return nil
}

// InsertMany implements Provider.
func (p *ChromaProvider) InsertMany(ctx context.Context, name string, records []Record) error {
	collection, err := p.client.GetCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("getting collection %q: %w", name, err)
	}

	ids := make([]chromago.DocumentID, 0, len(records))
	texts := make([]string, 0, len(records))
	embs := make([]embeddings.Embedding, 0, len(records))
	metas := make([]chromago.DocumentMetadata, 0, len(records))
	for _, rec := range records {
		ids = append(ids, chromago.DocumentID(strconv.Itoa(rec.ID)))
		texts = append(texts, rec.Text)
		embs = append(embs, embeddings.NewEmbeddingFromFloat32(rec.Vector))
		metas = append(metas, toChromaMetadata(rec.Metadata))
	}

	err = collection.Add(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("inserting %d records into %q: %w", len(records), name, err)
	}
	return nil
}

// SearchByVector implements Provider. Chroma reports distances; they are
// converted to similarities (1 - distance) at this adapter boundary so every
// backend exposes higher-is-better scores.
func (p *ChromaProvider) SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]models.RetrievedDocument, error) {
	collection, err := p.client.GetCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting collection %q: %w", name, err)
	}

	results, err := collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", name, err)
	}

	documentGroups := results.GetDocumentsGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	docs := make([]models.RetrievedDocument, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		score := 0.0
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			score = 1 - float64(distanceGroups[0][i])
		}
		docs = append(docs, models.RetrievedDocument{
			Text:  doc.ContentString(),
			Score: score,
		})
	}
	return docs, nil
}

func toChromaMetadata(meta models.Metadata) chromago.DocumentMetadata {
	attrs := make([]*chromago.MetaAttribute, 0, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, chromago.NewStringAttribute(k, val))
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(k, int64(val)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(k, val))
		case float64:
			attrs = append(attrs, chromago.NewFloatAttribute(k, val))
		case bool:
			attrs = append(attrs, chromago.NewBoolAttribute(k, val))
		default:
			attrs = append(attrs, chromago.NewStringAttribute(k, fmt.Sprintf("%v", val)))
		}
	}
	return chromago.NewDocumentMetadata(attrs...)
}
