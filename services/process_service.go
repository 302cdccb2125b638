package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"minirag/models"
)

// AssetStore is the slice of asset persistence the processing service
// consumes.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	GetAllProjectAssets(ctx context.Context, projectID int64, assetType string) ([]models.Asset, error)
	GetAssetRecord(ctx context.Context, projectID int64, assetName string) (*models.Asset, error)
}

// ChunkWriter persists chunk batches and supports the per-project reset.
type ChunkWriter interface {
	InsertManyChunks(ctx context.Context, chunks []models.DataChunk, batchSize int) (int, error)
	DeleteChunksByProjectID(ctx context.Context, projectID int64) (int, error)
}

// ProcessService turns uploaded project files into persisted, ordered chunks
// ready for indexing.
type ProcessService interface {
	// ValidateUpload checks extension and size limits before a file is
	// accepted.
	ValidateUpload(filename string, size int64) (models.ResponseSignal, bool)

	// PrepareUploadPath builds a unique, traversal-safe destination for an
	// uploaded file under the project's directory, creating the directory
	// as needed.
	PrepareUploadPath(project *models.Project, originalName string) (storedName, fullPath string, err error)

	// RecordAsset stores the asset row for an uploaded file.
	RecordAsset(ctx context.Context, project *models.Project, storedName string, size int64) (*models.Asset, error)

	// ProcessAssets extracts, splits and persists chunks for one asset
	// (req.FileID set) or every file asset of the project. Returns the
	// number of chunks written.
	ProcessAssets(ctx context.Context, project *models.Project, req models.ProcessRequest) (int, error)
}

type processServiceImpl struct {
	assetStore  AssetStore
	chunkWriter ChunkWriter

	filesDir         string
	allowedTypes     []string
	maxSizeBytes     int64
	defaultChunkSize int
	defaultOverlap   int

	logger *zap.Logger
}

// NewProcessService wires the processing service.
func NewProcessService(
	assetStore AssetStore,
	chunkWriter ChunkWriter,
	filesDir string,
	allowedTypes []string,
	maxSizeBytes int64,
	defaultChunkSize, defaultOverlap int,
	logger *zap.Logger,
) ProcessService {
	return &processServiceImpl{
		assetStore:       assetStore,
		chunkWriter:      chunkWriter,
		filesDir:         filesDir,
		allowedTypes:     allowedTypes,
		maxSizeBytes:     maxSizeBytes,
		defaultChunkSize: defaultChunkSize,
		defaultOverlap:   defaultOverlap,
		logger:           logger,
	}
}

func (s *processServiceImpl) ValidateUpload(filename string, size int64) (models.ResponseSignal, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, t := range s.allowedTypes {
		if ext == strings.ToLower(t) {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.SignalFileTypeNotSupported, false
	}
	if size > s.maxSizeBytes {
		return models.SignalFileSizeExceeded, false
	}
	return models.SignalFileValidatedSuccess, true
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func (s *processServiceImpl) PrepareUploadPath(project *models.Project, originalName string) (string, string, error) {
	projectDir := filepath.Join(s.filesDir, project.ProjectID)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating project directory: %w", err)
	}

	cleaned := unsafeFilenameChars.ReplaceAllString(filepath.Base(originalName), "_")
	storedName := uuid.New().String()[:8] + "_" + cleaned

	// Guard against traversal even after cleaning.
	fullPath := filepath.Join(projectDir, storedName)
	if !strings.HasPrefix(fullPath, filepath.Clean(projectDir)+string(os.PathSeparator)) {
		return "", "", fmt.Errorf("invalid file name %q", originalName)
	}
	return storedName, fullPath, nil
}

func (s *processServiceImpl) RecordAsset(ctx context.Context, project *models.Project, storedName string, size int64) (*models.Asset, error) {
	return s.assetStore.CreateAsset(ctx, &models.Asset{
		AssetProjectID: project.ID,
		AssetType:      models.AssetTypeFile,
		AssetName:      storedName,
		AssetSize:      size,
	})
}

func (s *processServiceImpl) ProcessAssets(ctx context.Context, project *models.Project, req models.ProcessRequest) (int, error) {
	if project == nil {
		return 0, ErrProjectNotFound
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.defaultChunkSize
	}
	overlap := req.OverlapSize
	if overlap < 0 || overlap >= chunkSize {
		overlap = s.defaultOverlap
	}

	assets, err := s.resolveAssets(ctx, project, req.FileID)
	if err != nil {
		return 0, err
	}

	if req.DoReset {
		deleted, err := s.chunkWriter.DeleteChunksByProjectID(ctx, project.ID)
		if err != nil {
			return 0, fmt.Errorf("resetting chunks: %w", err)
		}
		s.logger.Info("reset project chunks",
			zap.String("project", project.ProjectID), zap.Int("deleted", deleted))
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
	)

	inserted := 0
	for _, asset := range assets {
		path := filepath.Join(s.filesDir, project.ProjectID, asset.AssetName)
		content, err := ExtractTextFromFile(path)
		if err != nil {
			s.logger.Error("failed to extract asset text, skipping",
				zap.String("project", project.ProjectID),
				zap.String("asset", asset.AssetName),
				zap.Error(err))
			continue
		}

		pieces, err := splitter.SplitText(content)
		if err != nil {
			s.logger.Error("failed to split asset text, skipping",
				zap.String("asset", asset.AssetName), zap.Error(err))
			continue
		}

		chunks := make([]models.DataChunk, 0, len(pieces))
		for i, text := range pieces {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			chunks = append(chunks, models.DataChunk{
				ChunkText:      text,
				ChunkMetadata:  models.Metadata{"source": asset.AssetName},
				ChunkOrder:     i + 1,
				ChunkProjectID: project.ID,
				ChunkAssetID:   asset.ID,
			})
		}
		if len(chunks) == 0 {
			continue
		}

		n, err := s.chunkWriter.InsertManyChunks(ctx, chunks, 100)
		if err != nil {
			return inserted, fmt.Errorf("persisting chunks for %q: %w", asset.AssetName, err)
		}
		inserted += n

		s.logger.Info("processed asset",
			zap.String("project", project.ProjectID),
			zap.String("asset", asset.AssetName),
			zap.Int("chunks", n))
	}

	if inserted == 0 {
		return 0, ErrNoChunks
	}
	return inserted, nil
}

func (s *processServiceImpl) resolveAssets(ctx context.Context, project *models.Project, fileID string) ([]models.Asset, error) {
	if fileID != "" {
		asset, err := s.assetStore.GetAssetRecord(ctx, project.ID, fileID)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
		}
		return []models.Asset{*asset}, nil
	}

	assets, err := s.assetStore.GetAllProjectAssets(ctx, project.ID, models.AssetTypeFile)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, ErrNoFiles
	}
	return assets, nil
}
