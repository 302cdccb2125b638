package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"minirag/models"
)

// ProjectStore resolves (or lazily creates) projects by external id.
type ProjectStore interface {
	GetProjectOrCreateOne(ctx context.Context, projectID string) (*models.Project, error)
}

// AssetWatcher re-chunks project files as they change on disk. Files live
// under <filesDir>/<project_id>/<asset_name>, so the owning project is derived
// from the path.
type AssetWatcher struct {
	processService ProcessService
	projectStore   ProjectStore
	filesDir       string
	logger         *zap.Logger
}

// NewAssetWatcher wires a watcher over filesDir.
func NewAssetWatcher(processService ProcessService, projectStore ProjectStore, filesDir string, logger *zap.Logger) *AssetWatcher {
	return &AssetWatcher{
		processService: processService,
		projectStore:   projectStore,
		filesDir:       filesDir,
		logger:         logger,
	}
}

// Watch blocks until ctx is cancelled, reprocessing assets on create/write
// events. Errors on individual files are logged, never fatal.
func (w *AssetWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := os.MkdirAll(w.filesDir, 0o755); err != nil {
		return err
	}
	if err := watcher.Add(w.filesDir); err != nil {
		return err
	}

	// Watch existing per-project directories; new ones are added as their
	// create events arrive.
	entries, err := os.ReadDir(w.filesDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(w.filesDir, entry.Name())); err != nil {
				w.logger.Warn("failed to watch project directory",
					zap.String("dir", entry.Name()), zap.Error(err))
			}
		}
	}

	w.logger.Info("watching asset directory", zap.String("dir", w.filesDir))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-ctx.Done():
			w.logger.Info("asset watcher shutting down")
			return nil
		}
	}
}

func (w *AssetWatcher) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new project directory",
					zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !isSupportedAsset(event.Name) {
		return
	}

	// Editors often write via temp file + rename, producing several events
	// for one save; reprocessing is cheap enough to just run again.
	projectID, assetName, ok := w.splitAssetPath(event.Name)
	if !ok {
		return
	}

	project, err := w.projectStore.GetProjectOrCreateOne(ctx, projectID)
	if err != nil {
		w.logger.Error("failed to resolve project for changed asset",
			zap.String("project", projectID), zap.Error(err))
		return
	}

	inserted, err := w.processService.ProcessAssets(ctx, project, models.ProcessRequest{
		FileID: assetName,
	})
	if errors.Is(err, ErrFileNotFound) {
		// A file dropped straight into the directory has no asset row yet.
		if info, serr := os.Stat(event.Name); serr == nil {
			if _, rerr := w.processService.RecordAsset(ctx, project, assetName, info.Size()); rerr == nil {
				inserted, err = w.processService.ProcessAssets(ctx, project, models.ProcessRequest{
					FileID: assetName,
				})
			}
		}
	}
	if err != nil {
		w.logger.Warn("failed to reprocess changed asset",
			zap.String("project", projectID),
			zap.String("asset", assetName),
			zap.Error(err))
		return
	}
	w.logger.Info("reprocessed changed asset",
		zap.String("project", projectID),
		zap.String("asset", assetName),
		zap.Int("chunks", inserted))
}

func (w *AssetWatcher) splitAssetPath(path string) (projectID, assetName string, ok bool) {
	rel, err := filepath.Rel(w.filesDir, path)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func isSupportedAsset(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	default:
		return false
	}
}
