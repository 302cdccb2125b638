package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"minirag/config"
	"minirag/controller"
	"minirag/models"
	"minirag/services"
	"minirag/stores/llm"
	"minirag/stores/llm/templates"
	"minirag/stores/vectordb"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := services.SetupPDFLicense(cfg.UnidocLicenseKey); err != nil {
		return err
	}

	db, err := models.OpenDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	projectModel := models.NewProjectModel(db)
	chunkModel := models.NewChunkModel(db)
	assetModel := models.NewAssetModel(db)

	llmConfig := llm.Config{
		GeminiAPIKey:          cfg.GeminiAPIKey,
		OllamaBaseURL:         cfg.OllamaBaseURL,
		GenerationModelID:     cfg.GenerationModelID,
		EmbeddingModelID:      cfg.EmbeddingModelID,
		EmbeddingModelSize:    cfg.EmbeddingModelSize,
		InputMaxCharacters:    cfg.InputMaxCharacters,
		GenerationMaxTokens:   cfg.GenerationMaxTokens,
		GenerationTemperature: cfg.GenerationTemperature,
	}

	generationClient, err := llm.NewProvider(ctx, cfg.GenerationBackend, llmConfig, logger)
	if err != nil {
		return err
	}
	embeddingClient, err := llm.NewProvider(ctx, cfg.EmbeddingBackend, llmConfig, logger)
	if err != nil {
		return err
	}

	vectorDB, err := vectordb.NewProvider(cfg.VectorDBBackend, vectordb.Config{
		URL:            cfg.VectorDBURL,
		APIKey:         cfg.VectorDBAPIKey,
		DistanceMethod: vectordb.DistanceMethod(cfg.VectorDBDistanceMethod),
	}, logger)
	if err != nil {
		return err
	}
	if err := vectorDB.Connect(ctx); err != nil {
		return err
	}
	defer vectorDB.Disconnect()

	templateParser := templates.NewParser(cfg.PrimaryLang, cfg.DefaultLang)

	nlpService := services.NewNLPService(
		vectorDB,
		generationClient,
		embeddingClient,
		templateParser,
		chunkModel,
		cfg.IndexPageSize,
		logger,
	)
	processService := services.NewProcessService(
		assetModel,
		chunkModel,
		cfg.FilesDir,
		cfg.FileAllowedTypes,
		cfg.FileMaxSizeBytes(),
		cfg.DefaultChunkSize,
		cfg.DefaultOverlap,
		logger,
	)

	nlpController := controller.NewNLPController(nlpService, projectModel)
	dataController := controller.NewDataController(processService, projectModel)

	if cfg.EnableFileWatcher {
		watcher := services.NewAssetWatcher(processService, projectModel, cfg.FilesDir, logger)
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("asset watcher failed", zap.Error(err))
			}
		}()
	}

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.AppName,
			"version": cfg.AppVersion,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		data := apiV1.Group("/data")
		{
			data.POST("/upload/:project_id", dataController.UploadFile)
			data.POST("/process/:project_id", dataController.ProcessFile)
		}

		nlp := apiV1.Group("/nlp")
		{
			nlp.POST("/index/push/:project_id", nlpController.IndexProject)
			nlp.GET("/index/info/:project_id", nlpController.GetIndexInfo)
			nlp.POST("/index/search/:project_id", nlpController.SearchIndex)
			nlp.POST("/index/answer/:project_id", nlpController.AnswerQuestion)
		}
	}

	server := &http.Server{
		Addr:    ":" + cfg.ServicePort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("app", cfg.AppName),
			zap.String("port", cfg.ServicePort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
