package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"minirag/models"
	"minirag/services"
)

// DataController handles file upload and chunk-processing routes.
type DataController struct {
	processService services.ProcessService
	projectStore   services.ProjectStore
}

// NewDataController injects the service dependencies.
func NewDataController(processService services.ProcessService, projectStore services.ProjectStore) *DataController {
	return &DataController{
		processService: processService,
		projectStore:   projectStore,
	}
}

// UploadFile handles POST /data/upload/:project_id (multipart field "file").
func (c *DataController) UploadFile(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalFileUploadFailed})
		return
	}

	if signal, ok := c.processService.ValidateUpload(file.Filename, file.Size); !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": signal})
		return
	}

	project, err := c.projectStore.GetProjectOrCreateOne(ctx.Request.Context(), ctx.Param("project_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalProjectNotFoundError})
		return
	}

	storedName, fullPath, err := c.processService.PrepareUploadPath(project, file.Filename)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalFileUploadFailed})
		return
	}

	if err := ctx.SaveUploadedFile(file, fullPath); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalFileUploadFailed})
		return
	}

	asset, err := c.processService.RecordAsset(ctx.Request.Context(), project, storedName, file.Size)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalFileUploadFailed})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"signal":  models.SignalFileUploadSuccess,
		"file_id": asset.AssetName,
	})
}

// ProcessFile handles POST /data/process/:project_id.
func (c *DataController) ProcessFile(ctx *gin.Context) {
	var req models.ProcessRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalProcessingFailed})
		return
	}

	project, err := c.projectStore.GetProjectOrCreateOne(ctx.Request.Context(), ctx.Param("project_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalProjectNotFoundError})
		return
	}

	inserted, err := c.processService.ProcessAssets(ctx.Request.Context(), project, req)
	if err != nil {
		signal := models.SignalProcessingFailed
		switch {
		case errors.Is(err, services.ErrFileNotFound):
			signal = models.SignalFileIDError
		case errors.Is(err, services.ErrNoFiles):
			signal = models.SignalNoFilesError
		case errors.Is(err, services.ErrNoChunks):
			signal = models.SignalNoChunksError
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": signal})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"signal":          models.SignalProcessingSuccess,
		"inserted_chunks": inserted,
	})
}
