package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"minirag/models"
	"minirag/services"
)

// NLPController handles the indexing and retrieval HTTP routes. All failure
// responses are HTTP 400 with a machine-readable signal string.
type NLPController struct {
	nlpService   services.NLPService
	projectStore services.ProjectStore
}

// NewNLPController injects the service dependencies.
func NewNLPController(nlpService services.NLPService, projectStore services.ProjectStore) *NLPController {
	return &NLPController{
		nlpService:   nlpService,
		projectStore: projectStore,
	}
}

// IndexProject handles POST /nlp/index/push/:project_id.
func (c *NLPController) IndexProject(ctx *gin.Context) {
	var req models.PushRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalInsertIntoVectorDBError})
		return
	}

	project, err := c.projectStore.GetProjectOrCreateOne(ctx.Request.Context(), ctx.Param("project_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalProjectNotFoundError})
		return
	}

	inserted, err := c.nlpService.IndexProject(ctx.Request.Context(), project, req.DoReset)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalInsertIntoVectorDBError})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"signal":               models.SignalInsertIntoVectorDBSuccess,
		"inserted_items_count": inserted,
	})
}

// GetIndexInfo handles GET /nlp/index/info/:project_id.
func (c *NLPController) GetIndexInfo(ctx *gin.Context) {
	project, err := c.projectStore.GetProjectOrCreateOne(ctx.Request.Context(), ctx.Param("project_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalProjectNotFoundError})
		return
	}

	info, err := c.nlpService.GetCollectionInfo(ctx.Request.Context(), project)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalVectorDBSearchError})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"signal":          models.SignalVectorDBCollectionRetrieved,
		"collection_info": info,
	})
}

// SearchIndex handles POST /nlp/index/search/:project_id.
func (c *NLPController) SearchIndex(ctx *gin.Context) {
	var req models.SearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalVectorDBSearchError})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	project, err := c.projectStore.GetProjectOrCreateOne(ctx.Request.Context(), ctx.Param("project_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalProjectNotFoundError})
		return
	}

	results, err := c.nlpService.SearchCollection(ctx.Request.Context(), project, req.Text, req.Limit)
	if err != nil || len(results) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalVectorDBSearchError})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"signal":  models.SignalVectorDBSearchSuccess,
		"results": results,
	})
}

// AnswerQuestion handles POST /nlp/index/answer/:project_id.
func (c *NLPController) AnswerQuestion(ctx *gin.Context) {
	var req models.SearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalRAGAnswerError})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	project, err := c.projectStore.GetProjectOrCreateOne(ctx.Request.Context(), ctx.Param("project_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalProjectNotFoundError})
		return
	}

	answer, fullPrompt, chatHistory, err := c.nlpService.AnswerQuestion(ctx.Request.Context(), project, req.Text, req.Limit)
	if err != nil || answer == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"signal": models.SignalRAGAnswerError})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"signal":       models.SignalRAGAnswerSuccess,
		"answer":       answer,
		"full_prompt":  fullPrompt,
		"chat_history": chatHistory,
	})
}
