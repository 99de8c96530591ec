package handlers

import (
	"net/http"
	"strings"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	"coachapp/internal/services"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the subject and topic catalog
type CatalogHandler struct {
	catalogService services.CatalogServiceInterface
	cfg            *config.Config
	logger         *observability.Logger
}

// NewCatalogHandler creates a new CatalogHandler instance
func NewCatalogHandler(catalogService services.CatalogServiceInterface, cfg *config.Config, logger *observability.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		cfg:            cfg,
		logger:         logger,
	}
}

// ListSubjects handles GET /v1/subjects?track=
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	track := models.ExamTrack(strings.ToUpper(strings.TrimSpace(c.Query("track"))))
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_subjects", observability.AttributeExamTrack(string(track)))
	defer observability.FinishSpan(span, nil)

	subjects, err := h.catalogService.ListSubjects(ctx, track)
	if err != nil {
		h.logger.Warn(ctx, "Failed to list subjects", map[string]interface{}{
			"track": track,
			"error": err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

// ListTopics handles GET /v1/subjects/:subjectId/topics
func (h *CatalogHandler) ListTopics(c *gin.Context) {
	subjectID := c.Param("subjectId")
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_topics", observability.AttributeSubjectID(subjectID))
	defer observability.FinishSpan(span, nil)

	topics, err := h.catalogService.ListTopics(ctx, subjectID)
	if err != nil {
		h.logger.Warn(ctx, "Failed to list topics", map[string]interface{}{
			"subject_id": subjectID,
			"error":      err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subject_id": subjectID, "topics": topics})
}
