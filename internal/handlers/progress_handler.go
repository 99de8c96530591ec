package handlers

import (
	"net/http"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	"coachapp/internal/services"

	"github.com/gin-gonic/gin"
)

// ProgressSnapshotRequest is the body of PUT /v1/users/:userId/progress/:topicId.
// Values are cumulative; sending the same body twice changes nothing.
type ProgressSnapshotRequest struct {
	MasteryLevel     *float64 `json:"mastery_level" binding:"required,min=0,max=1"`
	TimeSpentMinutes int      `json:"time_spent_minutes" binding:"min=0"`
	Attempts         int      `json:"attempts" binding:"min=0"`
	CorrectAnswers   int      `json:"correct_answers" binding:"min=0,ltefield=Attempts"`
}

// ProgressHandler serves per-topic mastery state
type ProgressHandler struct {
	progressService services.ProgressServiceInterface
	cfg             *config.Config
	logger          *observability.Logger
}

// NewProgressHandler creates a new ProgressHandler instance
func NewProgressHandler(progressService services.ProgressServiceInterface, cfg *config.Config, logger *observability.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		cfg:             cfg,
		logger:          logger,
	}
}

// GetProgress handles GET /v1/users/:userId/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_progress")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	records, err := h.progressService.GetProgress(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "progress": records})
}

// UpsertProgress handles PUT /v1/users/:userId/progress/:topicId
func (h *ProgressHandler) UpsertProgress(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "upsert_progress")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	topicID := c.Param("topicId")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeTopicID(topicID))

	var req ProgressSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid progress snapshot", map[string]interface{}{
			"user_id":  userID,
			"topic_id": topicID,
			"error":    err.Error(),
		})
		HandleValidationError(c, "progress", "request body", err.Error())
		return
	}

	record, err := h.progressService.UpsertProgress(ctx, userID, models.ProgressUpdate{
		TopicID:          topicID,
		MasteryLevel:     *req.MasteryLevel,
		TimeSpentMinutes: req.TimeSpentMinutes,
		Attempts:         req.Attempts,
		CorrectAnswers:   req.CorrectAnswers,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
