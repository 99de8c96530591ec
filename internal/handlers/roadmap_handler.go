package handlers

import (
	"net/http"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	"coachapp/internal/services"
	contextutils "coachapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ItemStatusRequest is the body of PUT /v1/roadmap-items/:itemId/status
type ItemStatusRequest struct {
	Status models.ItemStatus `json:"status" binding:"required"`
}

// RoadmapHandler serves weekly roadmaps, analytics and adaptation directives
type RoadmapHandler struct {
	roadmapService services.RoadmapServiceInterface
	cfg            *config.Config
	logger         *observability.Logger
}

// NewRoadmapHandler creates a new RoadmapHandler instance
func NewRoadmapHandler(roadmapService services.RoadmapServiceInterface, cfg *config.Config, logger *observability.Logger) *RoadmapHandler {
	return &RoadmapHandler{
		roadmapService: roadmapService,
		cfg:            cfg,
		logger:         logger,
	}
}

// GenerateRoadmap handles POST /v1/users/:userId/roadmaps?week_offset=.
// A freshly built roadmap answers 201; one already stored for the week answers 200.
func (h *RoadmapHandler) GenerateRoadmap(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "generate_roadmap")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	weekOffset, err := ParseWeekOffset(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeWeekOffset(weekOffset))

	roadmap, err := h.roadmapService.GenerateWeeklyRoadmap(ctx, userID, weekOffset)
	if err != nil {
		h.logger.Warn(ctx, "Roadmap generation failed", map[string]interface{}{
			"user_id":     userID,
			"week_offset": weekOffset,
			"error":       err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(observability.AttributeRoadmapID(roadmap.ID.String()), attribute.Bool("roadmap.existing", roadmap.Existing))
	status := http.StatusCreated
	if roadmap.Existing {
		status = http.StatusOK
	}
	c.JSON(status, roadmap)
}

// GetRoadmap handles GET /v1/users/:userId/roadmaps?week_offset=
func (h *RoadmapHandler) GetRoadmap(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_roadmap")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	weekOffset, err := ParseWeekOffset(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeWeekOffset(weekOffset))

	roadmap, err := h.roadmapService.GetRoadmap(ctx, userID, weekOffset)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if roadmap == nil {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "no roadmap for user %d at week offset %d", userID, weekOffset))
		return
	}

	c.JSON(http.StatusOK, roadmap)
}

// GetAnalytics handles GET /v1/users/:userId/roadmaps/analytics?weeks_back=
func (h *RoadmapHandler) GetAnalytics(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_roadmap_analytics")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	weeksBack, err := ParseWeeksBack(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), attribute.Int("analytics.weeks_back", weeksBack))

	analytics, err := h.roadmapService.GetRoadmapAnalytics(ctx, userID, weeksBack)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// GetAdaptations handles GET /v1/users/:userId/roadmaps/adaptations.
// Directives are advisory; applying them is a separate call.
func (h *RoadmapHandler) GetAdaptations(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_adaptations")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	directives, err := h.roadmapService.AdaptRoadmapBasedOnPerformance(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "directives": directives})
}

// UpdateItemStatus handles PUT /v1/roadmap-items/:itemId/status
func (h *RoadmapHandler) UpdateItemStatus(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_roadmap_item_status")
	defer observability.FinishSpan(span, nil)

	itemID, err := ParseItemID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.String("roadmap_item.id", itemID.String()))

	var req ItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "status", "request body", err.Error())
		return
	}

	if err := h.roadmapService.UpdateRoadmapItemStatus(ctx, itemID, req.Status); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": itemID, "status": req.Status})
}
