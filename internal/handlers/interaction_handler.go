package handlers

import (
	"net/http"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	"coachapp/internal/services"

	"github.com/gin-gonic/gin"
)

// InteractionHandler ingests quiz answers, session ends and chat messages
type InteractionHandler struct {
	interactionService services.InteractionServiceInterface
	cfg                *config.Config
	logger             *observability.Logger
}

// NewInteractionHandler creates a new InteractionHandler instance
func NewInteractionHandler(interactionService services.InteractionServiceInterface, cfg *config.Config, logger *observability.Logger) *InteractionHandler {
	return &InteractionHandler{
		interactionService: interactionService,
		cfg:                cfg,
		logger:             logger,
	}
}

// RecordQuizAnswer handles POST /v1/users/:userId/interactions/quiz
func (h *InteractionHandler) RecordQuizAnswer(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_quiz_answer")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	var req models.QuizAnswer
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "quiz answer", "request body", err.Error())
		return
	}

	result, err := h.interactionService.RecordQuizAnswer(ctx, userID, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecordSessionEnd handles POST /v1/users/:userId/interactions/session
func (h *InteractionHandler) RecordSessionEnd(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_session_end")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	var req models.SessionEnd
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "session", "request body", err.Error())
		return
	}

	result, err := h.interactionService.RecordSessionEnd(ctx, userID, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecordChatMessage handles POST /v1/users/:userId/interactions/chat
func (h *InteractionHandler) RecordChatMessage(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_chat_message")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	var req models.ChatMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "message", "request body", err.Error())
		return
	}

	result, err := h.interactionService.RecordChatMessage(ctx, userID, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListInteractions handles GET /v1/users/:userId/interactions?limit=
func (h *InteractionHandler) ListInteractions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_interactions")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	interactions, err := h.interactionService.ListInteractions(ctx, userID, ParseLimit(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interactions": interactions})
}
