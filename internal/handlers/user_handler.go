package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	"coachapp/internal/services"
	contextutils "coachapp/internal/utils"

	"github.com/gin-gonic/gin"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ProfileRequest is the body of POST and PUT /v1/users
type ProfileRequest struct {
	Name               string               `json:"name" binding:"required,max=200"`
	Email              *openapi_types.Email `json:"email,omitempty"`
	ExamTrack          models.ExamTrack     `json:"exam_track" binding:"required"`
	TargetExamYear     int                  `json:"target_exam_year" binding:"required"`
	StudyHoursPerDay   int                  `json:"study_hours_per_day"`
	PreferredStudyTime models.StudyTime     `json:"preferred_study_time"`
	AdaptiveDifficulty float64              `json:"adaptive_difficulty"`
	ConfidenceLevel    float64              `json:"confidence_level"`
	WeakSubjects       []string             `json:"weak_subjects"`
	StrongSubjects     []string             `json:"strong_subjects"`
}

// ProfileResponse is the public shape of a learner profile
type ProfileResponse struct {
	ID                 int                  `json:"id"`
	Name               string               `json:"name"`
	Email              *openapi_types.Email `json:"email"`
	ExamTrack          models.ExamTrack     `json:"exam_track"`
	TargetExamYear     int                  `json:"target_exam_year"`
	StudyHoursPerDay   int                  `json:"study_hours_per_day"`
	PreferredStudyTime models.StudyTime     `json:"preferred_study_time"`
	AdaptiveDifficulty float64              `json:"adaptive_difficulty"`
	ConfidenceLevel    float64              `json:"confidence_level"`
	WeakSubjects       []string             `json:"weak_subjects"`
	StrongSubjects     []string             `json:"strong_subjects"`
	MemberSince        openapi_types.Date   `json:"member_since"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// ApplyDirectivesRequest is the body of POST /v1/users/:userId/directives/apply
type ApplyDirectivesRequest struct {
	Directives []models.Directive `json:"directives" binding:"required,min=1"`
}

func (r ProfileRequest) toProfile() *models.UserProfile {
	p := &models.UserProfile{
		Name:               r.Name,
		ExamTrack:          r.ExamTrack,
		TargetExamYear:     r.TargetExamYear,
		StudyHoursPerDay:   r.StudyHoursPerDay,
		PreferredStudyTime: r.PreferredStudyTime,
		AdaptiveDifficulty: r.AdaptiveDifficulty,
		ConfidenceLevel:    r.ConfidenceLevel,
		WeakSubjects:       r.WeakSubjects,
		StrongSubjects:     r.StrongSubjects,
	}
	if r.Email != nil && *r.Email != "" {
		p.Email = sql.NullString{String: string(*r.Email), Valid: true}
	}
	return p
}

func toProfileResponse(p *models.UserProfile) ProfileResponse {
	resp := ProfileResponse{
		ID:                 p.ID,
		Name:               p.Name,
		ExamTrack:          p.ExamTrack,
		TargetExamYear:     p.TargetExamYear,
		StudyHoursPerDay:   p.StudyHoursPerDay,
		PreferredStudyTime: p.PreferredStudyTime,
		AdaptiveDifficulty: p.AdaptiveDifficulty,
		ConfidenceLevel:    p.ConfidenceLevel,
		WeakSubjects:       nonNil(p.WeakSubjects),
		StrongSubjects:     nonNil(p.StrongSubjects),
		MemberSince:        openapi_types.Date{Time: p.CreatedAt},
		UpdatedAt:          p.UpdatedAt,
	}
	// openapi_types.Email refuses to marshal malformed addresses
	if p.Email.Valid && contextutils.IsValidEmail(p.Email.String) {
		email := openapi_types.Email(p.Email.String)
		resp.Email = &email
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UserHandler handles learner profile requests
type UserHandler struct {
	userService services.UserServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreateUser handles POST /v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_user")
	defer observability.FinishSpan(span, nil)

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid create profile request", map[string]interface{}{
			"error": err.Error(),
		})
		HandleValidationError(c, "profile", "request body", err.Error())
		return
	}

	profile, err := h.userService.CreateUser(ctx, req.toProfile())
	if err != nil {
		h.logger.Warn(ctx, "Failed to create profile", map[string]interface{}{
			"error": err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(observability.AttributeUserID(profile.ID))
	c.JSON(http.StatusCreated, toProfileResponse(profile))
}

// GetUser handles GET /v1/users/:userId
func (h *UserHandler) GetUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_user")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	profile, err := h.userService.GetUser(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(profile))
}

// UpdateUser handles PUT /v1/users/:userId
func (h *UserHandler) UpdateUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_user")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid update profile request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		HandleValidationError(c, "profile", "request body", err.Error())
		return
	}

	profile, err := h.userService.UpdateUser(ctx, userID, req.toProfile())
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(profile))
}

// ApplyDirectives handles POST /v1/users/:userId/directives/apply
func (h *UserHandler) ApplyDirectives(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "apply_directives")
	defer observability.FinishSpan(span, nil)

	userID, err := ParseUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	var req ApplyDirectivesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "directives", "request body", err.Error())
		return
	}

	profile, err := h.userService.ApplyDirectives(ctx, userID, req.Directives)
	if err != nil {
		h.logger.Warn(ctx, "Failed to apply directives", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	h.logger.Info(ctx, "Applied adaptation directives", map[string]interface{}{
		"user_id":    userID,
		"directives": len(req.Directives),
	})
	c.JSON(http.StatusOK, toProfileResponse(profile))
}
