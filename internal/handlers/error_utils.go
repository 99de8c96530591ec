package handlers

import (
	"errors"
	"fmt"
	"net/http"

	contextutils "coachapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// statusByCode maps error codes to HTTP statuses; unlisted codes are 500
var statusByCode = map[contextutils.ErrorCode]int{
	contextutils.ErrorCodeInvalidInput:       http.StatusBadRequest,
	contextutils.ErrorCodeMissingRequired:    http.StatusBadRequest,
	contextutils.ErrorCodeInvalidFormat:      http.StatusBadRequest,
	contextutils.ErrorCodeValidationFailed:   http.StatusBadRequest,
	contextutils.ErrorCodeRecordNotFound:     http.StatusNotFound,
	contextutils.ErrorCodeRecordExists:       http.StatusConflict,
	contextutils.ErrorCodeConflict:           http.StatusConflict,
	contextutils.ErrorCodeInvalidProfile:     http.StatusUnprocessableEntity,
	contextutils.ErrorCodeTimeout:            http.StatusRequestTimeout,
	contextutils.ErrorCodeServiceUnavailable: http.StatusServiceUnavailable,
	contextutils.ErrorCodeDatabaseConnection: http.StatusServiceUnavailable,
}

// codeByStatus picks the code and severity for a handler-chosen status
var codeByStatus = map[int]struct {
	code     contextutils.ErrorCode
	severity contextutils.SeverityLevel
}{
	http.StatusBadRequest:          {contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn},
	http.StatusNotFound:            {contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo},
	http.StatusConflict:            {contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo},
	http.StatusUnprocessableEntity: {contextutils.ErrorCodeInvalidProfile, contextutils.SeverityWarn},
	http.StatusServiceUnavailable:  {contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError},
}

// StandardizeHTTPError writes an error body for a status the handler chose itself
func StandardizeHTTPError(c *gin.Context, statusCode int, message, details string) {
	entry, ok := codeByStatus[statusCode]
	if !ok {
		entry.code, entry.severity = contextutils.ErrorCodeInternalError, contextutils.SeverityError
	}
	appErr := contextutils.NewAppError(entry.code, entry.severity, message, details)
	c.JSON(statusCode, appErr.ToJSON())
}

// StandardizeAppError writes err with the status its code maps to
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	c.JSON(mapErrorCodeToHTTPStatus(err.Code), err.ToJSON())
}

// HandleValidationError reports one bad request field
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	StandardizeAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("Invalid %s", field),
		fmt.Sprintf("Value '%v' is invalid: %s", value, reason),
	))
}

// HandleAppError writes any service error; errors without a code become 500
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		StandardizeAppError(c, appErr)
		return
	}
	StandardizeHTTPError(c, http.StatusInternalServerError, "Internal server error", err.Error())
}

func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
