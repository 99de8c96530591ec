// Package contextutils provides error handling utilities and standardized error types
// shared by the coach services, handlers and workers.
package contextutils

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a standardized error code for API responses
type ErrorCode string

const (
	// Storage

	// ErrorCodeDatabaseConnection indicates the database could not be reached
	ErrorCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_ERROR"
	// ErrorCodeDatabaseQuery indicates a failed statement
	ErrorCodeDatabaseQuery ErrorCode = "DATABASE_QUERY_ERROR"
	// ErrorCodeDatabaseTransaction indicates a failed begin, lock or commit
	ErrorCodeDatabaseTransaction ErrorCode = "DATABASE_TRANSACTION_ERROR"
	// ErrorCodeRecordNotFound indicates that a learner, topic, roadmap or item does not exist
	ErrorCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	// ErrorCodeRecordExists indicates a duplicate key
	ErrorCodeRecordExists ErrorCode = "RECORD_ALREADY_EXISTS"
	// ErrorCodeForeignKeyViolation indicates a write referencing a missing row
	ErrorCodeForeignKeyViolation ErrorCode = "FOREIGN_KEY_VIOLATION"

	// Input

	// ErrorCodeInvalidInput indicates that the provided input is invalid
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeMissingRequired indicates that a required field is missing
	ErrorCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"
	// ErrorCodeInvalidFormat indicates a value that could not be parsed
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrorCodeValidationFailed indicates a struct failed validation tags
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Planning

	// ErrorCodeInvalidProfile indicates a profile that cannot drive allocation (unknown exam track)
	ErrorCodeInvalidProfile ErrorCode = "INVALID_PROFILE"
	// ErrorCodeInconsistentState indicates stored data referencing rows that no longer exist
	ErrorCodeInconsistentState ErrorCode = "INCONSISTENT_STATE"
	// ErrorCodeCatalogInvalid indicates the topic catalog failed schema validation
	ErrorCodeCatalogInvalid ErrorCode = "CATALOG_INVALID"

	// Service

	// ErrorCodeServiceUnavailable indicates a collaborator (SMTP, cache) is down or disabled
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeTimeout indicates that a request has timed out
	ErrorCodeTimeout ErrorCode = "REQUEST_TIMEOUT"
	// ErrorCodeInternalError is the code for anything unclassified
	ErrorCodeInternalError ErrorCode = "INTERNAL_SERVER_ERROR"
	// ErrorCodeConflict indicates that an operation conflicts with the current state
	ErrorCodeConflict ErrorCode = "CONFLICT"
)

// SeverityLevel represents the severity of an error for logging and monitoring
type SeverityLevel string

// Severity levels, mildest first
const (
	SeverityInfo  SeverityLevel = "info"
	SeverityWarn  SeverityLevel = "warn"
	SeverityError SeverityLevel = "error"
	SeverityFatal SeverityLevel = "fatal"
)

// AppError represents a structured error with code, severity, and context
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError with the same code, so wrapped sentinels compare equal
func (e *AppError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return e.Code == appErr.Code
	}
	return false
}

func sentinel(code ErrorCode, severity SeverityLevel, message string) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message}
}

// Sentinels. Compare with errors.Is or IsError; wrap with WrapError(f).
var (
	ErrDatabaseConnection  = sentinel(ErrorCodeDatabaseConnection, SeverityError, "Database connection failed")
	ErrDatabaseQuery       = sentinel(ErrorCodeDatabaseQuery, SeverityError, "Database query failed")
	ErrDatabaseTransaction = sentinel(ErrorCodeDatabaseTransaction, SeverityError, "Database transaction failed")
	ErrRecordNotFound      = sentinel(ErrorCodeRecordNotFound, SeverityInfo, "Record not found")
	ErrRecordExists        = sentinel(ErrorCodeRecordExists, SeverityInfo, "Record already exists")
	ErrForeignKeyViolation = sentinel(ErrorCodeForeignKeyViolation, SeverityError, "Foreign key constraint violation")

	ErrInvalidInput     = sentinel(ErrorCodeInvalidInput, SeverityWarn, "Invalid input")
	ErrMissingRequired  = sentinel(ErrorCodeMissingRequired, SeverityWarn, "Missing required field")
	ErrValidationFailed = sentinel(ErrorCodeValidationFailed, SeverityWarn, "Validation failed")

	ErrInvalidProfile    = sentinel(ErrorCodeInvalidProfile, SeverityWarn, "Profile cannot be used for planning")
	ErrInconsistentState = sentinel(ErrorCodeInconsistentState, SeverityWarn, "Stored data references missing records")
	ErrCatalogInvalid    = sentinel(ErrorCodeCatalogInvalid, SeverityFatal, "Topic catalog is invalid")

	ErrServiceUnavailable = sentinel(ErrorCodeServiceUnavailable, SeverityError, "Service unavailable")
	ErrTimeout            = sentinel(ErrorCodeTimeout, SeverityWarn, "Request timeout")
	ErrInternalError      = sentinel(ErrorCodeInternalError, SeverityError, "Internal server error")
	ErrConflict           = sentinel(ErrorCodeConflict, SeverityWarn, "Operation conflicts with current state")
)

// retryableCodes are transient unless raised as fatal
var retryableCodes = map[ErrorCode]bool{
	ErrorCodeTimeout:            true,
	ErrorCodeServiceUnavailable: true,
	ErrorCodeDatabaseConnection: true,
}

// NewAppError creates a new AppError with the specified code, severity, message and details
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message, Details: details}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message, Details: details, Cause: cause}
}

// wrap builds an AppError around err. The code and severity of the first
// AppError in err's chain are kept; anything else becomes an internal error.
func wrap(err error, message string, cause error) *AppError {
	wrapped := &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  message,
		Details:  err.Error(),
		Cause:    cause,
	}
	if appErr, ok := asAppError(err); ok {
		wrapped.Code = appErr.Code
		wrapped.Severity = appErr.Severity
	}
	return wrapped
}

// WrapError wraps an error with additional context, preserving its code
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return wrap(err, context, err)
}

// WrapErrorf wraps an error with formatted context, preserving its code. A %w
// verb in format adds that argument to the unwrap chain.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if strings.Contains(format, "%w") {
		formatted := fmt.Errorf(format, args...)
		return wrap(err, formatted.Error(), formatted)
	}
	return wrap(err, fmt.Sprintf(format, args...), err)
}

// ErrorWithContextf creates a new internal error with a formatted message
func ErrorWithContextf(format string, args ...interface{}) error {
	return sentinel(ErrorCodeInternalError, SeverityError, fmt.Sprintf(format, args...))
}

func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsError reports whether err carries target's code
func IsError(err error, target *AppError) bool {
	appErr, ok := asAppError(err)
	return ok && appErr.Code == target.Code
}

// AsError finds the first AppError in err's chain
func AsError(err error, target **AppError) bool {
	appErr, ok := asAppError(err)
	if ok {
		*target = appErr
	}
	return ok
}

// GetErrorCode returns err's code, or ErrorCodeInternalError for plain errors
func GetErrorCode(err error) ErrorCode {
	if appErr, ok := asAppError(err); ok {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// GetErrorSeverity returns err's severity, or SeverityError for plain errors
func GetErrorSeverity(err error) SeverityLevel {
	if appErr, ok := asAppError(err); ok {
		return appErr.Severity
	}
	return SeverityError
}

// IsRetryable reports whether an error is likely transient. Nothing in the
// coach core retries on its own; callers and the worker use this to decide.
func IsRetryable(err error) bool {
	appErr, ok := asAppError(err)
	return ok && retryableCodes[appErr.Code] && appErr.Severity != SeverityFatal
}

// ToJSON converts an AppError to a JSON-serializable structure for API responses
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":      string(e.Code),
		"message":   e.Message,
		"severity":  string(e.Severity),
		"error":     e.Message,
		"retryable": IsRetryable(e),
	}
	if e.Details != "" {
		result["details"] = e.Details
	}
	if e.Cause != nil && (e.Severity == SeverityError || e.Severity == SeverityFatal) {
		result["cause"] = e.Cause.Error()
	}
	return result
}

// ContextKey represents a context key type for passing values through context
type ContextKey string

// UserIDKey stores the learner id in context for log correlation
const UserIDKey ContextKey = "userID"

// GetUserIDFromContext extracts the user ID from context, returning 0 if not found
func GetUserIDFromContext(ctx context.Context) int {
	if userID, ok := ctx.Value(UserIDKey).(int); ok {
		return userID
	}
	return 0
}

// WithUserID returns a new context with the user ID set
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
