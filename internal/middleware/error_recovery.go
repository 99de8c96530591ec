// Package middleware holds the gin middleware shared by the coach server and worker.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// RecoveryOptions controls load shedding after repeated server errors.
// A zero Threshold leaves only panic recovery.
type RecoveryOptions struct {
	Threshold int
	Cooldown  time.Duration
}

// RecoveryOptionsFromConfig reads the breaker settings from the server config
func RecoveryOptionsFromConfig(cfg config.ServerConfig) *RecoveryOptions {
	return &RecoveryOptions{
		Threshold: cfg.CircuitBreakerThreshold,
		Cooldown:  cfg.CircuitBreakerCooldown,
	}
}

// breaker opens after threshold consecutive failures and stays open for
// cooldown. The first request after that is let through; one more failure
// reopens it and any success closes it.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
	now       func() time.Time
}

func newBreaker(opts *RecoveryOptions) *breaker {
	if opts == nil || opts.Threshold <= 0 {
		return nil
	}
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = config.DefaultCircuitBreakerCooldown
	}
	return &breaker{threshold: opts.Threshold, cooldown: cooldown, now: time.Now}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.now().Before(b.openUntil)
}

func (b *breaker) record(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status < http.StatusInternalServerError {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = b.now().Add(b.cooldown)
		// half-open: the next failure after cooldown trips it again
		b.failures = b.threshold - 1
	}
}

// ErrorRecoveryMiddleware turns panics into structured 500 responses and
// sheds load with 503 while the breaker is open. logger and opts may be nil.
func ErrorRecoveryMiddleware(logger *observability.Logger, opts *RecoveryOptions) gin.HandlerFunc {
	cb := newBreaker(opts)

	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			stack := string(debug.Stack())
			panicErr, ok := recovered.(error)
			if !ok {
				panicErr = fmt.Errorf("panic: %v", recovered)
			}
			if logger != nil {
				logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
					"http.method": c.Request.Method,
					"http.route":  c.FullPath(),
					"user_id":     c.Param("userId"),
					"stack":       stack,
				})
			}

			appErr := contextutils.NewAppErrorWithCause(
				contextutils.ErrorCodeInternalError,
				contextutils.SeverityFatal,
				"Internal server error",
				"A panic occurred while processing the request",
				panicErr,
			)
			if gin.IsDebugging() {
				appErr.Details += "\n" + stack
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.ToJSON())
			if cb != nil {
				cb.record(http.StatusInternalServerError)
			}
		}()

		if cb != nil && !cb.allow() {
			ServiceUnavailable(c, "Service temporarily unavailable due to repeated errors")
			c.Abort()
			return
		}

		c.Next()

		if cb != nil {
			cb.record(c.Writer.Status())
		}
	}
}

// ServiceUnavailable writes a retryable 503
func ServiceUnavailable(c *gin.Context, msg string) {
	appErr := contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError, msg, "")
	c.JSON(http.StatusServiceUnavailable, appErr.ToJSON())
}
