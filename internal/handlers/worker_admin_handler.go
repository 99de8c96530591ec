package handlers

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/observability"
	"coachapp/internal/worker"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// WorkerController is the part of the background planner the admin API drives
type WorkerController interface {
	GetInstance() string
	GetStatus() worker.Status
	GetHistory() []worker.RunRecord
	GetActivityLogs() []worker.ActivityLog
	GetBackoffs() map[int]worker.UserFailureInfo
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	TriggerManualRun() bool
}

var _ WorkerController = (*worker.Worker)(nil)

// WorkerAdminHandler handles worker administration endpoints
type WorkerAdminHandler struct {
	config *config.Config
	worker WorkerController
	logger *observability.Logger
}

// NewWorkerAdminHandlerWithLogger creates a new WorkerAdminHandler
func NewWorkerAdminHandlerWithLogger(cfg *config.Config, w WorkerController, logger *observability.Logger) *WorkerAdminHandler {
	return &WorkerAdminHandler{
		config: cfg,
		worker: w,
		logger: logger,
	}
}

// GetWorkerDetails returns the status together with recent history and activity
func (h *WorkerAdminHandler) GetWorkerDetails(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_details")
	defer observability.FinishSpan(span, nil)

	c.JSON(http.StatusOK, gin.H{
		"instance":      h.worker.GetInstance(),
		"status":        h.worker.GetStatus(),
		"history":       h.worker.GetHistory(),
		"activity_logs": h.worker.GetActivityLogs(),
	})
}

// GetWorkerStatus returns the current worker status
func (h *WorkerAdminHandler) GetWorkerStatus(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_status")
	defer observability.FinishSpan(span, nil)

	c.JSON(http.StatusOK, gin.H{
		"instance": h.worker.GetInstance(),
		"status":   h.worker.GetStatus(),
	})
}

// GetHistory returns past planning passes, newest last
func (h *WorkerAdminHandler) GetHistory(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_history")
	defer observability.FinishSpan(span, nil)

	c.JSON(http.StatusOK, gin.H{"history": h.worker.GetHistory()})
}

// GetActivityLogs returns the activity log, optionally trimmed by ?limit
func (h *WorkerAdminHandler) GetActivityLogs(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_activity_logs")
	defer observability.FinishSpan(span, nil)

	logs := h.worker.GetActivityLogs()
	limit := ParseLimit(c)
	if len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	span.SetAttributes(attribute.Int("logs.count", len(logs)))
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

type backoffEntry struct {
	UserID              int       `json:"user_id"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureTime     time.Time `json:"last_failure_time"`
	NextRetryTime       time.Time `json:"next_retry_time"`
}

// GetBackoffs lists learners whose planning is being retried with backoff
func (h *WorkerAdminHandler) GetBackoffs(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_backoffs")
	defer observability.FinishSpan(span, nil)

	backoffs := h.worker.GetBackoffs()
	entries := make([]backoffEntry, 0, len(backoffs))
	for userID, info := range backoffs {
		entries = append(entries, backoffEntry{
			UserID:              userID,
			ConsecutiveFailures: info.ConsecutiveFailures,
			LastFailureTime:     info.LastFailureTime,
			NextRetryTime:       info.NextRetryTime,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	c.JSON(http.StatusOK, gin.H{"backoffs": entries})
}

// PauseWorker stops future planning passes
func (h *WorkerAdminHandler) PauseWorker(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "pause_worker")
	defer observability.FinishSpan(span, nil)

	h.worker.Pause(ctx)
	c.JSON(http.StatusOK, gin.H{"message": "Worker paused", "status": h.worker.GetStatus()})
}

// ResumeWorker re-enables planning passes
func (h *WorkerAdminHandler) ResumeWorker(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "resume_worker")
	defer observability.FinishSpan(span, nil)

	h.worker.Resume(ctx)
	c.JSON(http.StatusOK, gin.H{"message": "Worker resumed", "status": h.worker.GetStatus()})
}

// TriggerWorkerRun queues an immediate planning pass
func (h *WorkerAdminHandler) TriggerWorkerRun(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "trigger_worker_run")
	defer observability.FinishSpan(span, nil)

	if !h.worker.TriggerManualRun() {
		c.JSON(http.StatusAccepted, gin.H{"message": "Worker run already pending"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Worker run triggered"})
}

// GetConfigz dumps the effective configuration with secrets masked
func (h *WorkerAdminHandler) GetConfigz(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_configz")
	defer observability.FinishSpan(span, nil)

	redacted := *h.config
	if redacted.Email.SMTP.Password != "" {
		redacted.Email.SMTP.Password = "********"
	}
	redacted.Database.URL = redactDatabaseURL(redacted.Database.URL)
	c.IndentedJSON(http.StatusOK, redacted)
}

func redactDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
