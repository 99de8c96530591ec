// Package worker contains the background planner that builds each learner's
// weekly roadmap, derives adaptation directives from recent completion data
// and mails the weekly digest. The worker runs independently of HTTP request
// handling and reports its status, run history and activity log over its own
// small admin API.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/observability"
	"coachapp/internal/services"
	"coachapp/internal/services/mailer"
	contextutils "coachapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Status represents the current state of the worker
type Status struct {
	IsRunning       bool      `json:"is_running"`
	IsPaused        bool      `json:"is_paused"`
	CurrentActivity string    `json:"current_activity,omitempty"`
	LastRunStart    time.Time `json:"last_run_start"`
	LastRunFinish   time.Time `json:"last_run_finish"`
	LastRunError    string    `json:"last_run_error,omitempty"`
	NextRun         time.Time `json:"next_run"`
}

// RunRecord tracks individual worker runs
type RunRecord struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"` // Success, Failure
	Details   string        `json:"details"`
}

// ActivityLog represents a single activity log entry
type ActivityLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // INFO, WARN, ERROR
	Message   string    `json:"message"`
	UserID    *int      `json:"user_id,omitempty"`
}

// UserFailureInfo tracks failure information for exponential backoff
type UserFailureInfo struct {
	ConsecutiveFailures int
	LastFailureTime     time.Time
	NextRetryTime       time.Time
}

// RunSummary counts what one planning pass did
type RunSummary struct {
	Pending   int `json:"pending"`
	Generated int `json:"generated"`
	Existing  int `json:"existing"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Digests   int `json:"digests"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("Planned %d of %d learners (%d already planned, %d backing off, %d failed, %d digests sent)",
		s.Generated, s.Pending, s.Existing, s.Skipped, s.Failed, s.Digests)
}

// Worker generates weekly roadmaps in the background
type Worker struct {
	users    services.UserServiceInterface
	catalog  services.CatalogServiceInterface
	roadmaps services.RoadmapServiceInterface
	mailer   mailer.Mailer
	instance string
	cfg      *config.Config
	logger   *observability.Logger

	mu            sync.RWMutex
	status        Status
	history       []RunRecord
	activityLogs  []ActivityLog
	manualTrigger chan bool
	running       sync.Mutex

	failureMu    sync.RWMutex
	userFailures map[int]*UserFailureInfo

	timeNow func() time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(
	users services.UserServiceInterface,
	catalog services.CatalogServiceInterface,
	roadmaps services.RoadmapServiceInterface,
	emailService mailer.Mailer,
	instance string,
	cfg *config.Config,
	logger *observability.Logger,
) *Worker {
	if instance == "" {
		instance = "default"
	}
	return &Worker{
		users:         users,
		catalog:       catalog,
		roadmaps:      roadmaps,
		mailer:        emailService,
		instance:      instance,
		cfg:           cfg,
		logger:        logger,
		status:        Status{IsPaused: cfg.Planner.StartPaused},
		manualTrigger: make(chan bool, 1),
		userFailures:  make(map[int]*UserFailureInfo),
		timeNow:       time.Now,
	}
}

func (w *Worker) interval() time.Duration {
	if w.cfg.Planner.Interval > 0 {
		return w.cfg.Planner.Interval
	}
	return config.DefaultPlannerInterval
}

func (w *Worker) concurrency() int {
	if w.cfg.Planner.Concurrency > 0 {
		return w.cfg.Planner.Concurrency
	}
	return config.DefaultPlannerConcurrency
}

// Start runs the planner loop until ctx is cancelled or Shutdown is called.
// One pass runs immediately, then on every interval tick or manual trigger.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	defer close(done)

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.status.IsRunning = true
	w.status.NextRun = w.timeNow().Add(w.interval())
	paused := w.status.IsPaused
	w.mu.Unlock()

	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	initialStatus := "running"
	if paused {
		initialStatus = "paused"
	}
	w.logger.Info(ctx, "Worker started", map[string]interface{}{
		"instance": w.instance,
		"status":   initialStatus,
		"interval": w.interval().String(),
	})
	w.logActivity("INFO", fmt.Sprintf("Worker %s started (%s)", w.instance, initialStatus), nil)

	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(context.Background(), "Worker shutting down", map[string]interface{}{
				"instance": w.instance,
			})
			w.logActivity("INFO", fmt.Sprintf("Worker %s shutting down", w.instance), nil)
			w.mu.Lock()
			w.status.IsRunning = false
			w.mu.Unlock()
			return

		case <-ticker.C:
			w.run(ctx)

		case <-w.manualTrigger:
			w.logger.Info(ctx, "Worker triggered manually", map[string]interface{}{
				"instance": w.instance,
			})
			w.logActivity("INFO", fmt.Sprintf("Worker %s triggered manually", w.instance), nil)
			w.run(ctx)
		}
	}
}

// run executes a single worker cycle
func (w *Worker) run(ctx context.Context) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run",
		attribute.String("worker.instance", w.instance),
	)
	defer observability.FinishSpan(span, nil)

	w.mu.Lock()
	w.status.NextRun = w.timeNow().Add(w.interval())
	paused := w.status.IsPaused
	w.mu.Unlock()

	if paused {
		span.SetAttributes(attribute.String("pause_reason", "Worker instance paused"))
		w.updateActivity("Paused")
		return
	}

	if !w.running.TryLock() {
		w.logger.Warn(ctx, "Worker run already in progress, skipping", map[string]interface{}{
			"instance": w.instance,
		})
		return
	}
	defer w.running.Unlock()

	w.mu.Lock()
	w.status.LastRunStart = w.timeNow()
	w.mu.Unlock()

	summary, err := w.RunOnce(ctx)

	w.mu.Lock()
	w.status.LastRunFinish = w.timeNow()
	w.status.CurrentActivity = ""
	if err != nil {
		w.status.LastRunError = err.Error()
	} else {
		w.status.LastRunError = ""
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error(ctx, "Worker run failed", err, map[string]interface{}{
			"instance": w.instance,
		})
	}

	details := ""
	if summary != nil {
		details = summary.String()
	}
	w.recordRunHistory(details, err)
}

// RunOnce plans the current week for every learner that has no roadmap yet.
// A failure for one learner does not stop the others; the pass fails only
// when the pending list cannot be loaded or every attempted learner failed.
func (w *Worker) RunOnce(ctx context.Context) (result0 *RunSummary, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "plan_week",
		attribute.String("worker.instance", w.instance),
	)
	defer observability.FinishSpan(span, &err)

	w.updateActivity("Looking for learners without a roadmap")
	userIDs, err := w.roadmaps.ListUsersWithoutRoadmap(ctx, 0)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list learners without a roadmap")
	}

	summary := &RunSummary{Pending: len(userIDs)}
	span.SetAttributes(attribute.Int("users.pending", len(userIDs)))
	if len(userIDs) == 0 {
		w.logger.Info(ctx, "No learners need a roadmap this week", map[string]interface{}{
			"instance": w.instance,
		})
		return summary, nil
	}

	subjectNames, err := w.catalog.SubjectNames(ctx)
	if err != nil {
		w.logger.Warn(ctx, "Subject names unavailable, digests will show subject ids", map[string]interface{}{
			"instance": w.instance,
			"error":    err.Error(),
		})
		subjectNames = nil
	}

	w.updateActivity(fmt.Sprintf("Planning %d learners", len(userIDs)))

	var generated, existing, failed, digests atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency())

	for _, userID := range userIDs {
		if !w.shouldRetryUser(userID) {
			summary.Skipped++
			continue
		}
		g.Go(func() error {
			outcome, err := w.planUser(gctx, userID, subjectNames)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				w.recordUserFailure(gctx, userID)
				w.logger.Error(gctx, "Failed to plan learner", err, map[string]interface{}{
					"instance": w.instance,
					"user_id":  userID,
				})
				w.logActivity("ERROR", fmt.Sprintf("Failed to plan learner %d: %v", userID, err), &userID)
				return nil
			}
			w.recordUserSuccess(gctx, userID)
			if outcome.existing {
				existing.Add(1)
				return nil
			}
			generated.Add(1)
			if outcome.digestSent {
				digests.Add(1)
			}
			return nil
		})
	}

	waitErr := g.Wait()

	summary.Generated = int(generated.Load())
	summary.Existing = int(existing.Load())
	summary.Failed = int(failed.Load())
	summary.Digests = int(digests.Load())

	span.SetAttributes(
		attribute.Int("users.generated", summary.Generated),
		attribute.Int("users.existing", summary.Existing),
		attribute.Int("users.skipped", summary.Skipped),
		attribute.Int("users.failed", summary.Failed),
		attribute.Int("digests.sent", summary.Digests),
	)

	w.logger.Info(ctx, "Weekly planning pass finished", map[string]interface{}{
		"instance":  w.instance,
		"pending":   summary.Pending,
		"generated": summary.Generated,
		"existing":  summary.Existing,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"digests":   summary.Digests,
	})
	w.logActivity("INFO", summary.String(), nil)

	if waitErr != nil {
		return summary, contextutils.WrapError(waitErr, "weekly planning pass interrupted")
	}
	attempted := summary.Pending - summary.Skipped
	if attempted > 0 && summary.Failed == attempted {
		return summary, contextutils.ErrorWithContextf("planning failed for all %d learners", attempted)
	}
	return summary, nil
}

type planOutcome struct {
	existing   bool
	digestSent bool
}

// planUser generates one learner's roadmap, then mails the digest with any
// adaptation directives. Only roadmap generation failures are returned.
func (w *Worker) planUser(ctx context.Context, userID int, subjectNames map[string]string) (result0 planOutcome, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "plan_user",
		observability.AttributeUserID(userID),
		attribute.String("worker.instance", w.instance),
	)
	defer observability.FinishSpan(span, &err)

	roadmap, err := w.roadmaps.GenerateWeeklyRoadmap(ctx, userID, 0)
	if err != nil {
		return planOutcome{}, contextutils.WrapErrorf(err, "failed to generate roadmap for learner %d", userID)
	}
	if roadmap.Existing {
		span.SetAttributes(attribute.Bool("roadmap.existing", true))
		return planOutcome{existing: true}, nil
	}

	w.logActivity("INFO", fmt.Sprintf("Generated week %d roadmap with %d items", roadmap.WeekNumber, len(roadmap.Items)), &userID)

	directives, err := w.roadmaps.AdaptRoadmapBasedOnPerformance(ctx, userID)
	if err != nil {
		w.logger.Warn(ctx, "Could not compute adaptation directives", map[string]interface{}{
			"instance": w.instance,
			"user_id":  userID,
			"error":    err.Error(),
		})
		directives = nil
	}

	if w.mailer == nil || !w.mailer.IsEnabled() {
		return planOutcome{}, nil
	}

	profile, err := w.users.GetUser(ctx, userID)
	if err != nil {
		w.logger.Warn(ctx, "Could not load learner for weekly digest", map[string]interface{}{
			"instance": w.instance,
			"user_id":  userID,
			"error":    err.Error(),
		})
		return planOutcome{}, nil
	}
	if !profile.Email.Valid || profile.Email.String == "" {
		return planOutcome{}, nil
	}

	digest := mailer.WeeklyDigest{
		Profile:      profile,
		Roadmap:      roadmap,
		Directives:   directives,
		SubjectNames: subjectNames,
	}
	if err := w.mailer.SendWeeklyDigest(ctx, digest); err != nil {
		w.logger.Warn(ctx, "Weekly digest failed", map[string]interface{}{
			"instance": w.instance,
			"user_id":  userID,
			"error":    err.Error(),
		})
		w.logActivity("WARN", fmt.Sprintf("Weekly digest failed: %v", err), &userID)
		return planOutcome{}, nil
	}
	return planOutcome{digestSent: true}, nil
}

// recordRunHistory records the run in history and trims the slice
func (w *Worker) recordRunHistory(details string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := RunRecord{
		StartTime: w.status.LastRunStart,
		EndTime:   w.status.LastRunFinish,
		Duration:  w.status.LastRunFinish.Sub(w.status.LastRunStart),
		Details:   details,
		Status:    "Success",
	}
	if err != nil {
		record.Status = "Failure"
		if details == "" {
			record.Details = err.Error()
		}
	}
	w.history = append(w.history, record)
	if len(w.history) > config.WorkerMaxHistory {
		w.history = w.history[len(w.history)-config.WorkerMaxHistory:]
	}
}

// GetStatus returns the current worker status
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// GetHistory returns the worker's run history
func (w *Worker) GetHistory() []RunRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	history := make([]RunRecord, len(w.history))
	copy(history, w.history)
	return history
}

// GetActivityLogs returns recent activity logs
func (w *Worker) GetActivityLogs() []ActivityLog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	logs := make([]ActivityLog, len(w.activityLogs))
	copy(logs, w.activityLogs)
	return logs
}

// GetInstance returns the worker instance name
func (w *Worker) GetInstance() string {
	return w.instance
}

// TriggerManualRun queues a run unless one is already pending
func (w *Worker) TriggerManualRun() bool {
	ctx := context.Background()
	select {
	case w.manualTrigger <- true:
		w.logger.Info(ctx, "Manual trigger sent to worker", map[string]interface{}{
			"instance": w.instance,
		})
		return true
	default:
		w.logger.Info(ctx, "Manual trigger already pending for worker", map[string]interface{}{
			"instance": w.instance,
		})
		return false
	}
}

// Pause stops future runs until Resume is called
func (w *Worker) Pause(ctx context.Context) {
	w.mu.Lock()
	w.status.IsPaused = true
	w.mu.Unlock()

	w.logger.Info(ctx, "Worker paused", map[string]interface{}{
		"instance": w.instance,
	})
	w.logActivity("INFO", fmt.Sprintf("Worker %s paused", w.instance), nil)
}

// Resume re-enables runs after Pause
func (w *Worker) Resume(ctx context.Context) {
	w.mu.Lock()
	w.status.IsPaused = false
	w.mu.Unlock()

	w.logger.Info(ctx, "Worker resumed", map[string]interface{}{
		"instance": w.instance,
	})
	w.logActivity("INFO", fmt.Sprintf("Worker %s resumed", w.instance), nil)
}

// Shutdown stops the loop and waits for the current run to finish or ctx to expire
func (w *Worker) Shutdown(ctx context.Context) error {
	w.logger.Info(ctx, "Worker starting shutdown", map[string]interface{}{
		"instance": w.instance,
	})

	w.mu.RLock()
	cancel, done := w.cancel, w.done
	w.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return contextutils.WrapError(ctx.Err(), "worker did not stop before shutdown deadline")
		}
	}

	w.failureMu.Lock()
	w.userFailures = make(map[int]*UserFailureInfo)
	w.failureMu.Unlock()

	w.logger.Info(ctx, "Worker shutdown completed", map[string]interface{}{
		"instance": w.instance,
	})
	return nil
}

func (w *Worker) updateActivity(activity string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.CurrentActivity = activity
}

// logActivity adds an activity log entry, keeping the newest entries only
func (w *Worker) logActivity(level, message string, userID *int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.activityLogs = append(w.activityLogs, ActivityLog{
		Timestamp: w.timeNow(),
		Level:     level,
		Message:   message,
		UserID:    userID,
	})
	if len(w.activityLogs) > config.WorkerMaxActivityLogs {
		w.activityLogs = w.activityLogs[len(w.activityLogs)-config.WorkerMaxActivityLogs:]
	}
}

// shouldRetryUser checks if enough time has passed since the last failure for exponential backoff
func (w *Worker) shouldRetryUser(userID int) bool {
	w.failureMu.RLock()
	defer w.failureMu.RUnlock()

	failure, exists := w.userFailures[userID]
	if !exists {
		return true
	}
	return w.timeNow().After(failure.NextRetryTime)
}

// recordUserFailure records a failure and calculates the next retry time with exponential backoff
func (w *Worker) recordUserFailure(ctx context.Context, userID int) {
	w.failureMu.Lock()
	defer w.failureMu.Unlock()

	failure, exists := w.userFailures[userID]
	if !exists {
		failure = &UserFailureInfo{}
		w.userFailures[userID] = failure
	}

	failure.ConsecutiveFailures++
	failure.LastFailureTime = w.timeNow()

	// 2^failures minutes, capped
	backoff := time.Duration(math.Pow(2, float64(failure.ConsecutiveFailures))) * time.Minute
	if backoff > config.WorkerMaxUserBackoff {
		backoff = config.WorkerMaxUserBackoff
	}
	failure.NextRetryTime = failure.LastFailureTime.Add(backoff)

	w.logger.Info(ctx, "Worker recorded learner failure", map[string]interface{}{
		"instance":      w.instance,
		"user_id":       userID,
		"failure_count": failure.ConsecutiveFailures,
		"next_retry_in": backoff.String(),
	})
}

// recordUserSuccess clears the failure count for a user
func (w *Worker) recordUserSuccess(ctx context.Context, userID int) {
	w.failureMu.Lock()
	defer w.failureMu.Unlock()

	failure, exists := w.userFailures[userID]
	if exists && failure.ConsecutiveFailures > 0 {
		w.logger.Info(ctx, "Learner planned after failures, resetting backoff", map[string]interface{}{
			"instance":          w.instance,
			"user_id":           userID,
			"previous_failures": failure.ConsecutiveFailures,
		})
		delete(w.userFailures, userID)
	}
}

// GetBackoffs returns a copy of the per-learner failure state
func (w *Worker) GetBackoffs() map[int]UserFailureInfo {
	w.failureMu.RLock()
	defer w.failureMu.RUnlock()
	backoffs := make(map[int]UserFailureInfo, len(w.userFailures))
	for id, f := range w.userFailures {
		backoffs[id] = *f
	}
	return backoffs
}
