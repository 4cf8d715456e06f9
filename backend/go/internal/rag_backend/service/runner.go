package service

import (
	"RagDesk/backend/go/internal/engine"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag_backend/cache"
	"RagDesk/backend/go/internal/rag_backend/store"
	"RagDesk/backend/go/internal/task"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const sideEffectTimeout = 5 * time.Second

// RunnerDeps are the optional side effects of a run. Nil fields are skipped.
type RunnerDeps struct {
	Cache   cache.QueryCache
	Archive store.TaskArchive
	Events  EventPublisher
	Sentry  *sentry.Hub
}

// Runner drives one task record through a processing call of the engine.
type Runner struct {
	engine engine.Engine
	deps   RunnerDeps
	logger *logger.Logger
	now    func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(eng engine.Engine, deps RunnerDeps, logger *logger.Logger) *Runner {
	return &Runner{engine: eng, deps: deps, logger: logger, now: time.Now}
}

// Run processes req and leaves rec completed or failed. It never panics.
func (r *Runner) Run(ctx context.Context, rec *task.Record, req models.ProcessRequest) {
	log := r.logger.WithPayload(map[string]interface{}{"taskID": rec.ID(), "file": req.FilePath})

	defer func() {
		if rec.Status().IsTerminal() {
			r.finish(rec, log)
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic during processing: %v", p)
			log.WithError(models.ErrorInfo{Message: err.Error(), Stack: string(debug.Stack()), Type: "panic"}).Error("Runner recovered from panic")
			_ = rec.Fail(err)
			r.capture(err, rec)
		}
	}()

	result, err := r.process(ctx, rec, req)
	if err != nil {
		if ferr := rec.Fail(err); ferr != nil {
			log.Warn(fmt.Sprintf("could not mark task failed: %v", ferr))
		}
		r.capture(err, rec)
		return
	}
	if err := rec.Complete(result); err != nil {
		log.Warn(fmt.Sprintf("could not mark task completed: %v", err))
	}
}

func (r *Runner) process(ctx context.Context, rec *task.Record, req models.ProcessRequest) (*models.ProcessResult, error) {
	if err := rec.Start(); err != nil {
		return nil, err
	}
	rec.AddLog("Starting document processing: " + filepath.Base(req.FilePath))
	r.event(rec, models.TaskEventStarted, "")

	rec.UpdateProgress(5, "Initializing RAG pipeline...")
	rec.UpdateProgress(10, "Processing document with RAG engine...")
	rec.AddLog("Checking if document is already processed...")
	startIdx := rec.LogCount()

	outcome, err := r.engine.ProcessDocumentComplete(ctx, req, rec.AddLog)
	if err != nil {
		return nil, err
	}

	var wasCached bool
	switch outcome.Cache {
	case engine.CacheHit:
		wasCached = true
	case engine.CacheMiss:
	default:
		wasCached = LogsIndicateCached(rec.LogsSince(startIdx))
	}

	processingType := models.ProcessingTypeFresh
	if wasCached {
		processingType = models.ProcessingTypeCached
	}
	rec.AddLog("Processing type: " + processingType)
	rec.UpdateProgress(95, "Finalizing processing...")

	if !wasCached && r.deps.Cache != nil {
		// New content can change any earlier answer.
		r.deps.Cache.Invalidate(context.WithoutCancel(ctx))
	}

	outputDir := req.OutputDir
	if outcome.OutputDir != "" {
		outputDir = outcome.OutputDir
	}
	return &models.ProcessResult{
		FilePath:       req.FilePath,
		OutputDir:      outputDir,
		ProcessingTime: rec.Duration().Seconds(),
		ProcessingType: processingType,
		WasCached:      wasCached,
	}, nil
}

// LogsIndicateCached reports whether any entry mentions an existing or cached document.
// It is used only when the engine does not say whether it reused earlier results.
func LogsIndicateCached(entries []string) bool {
	for _, e := range entries {
		if strings.Contains(e, "already exists") || strings.Contains(strings.ToLower(e), "cached") {
			return true
		}
	}
	return false
}

func (r *Runner) finish(rec *task.Record, log *logger.Logger) {
	snap := rec.Snapshot()
	kind := models.TaskEventCompleted
	if snap.Status == models.TaskStatusFailed {
		kind = models.TaskEventFailed
	}
	r.event(rec, kind, snap.Error)

	if r.deps.Archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := r.deps.Archive.Save(ctx, snap); err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error(), Type: "storage_error"}).Warn("Failed to archive task")
		}
	}
	log.WithPayload(map[string]interface{}{"status": snap.Status, "duration": snap.Duration.Seconds()}).Info("Task finished")
}

func (r *Runner) event(rec *task.Record, kind models.TaskEventType, msg string) {
	if r.deps.Events == nil {
		return
	}
	snap := rec.Snapshot()
	ev := models.TaskEvent{
		TaskID:    snap.ID,
		Type:      kind,
		Status:    snap.Status,
		Progress:  snap.Progress,
		FilePath:  snap.FilePath,
		Message:   msg,
		Result:    snap.Result,
		Timestamp: r.now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	// The publisher logs its own failures.
	_ = r.deps.Events.Publish(ctx, ev)
}

func (r *Runner) capture(err error, rec *task.Record) {
	if r.deps.Sentry == nil {
		return
	}
	r.logger.Capture(r.deps.Sentry, err, "Document processing failed", map[string]interface{}{
		"taskID": rec.ID(),
		"file":   rec.FilePath(),
	})
}
