package service

import (
	"RagDesk/backend/go/internal/engine"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag_backend/cache"
	"RagDesk/backend/go/internal/rag_backend/store"
	"RagDesk/backend/go/internal/task"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxStatusLogs is how many of the most recent log entries a status response carries.
	MaxStatusLogs = 50

	MessageCacheCleared   = "Cache cleared successfully"
	MessageNoCache        = "No cache found to clear"
	MessageNextProcessing = "Will be fresh processing (10+ minutes)"
)

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("query cannot be empty")

// EventPublisher defines the interface for publishing task events.
type EventPublisher interface {
	Publish(ctx context.Context, event models.TaskEvent) error
}

// DocumentService provides core business logic for background document processing and querying.
type DocumentService struct {
	engine   engine.Engine
	registry *task.Registry
	pool     *task.Pool
	runner   *Runner
	cache    cache.QueryCache
	archive  store.TaskArchive
	events   EventPublisher
	logger   *logger.Logger
	newID    func() string
}

// Deps are the optional collaborators of DocumentService. Nil fields are disabled.
type Deps struct {
	Cache   cache.QueryCache
	Archive store.TaskArchive
	Events  EventPublisher
	Runner  *Runner
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(eng engine.Engine, registry *task.Registry, pool *task.Pool, deps Deps, logger *logger.Logger) *DocumentService {
	runner := deps.Runner
	if runner == nil {
		runner = NewRunner(eng, RunnerDeps{Cache: deps.Cache, Archive: deps.Archive, Events: deps.Events}, logger)
	}
	return &DocumentService{
		engine:   eng,
		registry: registry,
		pool:     pool,
		runner:   runner,
		cache:    deps.Cache,
		archive:  deps.Archive,
		events:   deps.Events,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

// Submit registers a task for req and queues it. The file must exist; no record is created otherwise.
// task.ErrQueueFull is returned when the pool cannot take more work, and the record is dropped.
func (s *DocumentService) Submit(ctx context.Context, req models.ProcessRequest) (string, error) {
	if _, err := os.Stat(req.FilePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &engine.FileNotFoundError{Path: req.FilePath}
		}
		return "", fmt.Errorf("failed to stat %s: %w", req.FilePath, err)
	}

	id := s.newID()
	rec, err := s.registry.Create(id, req.FilePath)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to register task")
		return "", err
	}

	// Published before queueing so that it precedes the runner's own events.
	s.publish(ctx, rec, models.TaskEventSubmitted, "")

	if err := s.pool.Submit(func(jobCtx context.Context) {
		s.runner.Run(jobCtx, rec, req)
	}); err != nil {
		s.registry.Remove(id)
		s.publish(ctx, rec, models.TaskEventFailed, err.Error())
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"taskID": id}).Warn("Failed to queue task")
		return "", err
	}

	s.logger.WithPayload(map[string]interface{}{"taskID": id, "file": req.FilePath}).Info("Document processing task queued")
	return id, nil
}

func (s *DocumentService) publish(ctx context.Context, rec *task.Record, kind models.TaskEventType, msg string) {
	if s.events == nil {
		return
	}
	snap := rec.Snapshot()
	_ = s.events.Publish(ctx, models.TaskEvent{
		TaskID:    snap.ID,
		Type:      kind,
		Status:    snap.Status,
		Progress:  snap.Progress,
		FilePath:  snap.FilePath,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

// Status returns the status view of a task, falling back to the archive once the registry evicted it.
func (s *DocumentService) Status(ctx context.Context, id string) (*models.TaskStatusResponse, error) {
	rec, err := s.registry.Get(id)
	if err == nil {
		resp := StatusResponse(rec.Snapshot())
		return &resp, nil
	}
	if !errors.Is(err, task.ErrTaskNotFound) || s.archive == nil {
		return nil, err
	}

	snap, aerr := s.archive.GetByID(ctx, id)
	if aerr != nil {
		s.logger.WithError(models.ErrorInfo{Message: aerr.Error()}).WithPayload(map[string]interface{}{"taskID": id}).Error("Failed to read task archive")
		return nil, task.ErrTaskNotFound
	}
	if snap == nil {
		return nil, task.ErrTaskNotFound
	}
	resp := StatusResponse(*snap)
	return &resp, nil
}

// StatusResponse converts a snapshot into the client view: last MaxStatusLogs entries,
// base file name and times as unix seconds.
func StatusResponse(snap models.TaskSnapshot) models.TaskStatusResponse {
	logs := snap.Logs
	if len(logs) > MaxStatusLogs {
		logs = logs[len(logs)-MaxStatusLogs:]
	}
	if logs == nil {
		logs = []string{}
	}

	resp := models.TaskStatusResponse{
		TaskID:    snap.ID,
		Status:    snap.Status,
		Progress:  snap.Progress,
		Logs:      logs,
		FilePath:  filepath.Base(snap.FilePath),
		StartTime: unixSeconds(snap.StartTime.UnixNano()),
		Duration:  snap.Duration.Seconds(),
		Result:    snap.Result,
		Error:     snap.Error,
	}
	if snap.Status.IsTerminal() && !snap.EndTime.IsZero() {
		end := unixSeconds(snap.EndTime.UnixNano())
		resp.EndTime = &end
	}
	return resp
}

func unixSeconds(nanos int64) float64 {
	return float64(nanos) / 1e9
}

// Query answers query in mode, using the cache when possible. Multimodal items switch
// the call to the multimodal engine entry point.
func (s *DocumentService) Query(ctx context.Context, query, mode string, items []models.MultimodalItem) (string, error) {
	if query == "" {
		return "", ErrEmptyQuery
	}
	m, err := engine.ParseMode(mode)
	if err != nil {
		return "", err
	}

	key := cache.Key{Mode: string(m), Query: query, Multimodal: items}
	if s.cache != nil {
		if answer, ok := s.cache.Get(ctx, key); ok {
			s.logger.WithPayload(map[string]interface{}{"mode": m}).Debug("Query answered from cache")
			return answer, nil
		}
	}

	var epoch cache.Epoch
	if s.cache != nil {
		epoch = s.cache.Epoch(ctx)
	}

	var answer string
	if len(items) > 0 {
		answer, err = s.engine.QueryWithMultimodal(ctx, query, items, string(m))
	} else {
		answer, err = s.engine.Query(ctx, query, string(m))
	}
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"mode": m}).Error("Query failed")
		return "", err
	}

	if s.cache != nil && !s.cache.SetIfCurrent(ctx, key, answer, epoch) {
		s.logger.WithPayload(map[string]interface{}{"mode": m}).Debug("Indexed content changed during the query, answer not cached")
	}
	return answer, nil
}

// ClearCache wipes the engine's working storage and every cached answer.
func (s *DocumentService) ClearCache(ctx context.Context) (*models.ClearCacheResponse, error) {
	cleared, err := s.engine.ClearStorage(ctx)
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to clear storage")
		return nil, err
	}

	msg := MessageNoCache
	if cleared {
		msg = MessageCacheCleared
	}
	s.logger.Info(msg)
	return &models.ClearCacheResponse{Message: msg, NextProcessing: MessageNextProcessing}, nil
}

// TaskCount returns the number of tasks held in memory.
func (s *DocumentService) TaskCount() int {
	return s.registry.Len()
}
