package api

import (
	"RagDesk/backend/go/internal/engine"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag_backend/service"
	"RagDesk/backend/go/internal/task"
	"RagDesk/backend/go/pkg/logger"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultOutputDir   = "./output"
	defaultParseMethod = "auto"
	defaultQueryMode   = "hybrid"
)

// API provides handlers for the document processing service.
type API struct {
	service            *service.DocumentService
	logger             *logger.Logger
	defaultOutputDir   string
	defaultParseMethod string
	defaultMode        string
}

// Option configures an API.
type Option func(*API)

// WithDefaults overrides the values used when a request omits output_dir, parse_method or mode.
func WithDefaults(outputDir, parseMethod, mode string) Option {
	return func(a *API) {
		if outputDir != "" {
			a.defaultOutputDir = outputDir
		}
		if parseMethod != "" {
			a.defaultParseMethod = parseMethod
		}
		if mode != "" {
			a.defaultMode = mode
		}
	}
}

// NewAPI creates a new API handler.
func NewAPI(service *service.DocumentService, logger *logger.Logger, opts ...Option) *API {
	a := &API{
		service:            service,
		logger:             logger,
		defaultOutputDir:   defaultOutputDir,
		defaultParseMethod: defaultParseMethod,
		defaultMode:        defaultQueryMode,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProcessDocumentHandler queues a document for background processing.
func (a *API) ProcessDocumentHandler(c *gin.Context) {
	filePath := c.PostForm("file_path")
	if filePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_path is required"})
		return
	}

	req := models.ProcessRequest{
		FilePath:    filePath,
		OutputDir:   c.DefaultPostForm("output_dir", a.defaultOutputDir),
		ParseMethod: c.DefaultPostForm("parse_method", a.defaultParseMethod),
	}

	id, err := a.service.Submit(c.Request.Context(), req)
	if err != nil {
		var notFound *engine.FileNotFoundError
		switch {
		case errors.As(err, &notFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": notFound.Error()})
		case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrPoolClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Processing queue is full, try again later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, models.SubmitResponse{
		TaskID:  id,
		Status:  models.TaskStatusProcessing,
		Message: "Document processing started in background",
	})
}

// TaskStatusHandler reports the progress of one task.
func (a *API) TaskStatusHandler(c *gin.Context) {
	resp, err := a.service.Status(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QueryDocumentHandler answers a question over the indexed documents.
func (a *API) QueryDocumentHandler(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query cannot be empty"})
		return
	}
	mode := c.DefaultPostForm("mode", a.defaultMode)
	items := parseMultimodal(c.PostForm("multimodal_content"))

	result, err := a.service.Query(c.Request.Context(), query, mode, items)
	if err != nil {
		if errors.Is(err, engine.ErrUnsupportedMode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// parseMultimodal decodes the multimodal_content field. Anything malformed counts as no content.
func parseMultimodal(raw string) []models.MultimodalItem {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var items []models.MultimodalItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}

// ClearCacheHandler wipes the working storage.
func (a *API) ClearCacheHandler(c *gin.Context) {
	resp, err := a.service.ClearCache(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HealthHandler reports liveness and the number of tracked tasks.
func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tasks": a.service.TaskCount()})
}

// methodNotAllowed answers any method other than the route's own.
func methodNotAllowed(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": msg})
	}
}
