package api

import (
	"RagDesk/backend/go/internal/rag_ui/auth"
	"RagDesk/backend/go/internal/rag_ui/service"
	"RagDesk/backend/go/internal/rag_ui/store"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ragclient"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultTitle = "RAG Document Processing"

// API serves the upload UI pages and its JSON endpoints.
type API struct {
	service  *service.UIService
	auth     *auth.Authenticator
	logger   *logger.Logger
	title    string
	maxBytes int64
}

// Option configures an API.
type Option func(*API)

// WithTitle sets the page title.
func WithTitle(title string) Option {
	return func(a *API) {
		if title != "" {
			a.title = title
		}
	}
}

// WithMaxUploadMB caps the size of one upload. Zero means no cap.
func WithMaxUploadMB(mb int64) Option {
	return func(a *API) { a.maxBytes = mb << 20 }
}

// NewAPI creates the UI handlers.
func NewAPI(svc *service.UIService, authn *auth.Authenticator, log *logger.Logger, opts ...Option) *API {
	if log == nil {
		log = logger.Discard()
	}
	a := &API{service: svc, auth: authn, logger: log, title: defaultTitle}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IndexHandler renders the file list, or returns it as JSON when the client asks for JSON.
func (a *API) IndexHandler(c *gin.Context) {
	files, err := a.service.ListFiles()
	if err != nil {
		a.logger.WithError(errorInfo(err)).Error("Failed to list upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, gin.H{"files": files})
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":       a.title,
		"Files":       files,
		"AuthEnabled": a.auth.Enabled(),
	})
}

// UploadHandler stores one multipart file.
func (a *API) UploadHandler(c *gin.Context) {
	if a.maxBytes > 0 {
		// Leave room for the multipart envelope.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxBytes+1<<20)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if a.maxBytes > 0 && fh.Size > a.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	res, err := a.service.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		var unsupported *service.UnsupportedTypeError
		switch {
		case errors.As(err, &unsupported), errors.Is(err, store.ErrInvalidName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			a.logger.WithError(errorInfo(err)).Error("Upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   fmt.Sprintf("File %s uploaded successfully", res.Name),
		"file_name": res.Name,
		"file_size": res.Size,
	})
}

// ProcessFileHandler hands an uploaded file to the backend and relays its answer.
func (a *API) ProcessFileHandler(c *gin.Context) {
	name := c.PostForm("file_name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	resp, err := a.service.ProcessFile(c.Request.Context(), name)
	if err != nil {
		var apiErr *ragclient.APIError
		switch {
		case errors.Is(err, store.ErrFileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("File %s not found", name)})
		case errors.As(err, &apiErr):
			c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message})
		default:
			a.logger.WithError(errorInfo(err)).Error("Failed to reach backend")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveConfigHandler stores the posted settings document.
func (a *API) SaveConfigHandler(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON data"})
		return
	}
	if err := a.service.SaveConfig(raw); err != nil {
		if errors.Is(err, store.ErrNotJSONObject) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON data"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Configuration saved successfully"})
}

// LoadConfigHandler returns the saved settings document.
func (a *API) LoadConfigHandler(c *gin.Context) {
	cfg, err := a.service.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "config": cfg})
}

type chatRequest struct {
	Query string `json:"query"`
}

// ChatHandler relays a question to the backend.
func (a *API) ChatHandler(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON data"})
		return
	}

	result, err := a.service.Chat(c.Request.Context(), req.Query)
	if err != nil {
		var apiErr *ragclient.APIError
		switch {
		case errors.Is(err, service.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &apiErr):
			c.JSON(apiErr.StatusCode, gin.H{"error": "Failed to process query", "details": apiErr.Message})
		default:
			a.logger.WithError(errorInfo(err)).Error("Chat relay failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// LoginHandler exchanges account credentials for a bearer token.
func (a *API) LoginHandler(c *gin.Context) {
	if !a.auth.Enabled() {
		c.JSON(http.StatusOK, gin.H{"auth_mode": "disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	token, err := a.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.logger.WithField("username", req.Username).Warn("Rejected login")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":     token,
		"token_type":       "bearer",
		"auth_mode":        "enabled",
		"expires_in_hours": a.auth.ExpireHours(),
	})
}

func formatKB(size int64) string {
	return fmt.Sprintf("%.1f KB", float64(size)/1024)
}
