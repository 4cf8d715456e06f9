package service

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag_ui/store"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/datatypes"
)

const (
	// ChatMode is the retrieval mode used by the chat panel.
	ChatMode     = "hybrid"
	defaultParse = "auto"
	outputSubdir = "output"
)

var ErrEmptyQuery = errors.New("Query cannot be empty")

// UnsupportedTypeError is returned by Upload for a file extension outside the allow list.
type UnsupportedTypeError struct {
	Ext string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("File type %s not supported. Allowed: %s", e.Ext, strings.Join(store.AllowedUploadExts, ", "))
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Name     string
	Size     int64
	MIMEType string
}

// Deps are the optional collaborators of the UI service. Nil members are skipped.
type Deps struct {
	Mirror   store.ObjectMirror
	Registry store.FileRegistry
}

// UIService implements the upload UI operations.
type UIService struct {
	files   *store.FileStore
	config  *store.ConfigStore
	backend BackendProvider
	deps    Deps
	logger  *logger.Logger
}

// NewUIService creates a UIService.
func NewUIService(files *store.FileStore, cfg *store.ConfigStore, backend BackendProvider, deps Deps, log *logger.Logger) *UIService {
	if log == nil {
		log = logger.Discard()
	}
	return &UIService{files: files, config: cfg, backend: backend, deps: deps, logger: log}
}

// ListFiles returns the documents in the upload directory.
func (s *UIService) ListFiles() ([]models.FileInfo, error) {
	return s.files.List()
}

// Upload stores r under the base name of name, then mirrors and records it.
// Mirror and registry failures are logged; the local copy is what the backend processes.
func (s *UIService) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	if !store.AllowedUpload(name) {
		return nil, &UnsupportedTypeError{Ext: strings.ToLower(filepath.Ext(name))}
	}

	stored, size, err := s.files.Save(name, r)
	if err != nil {
		return nil, err
	}
	res := &UploadResult{Name: stored, Size: size}

	path, err := s.files.Path(stored)
	if err != nil {
		return nil, err
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		res.MIMEType = mt.String()
	}

	var objectKey string
	if s.deps.Mirror != nil {
		objectKey, err = s.deps.Mirror.Put(ctx, stored, path, res.MIMEType)
		if err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "mirror_error"}).Warn(fmt.Sprintf("Failed to mirror upload %s", stored))
			objectKey = ""
		}
	}

	if s.deps.Registry != nil {
		meta, _ := json.Marshal(map[string]string{"extension": strings.ToLower(filepath.Ext(stored))})
		row := &models.UploadedFile{
			Name:      stored,
			Size:      size,
			MIMEType:  res.MIMEType,
			ObjectKey: objectKey,
			Metadata:  datatypes.JSON(meta),
		}
		if err := s.deps.Registry.Record(ctx, row); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "storage_error"}).Warn(fmt.Sprintf("Failed to record upload %s", stored))
		}
	}

	s.logger.WithPayload(map[string]interface{}{"file": stored, "size": size, "mime": res.MIMEType}).Info("File uploaded")
	return res, nil
}

// ProcessFile asks the backend to process an uploaded file.
// It returns store.ErrFileNotFound for names that are not in the upload directory.
func (s *UIService) ProcessFile(ctx context.Context, name string) (*models.SubmitResponse, error) {
	path, err := s.files.Path(name)
	if err != nil {
		return nil, store.ErrFileNotFound
	}
	backend, err := s.backend.Backend(ctx)
	if err != nil {
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}

	resp, err := backend.ProcessDocument(ctx, models.ProcessRequest{
		FilePath:    path,
		OutputDir:   filepath.Join(s.files.Dir(), outputSubdir),
		ParseMethod: defaultParse,
	})
	if err != nil {
		return nil, err
	}

	if s.deps.Registry != nil {
		if err := s.deps.Registry.SetLastTask(ctx, name, resp.TaskID); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "storage_error"}).Warn(fmt.Sprintf("Failed to record task of %s", name))
		}
	}
	s.logger.WithField("task_id", resp.TaskID).Info(fmt.Sprintf("Submitted %s for processing", name))
	return resp, nil
}

// Chat relays a question to the backend in hybrid mode.
func (s *UIService) Chat(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	backend, err := s.backend.Backend(ctx)
	if err != nil {
		return "", fmt.Errorf("backend unavailable: %w", err)
	}
	return backend.Query(ctx, query, ChatMode, nil)
}

// SaveConfig stores the settings document.
func (s *UIService) SaveConfig(raw []byte) error {
	return s.config.Save(raw)
}

// LoadConfig returns the settings document, {} when none was saved.
func (s *UIService) LoadConfig() (json.RawMessage, error) {
	return s.config.Load()
}
