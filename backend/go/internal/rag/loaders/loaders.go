package loaders

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFile is returned when no registered loader accepts a file.
var ErrUnsupportedFile = errors.New("unsupported file type")

type entry struct {
	name       string
	loader     interfaces.Loader
	extensions []string
	mimeTypes  []string
}

// Registry picks a loader for a file from its detected MIME type or its extension.
type Registry struct {
	entries []entry
}

// NewRegistry creates a Registry with all built-in loaders registered.
// Order matters: the first loader that accepts a file wins.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("markdown", NewMarkdownLoader(), []string{".md", ".markdown"}, nil)
	r.Register("html", NewHTMLLoader(), []string{".html", ".htm"}, []string{"text/html"})
	r.Register("pdf", NewPdfLoader(), []string{".pdf"}, []string{"application/pdf"})
	r.Register("docx", NewDocxLoader(), []string{".docx"},
		[]string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"})
	r.Register("xlsx", NewXlsxLoader(), []string{".xlsx"},
		[]string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"})
	r.Register("image", NewImageLoader(), []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"},
		[]string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp"})
	r.Register("text", NewTxtLoader(), []string{".txt", ".text", ".log", ".csv"}, []string{"text/plain"})
	return r
}

// Register adds a loader. Extensions include the leading dot.
func (r *Registry) Register(name string, loader interfaces.Loader, extensions, mimeTypes []string) {
	r.entries = append(r.entries, entry{name: name, loader: loader, extensions: extensions, mimeTypes: mimeTypes})
}

// ForFile returns the loader for path and the name it was registered under.
func (r *Registry) ForFile(path string) (interfaces.Loader, string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	// 扩展名优先：.md 等纯文本格式的 MIME 探测结果无法区分。
	for _, e := range r.entries {
		if slices.Contains(e.extensions, ext) {
			return e.loader, e.name, nil
		}
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to detect MIME type: %w", err)
	}
	for _, e := range r.entries {
		if accepts(mtype, e.extensions, e.mimeTypes) {
			return e.loader, e.name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFile, filepath.Base(path), mtype.String())
}

func accepts(mtype *mimetype.MIME, extensions, mtypes []string) bool {
	if slices.Contains(extensions, mtype.Extension()) {
		return true
	}
	return slices.ContainsFunc(mtypes, mtype.Is)
}
