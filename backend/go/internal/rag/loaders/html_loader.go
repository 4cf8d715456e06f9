package loaders

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"fmt"
	"os"
	"path/filepath"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/google/uuid"
)

// HTMLLoader converts a saved HTML page to Markdown.
type HTMLLoader struct{}

// NewHTMLLoader creates a new HTMLLoader.
func NewHTMLLoader() *HTMLLoader {
	return &HTMLLoader{}
}

// Load reads an HTML file and returns its Markdown rendering as a single Document.
func (l *HTMLLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	markdown, err := htmltomarkdown.ConvertString(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to convert html to markdown: %w", err)
	}

	doc := &schema.Document{
		ID:   uuid.New().String(),
		Text: markdown,
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(path),
			schema.MetadataKeyType:     "text",
		},
	}
	return []*schema.Document{doc}, nil
}

var _ interfaces.Loader = (*HTMLLoader)(nil)
