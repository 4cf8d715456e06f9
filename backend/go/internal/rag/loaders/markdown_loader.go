package loaders

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MarkdownLoader implements the Loader interface for reading Markdown (.md) files.
type MarkdownLoader struct{}

// NewMarkdownLoader creates a new MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{}
}

// imageRegex is used to find Markdown image syntax (e.g., ![alt text](path/to/image.jpg))
var imageRegex = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)

// Load reads a Markdown file, its text content, and any referenced local images.
func (l *MarkdownLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	textContent := string(content)

	var imagesData [][]byte
	baseDir := filepath.Dir(path)
	for _, match := range imageRegex.FindAllStringSubmatch(textContent, -1) {
		if len(match) < 2 {
			continue
		}
		imagePath := match[1]
		if strings.Contains(imagePath, "://") {
			continue
		}
		if !filepath.IsAbs(imagePath) {
			imagePath = filepath.Join(baseDir, imagePath)
		}
		if imageData, err := os.ReadFile(imagePath); err == nil {
			imagesData = append(imagesData, imageData)
		}
	}

	doc := &schema.Document{
		ID:   uuid.New().String(),
		Text: textContent,
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(path),
			schema.MetadataKeyType:     "text",
		},
	}
	if len(imagesData) > 0 {
		doc.Metadata[schema.MetadataKeyImage] = imagesData
	}

	return []*schema.Document{doc}, nil
}

// compile-time check to ensure MarkdownLoader implements the Loader interface
var _ interfaces.Loader = (*MarkdownLoader)(nil)
