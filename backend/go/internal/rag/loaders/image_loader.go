package loaders

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ImageLoader records a standalone image as a single image block.
// The text is a placeholder naming the file so the image still takes part in retrieval.
type ImageLoader struct{}

// NewImageLoader creates a new ImageLoader.
func NewImageLoader() *ImageLoader {
	return &ImageLoader{}
}

// Load reads the image bytes into metadata.
func (l *ImageLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	doc := &schema.Document{
		ID:   uuid.New().String(),
		Text: fmt.Sprintf("[Image: %s]", filepath.Base(path)),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName:  filepath.Base(path),
			schema.MetadataKeyType:      "image",
			schema.MetadataKeyImagePath: abs,
			schema.MetadataKeyImage:     [][]byte{data},
		},
	}
	return []*schema.Document{doc}, nil
}

var _ interfaces.Loader = (*ImageLoader)(nil)
