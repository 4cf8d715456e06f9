package engine

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/logger"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// describeItems renders multimodal items as prompt text. Images are also returned as blobs.
// An image that cannot be read is described by its path only.
func describeItems(items []models.MultimodalItem, log *logger.Logger) (string, []*models.Blob) {
	if len(items) == 0 {
		return "", nil
	}

	var sb strings.Builder
	var blobs []*models.Blob
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch item.Type {
		case "image":
			caption := firstNonEmpty(item.Caption("image_caption"), item.Caption("img_caption"))
			blob, err := readImage(item.ImgPath)
			if err != nil {
				log.Warn(fmt.Sprintf("multimodal image unavailable: %v", err))
				sb.WriteString(fmt.Sprintf("Image (not available): %s", item.ImgPath))
			} else {
				blobs = append(blobs, blob)
				sb.WriteString(fmt.Sprintf("Image %d attached: %s", len(blobs), blob.DisplayName))
			}
			if caption != "" {
				sb.WriteString("\nCaption: " + caption)
			}
		case "table":
			sb.WriteString("Table:\n" + item.TableData)
			if caption := item.Caption("table_caption"); caption != "" {
				sb.WriteString("\nCaption: " + caption)
			}
		case "equation":
			sb.WriteString("Equation (LaTeX): " + item.Latex)
			if caption := item.Caption("equation_caption"); caption != "" {
				sb.WriteString("\nCaption: " + caption)
			}
		default:
			raw, err := json.Marshal(item)
			if err != nil {
				raw = []byte(fmt.Sprintf("%v", item.Raw))
			}
			label := item.Type
			if label == "" {
				label = "content"
			}
			sb.WriteString(fmt.Sprintf("%s: %s", label, raw))
		}
	}
	return sb.String(), blobs
}

func readImage(path string) (*models.Blob, error) {
	if path == "" {
		return nil, fmt.Errorf("image item has no img_path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &models.Blob{
		DisplayName: filepath.Base(path),
		Data:        data,
		MIMEType:    mimetype.Detect(data).String(),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
