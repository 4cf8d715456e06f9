package pipeline

import (
	"RagDesk/backend/go/internal/rag/schema"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ContentListFile is the name of the block list written next to the parsed markdown.
const ContentListFile = "content_list.json"

// WriteParsedOutput writes <outputDir>/<stem>/<parseMethod>/<stem>.md and content_list.json.
// Images carried in block metadata are saved under images/ and referenced from both files.
func WriteParsedOutput(outputDir, parseMethod, filePath string, blocks []*schema.Document) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	if parseMethod == "" {
		parseMethod = "auto"
	}
	dir := filepath.Join(outputDir, stem, parseMethod)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder
	var list []schema.ContentBlock
	imageCount := 0

	for i, b := range blocks {
		kind, _ := b.Metadata[schema.MetadataKeyType].(string)
		if kind == "" {
			kind = "text"
		}
		page := i
		if label, ok := b.Metadata[schema.MetadataKeyPageLabel].(string); ok {
			if n, err := strconv.Atoi(label); err == nil {
				page = n - 1
			}
		}
		sheet, _ := b.Metadata[schema.MetadataKeySheetName].(string)

		if kind == "image" {
			imgPath, _ := b.Metadata[schema.MetadataKeyImagePath].(string)
			md.WriteString(fmt.Sprintf("![](%s)\n\n", imgPath))
			list = append(list, schema.ContentBlock{Type: "image", ImgPath: imgPath, PageIdx: page})
			continue
		}

		if sheet != "" {
			md.WriteString("## " + sheet + "\n\n")
		}
		md.WriteString(strings.TrimSpace(b.Text))
		md.WriteString("\n\n")
		list = append(list, schema.ContentBlock{Type: kind, Text: b.Text, PageIdx: page, SheetName: sheet})

		images, _ := b.Metadata[schema.MetadataKeyImage].([][]byte)
		for _, data := range images {
			imageCount++
			rel, err := saveImage(dir, imageCount, data)
			if err != nil {
				return "", err
			}
			md.WriteString(fmt.Sprintf("![](%s)\n\n", rel))
			list = append(list, schema.ContentBlock{Type: "image", ImgPath: filepath.Join(dir, rel), PageIdx: page})
		}
	}

	if err := os.WriteFile(filepath.Join(dir, stem+".md"), []byte(md.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write parsed markdown: %w", err)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode content list: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ContentListFile), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write content list: %w", err)
	}
	return dir, nil
}

func saveImage(dir string, n int, data []byte) (string, error) {
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = ".bin"
	}
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	rel := filepath.Join("images", fmt.Sprintf("image_%03d%s", n, ext))
	if err := os.WriteFile(filepath.Join(dir, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return rel, nil
}
