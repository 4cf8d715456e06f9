package loaders

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// XlsxLoader implements the Loader interface for reading Excel (.xlsx) files.
type XlsxLoader struct{}

// NewXlsxLoader creates a new XlsxLoader.
func NewXlsxLoader() *XlsxLoader {
	return &XlsxLoader{}
}

// Load reads an .xlsx file, converting each sheet to a Markdown table
// and extracting images. It returns a Document for each non-empty sheet.
func (l *XlsxLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var documents []*schema.Document
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil || len(rows) == 0 {
			continue
		}

		doc := &schema.Document{
			ID:   uuid.New().String(),
			Text: markdownTable(rows),
			Metadata: map[string]interface{}{
				schema.MetadataKeyFileName:  filepath.Base(path),
				schema.MetadataKeySheetName: sheetName,
				schema.MetadataKeyType:      "table",
			},
		}

		var imagesData [][]byte
		if cells, err := f.GetPictureCells(sheetName); err == nil {
			for _, cell := range cells {
				pictures, err := f.GetPictures(sheetName, cell)
				if err != nil {
					continue
				}
				for _, pic := range pictures {
					imagesData = append(imagesData, pic.File)
				}
			}
		}
		if len(imagesData) > 0 {
			doc.Metadata[schema.MetadataKeyImage] = imagesData
		}

		documents = append(documents, doc)
	}

	return documents, nil
}

// markdownTable renders rows with the first row as header. Short rows are padded.
func markdownTable(rows [][]string) string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	pad := func(row []string) []string {
		out := make([]string, width)
		copy(out, row)
		return out
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(pad(rows[0]), " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows[1:] {
		sb.WriteString("| " + strings.Join(pad(row), " | ") + " |\n")
	}
	return sb.String()
}

// compile-time check to ensure XlsxLoader implements the Loader interface
var _ interfaces.Loader = (*XlsxLoader)(nil)
