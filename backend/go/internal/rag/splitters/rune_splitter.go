package splitters

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RuneSplitter implements the Splitter interface with fixed windows of runes.
// Windows overlap by ChunkOverlap runes. Whitespace-only windows are dropped.
type RuneSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewRuneSplitter creates a new RuneSplitter. The overlap must be smaller than the chunk size.
func NewRuneSplitter(chunkSize, chunkOverlap int) (*RuneSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &RuneSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, nil
}

// Split splits a list of documents into smaller chunks.
func (s *RuneSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document
	step := s.ChunkSize - s.ChunkOverlap

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		runes := []rune(doc.Text)
		number := 0

		for start := 0; start < len(runes); start += step {
			end := start + s.ChunkSize
			if end > len(runes) {
				end = len(runes)
			}

			chunkText := string(runes[start:end])
			if strings.TrimSpace(chunkText) != "" {
				number++
				newDoc := &schema.Document{
					ID:       uuid.New().String(),
					Text:     chunkText,
					Metadata: copyMetadata(doc.Metadata),
				}
				newDoc.Metadata["original_doc_id"] = doc.ID
				newDoc.Metadata["chunk_number"] = number
				chunks = append(chunks, newDoc)
			}

			if end == len(runes) {
				break
			}
		}
	}

	return chunks, nil
}

// copyMetadata copies the map so chunks of one document do not share it.
// Image bytes stay with the source document and are not copied into chunks.
func copyMetadata(md map[string]interface{}) map[string]interface{} {
	newMd := make(map[string]interface{}, len(md))
	for k, v := range md {
		if k == schema.MetadataKeyImage {
			continue
		}
		newMd[k] = v
	}
	return newMd
}

// compile-time check to ensure RuneSplitter implements the Splitter interface
var _ interfaces.Splitter = (*RuneSplitter)(nil)
