package interfaces

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
)

// Loader is the interface for loading data from a source file
// and converting it into a list of Document objects.
type Loader interface {
	Load(ctx context.Context, path string) ([]*schema.Document, error)
}

// Splitter is the interface for splitting a list of Documents into smaller chunks.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error)
}

// DocStore is the interface for storing and retrieving document chunks by their ID.
type DocStore interface {
	Add(ctx context.Context, docs map[string]*schema.Document) error
	Get(ctx context.Context, ids []string) (map[string]*schema.Document, error)
	Delete(ctx context.Context, ids []string) error
}

// DocStatusStore remembers which source files have already been indexed.
type DocStatusStore interface {
	GetStatus(ctx context.Context, docID string) (*schema.DocStatus, error)
	PutStatus(ctx context.Context, status *schema.DocStatus) error
}

// VectorStore is the interface for storing and querying document vectors.
type VectorStore interface {
	Add(ctx context.Context, docs []*schema.Document) error
	Query(ctx context.Context, embedding []float32, topK int) ([]*schema.Document, error)
	// Contains reports whether every id in ids has a stored vector.
	Contains(ctx context.Context, ids []string) (bool, error)
	Reset(ctx context.Context) error
}

// GraphStore keeps the document -> chunk structure so retrieval can walk to related chunks.
type GraphStore interface {
	AddDocument(ctx context.Context, docID, fileName string, chunks []*schema.Document) error
	// Neighbors returns the ids of the chunks directly before and after chunkID.
	Neighbors(ctx context.Context, chunkID string) ([]string, error)
	// DocumentChunks returns the first limit chunk ids of a document, in order.
	DocumentChunks(ctx context.Context, docID string, limit int) ([]string, error)
	Reset(ctx context.Context) error
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, prompt string, attachments ...*models.Blob) (string, error)
}
