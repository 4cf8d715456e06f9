package embeddings

import (
	"RagDesk/backend/go/internal/embedding"
	"RagDesk/backend/go/internal/rag/interfaces"
	"context"
	"fmt"
)

// Adapter adapts the provider embedding clients to the EmbeddingModel interface.
// Inputs are sent in batches of at most BatchSize texts.
type Adapter struct {
	client    embedding.Embedding
	batchSize int
}

// NewAdapter creates an adapter. A non-positive batch size sends everything in one call.
func NewAdapter(client embedding.Embedding, batchSize int) *Adapter {
	return &Adapter{client: client, batchSize: batchSize}
}

// Embed calls the client's EmbedBatch once per batch and keeps the input order.
func (a *Adapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	size := a.batchSize
	if size <= 0 || size > len(texts) {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := a.client.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedding batch %d-%d returned %d vectors", start, end, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// compile-time check to ensure Adapter implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Adapter)(nil)
