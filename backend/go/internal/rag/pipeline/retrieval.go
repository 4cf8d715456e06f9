package pipeline

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"fmt"
)

// RetrievalOptions controls how far retrieval walks from the vector hits.
type RetrievalOptions struct {
	TopK int
	// MaxChunks caps the final result. Zero means no cap.
	MaxChunks int
	// Neighbors adds the chunks before and after each hit.
	Neighbors bool
	// DocumentHead adds the first N chunks of every document that had a hit.
	DocumentHead int
}

// RetrievalPipeline orchestrates the process of retrieving relevant documents for a given query.
type RetrievalPipeline struct {
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	docStore    interfaces.DocStore
	graphStore  interfaces.GraphStore
	log         *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
func NewRetrievalPipeline(
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	docStore interfaces.DocStore,
	graphStore interfaces.GraphStore,
	log *logger.Logger,
) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		docStore:    docStore,
		graphStore:  graphStore,
		log:         log,
	}
}

// Run returns the chunks for query: vector hits first in score order, then graph expansions.
func (p *RetrievalPipeline) Run(ctx context.Context, query string, opts RetrievalOptions) ([]*schema.Document, error) {
	// 1. Embed the query
	queryEmbeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryEmbeddings) == 0 {
		return nil, fmt.Errorf("failed to embed query: no vector returned")
	}

	// 2. Query the VectorStore to get chunk ids and scores
	hits, err := p.vectorStore.Query(ctx, queryEmbeddings[0], opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}
	if len(hits) == 0 {
		p.log.Info("No chunks found in vector store for the given query.")
		return []*schema.Document{}, nil
	}

	ids := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	hitMeta := make(map[string]map[string]interface{}, len(hits))
	for _, h := range hits {
		add(h.ID)
		hitMeta[h.ID] = h.Metadata
	}

	// 3. Expand through the graph
	if opts.Neighbors {
		for _, h := range hits {
			neighbors, err := p.graphStore.Neighbors(ctx, h.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to expand neighbors: %w", err)
			}
			for _, id := range neighbors {
				add(id)
			}
		}
	}
	if opts.DocumentHead > 0 {
		docs := make(map[string]struct{})
		for _, h := range hits {
			docID := h.DocID()
			if docID == "" {
				continue
			}
			if _, ok := docs[docID]; ok {
				continue
			}
			docs[docID] = struct{}{}
			head, err := p.graphStore.DocumentChunks(ctx, docID, opts.DocumentHead)
			if err != nil {
				return nil, fmt.Errorf("failed to expand document chunks: %w", err)
			}
			for _, id := range head {
				add(id)
			}
		}
	}
	if opts.MaxChunks > 0 && len(ids) > opts.MaxChunks {
		ids = ids[:opts.MaxChunks]
	}

	// 4. Enrich the results with full text from the DocStore
	full, err := p.docStore.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks from doc store: %w", err)
	}

	finalDocs := make([]*schema.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := full[id]
		if !ok {
			p.log.Warn(fmt.Sprintf("Could not find chunk %s in doc store", id))
			continue
		}
		if meta, ok := hitMeta[id]; ok {
			if doc.Metadata == nil {
				doc.Metadata = make(map[string]interface{})
			}
			doc.Metadata[schema.MetadataKeyScore] = meta[schema.MetadataKeyScore]
		}
		finalDocs = append(finalDocs, doc)
	}

	p.log.Info(fmt.Sprintf("Retrieved %d chunks (%d vector hits)", len(finalDocs), len(hits)))
	return finalDocs, nil
}
