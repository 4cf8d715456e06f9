package pipeline

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyDocument is returned when a file yields no text to index.
var ErrEmptyDocument = errors.New("document produced no text chunks")

// IndexInput describes one source file to index.
type IndexInput struct {
	DocID       string
	FilePath    string
	OutputDir   string
	ParseMethod string
}

// IndexingPipeline orchestrates the process of loading, splitting, embedding, and storing documents.
type IndexingPipeline struct {
	splitter    interfaces.Splitter
	embedder    interfaces.EmbeddingModel
	docStore    interfaces.DocStore
	vectorStore interfaces.VectorStore
	graphStore  interfaces.GraphStore
	log         *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	docStore interfaces.DocStore,
	vectorStore interfaces.VectorStore,
	graphStore interfaces.GraphStore,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		splitter:    splitter,
		embedder:    embedder,
		docStore:    docStore,
		vectorStore: vectorStore,
		graphStore:  graphStore,
		log:         log,
	}
}

// Run executes the indexing pipeline for one file. Progress messages go to progress.
// The returned status is not persisted; the caller records it once everything succeeded.
func (p *IndexingPipeline) Run(ctx context.Context, loader interfaces.Loader, in IndexInput, progress func(string)) (*schema.DocStatus, error) {
	fileName := filepath.Base(in.FilePath)
	p.log.Info(fmt.Sprintf("Starting indexing for: %s", in.FilePath))

	// 1. Load the data
	blocks, err := loader.Load(ctx, in.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", fileName, err)
	}
	progress(fmt.Sprintf("Parsed %s into %d content blocks", fileName, len(blocks)))

	// 2. Keep the parsed output next to the other parser artifacts
	outDir, err := WriteParsedOutput(in.OutputDir, in.ParseMethod, in.FilePath, blocks)
	if err != nil {
		return nil, err
	}
	progress(fmt.Sprintf("Parsed output written to %s", outDir))

	// 3. Split documents into chunks
	chunks, err := p.splitter.Split(ctx, blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", fileName, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, fileName)
	}
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		// Ids derive from the document so a re-run overwrites instead of duplicating.
		chunk.ID = fmt.Sprintf("%s-chunk-%04d", in.DocID, i)
		chunk.Metadata[schema.MetadataKeyDocID] = in.DocID
		chunk.Metadata[schema.MetadataKeyChunkIndex] = i
		chunk.Metadata[schema.MetadataKeyFileName] = fileName
		ids[i] = chunk.ID
	}
	progress(fmt.Sprintf("Split into %d chunks", len(chunks)))

	// 4. Embed the chunks
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
	}
	progress(fmt.Sprintf("Embedded %d chunks", len(chunks)))

	// 5. Store the chunks concurrently
	eg, gCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		chunkMap := make(map[string]*schema.Document, len(chunks))
		for _, chunk := range chunks {
			chunkMap[chunk.ID] = chunk
		}
		if err := p.docStore.Add(gCtx, chunkMap); err != nil {
			return fmt.Errorf("failed to add chunks to doc store: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		if err := p.vectorStore.Add(gCtx, chunks); err != nil {
			return fmt.Errorf("failed to add chunks to vector store: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		if err := p.graphStore.AddDocument(gCtx, in.DocID, fileName, chunks); err != nil {
			return fmt.Errorf("failed to add chunks to graph store: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		p.log.Error(err.Error())
		return nil, err
	}
	progress("Stored chunks in document, vector and graph storage")

	p.log.Info(fmt.Sprintf("Successfully finished indexing for: %s", in.FilePath))
	return &schema.DocStatus{
		DocID:       in.DocID,
		FilePath:    in.FilePath,
		FileName:    fileName,
		ChunkCount:  len(chunks),
		ChunkIDs:    ids,
		OutputDir:   outDir,
		ParseMethod: in.ParseMethod,
		ProcessedAt: time.Now(),
	}, nil
}
