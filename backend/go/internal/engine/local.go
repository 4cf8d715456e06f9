package engine

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/loaders"
	"RagDesk/backend/go/internal/rag/pipeline"
	"RagDesk/backend/go/internal/rag/schema"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// documentHeadChunks is how many leading chunks per document global retrieval adds.
const documentHeadChunks = 3

// KVStore holds chunk text and document status, and can be closed while its directory is wiped.
type KVStore interface {
	interfaces.DocStore
	interfaces.DocStatusStore
	Open() error
	Close() error
}

// LocalOptions wires a Local engine.
type LocalOptions struct {
	WorkingDir  string
	OutputDir   string
	ParseMethod string
	// Parser is the configured parser name, reported in the processing log.
	Parser string
	Query  config.QueryConfig

	Loaders  *loaders.Registry
	Splitter interfaces.Splitter
	Embedder interfaces.EmbeddingModel
	LLM      interfaces.LLM
	KV       KVStore
	Vectors  interfaces.VectorStore
	Graph    interfaces.GraphStore
	Log      *logger.Logger
}

// Local is the in-process engine built on the indexing, retrieval and QA pipelines.
type Local struct {
	// Ingests and queries share the lock; ClearStorage takes it exclusively.
	mu sync.RWMutex

	opts      LocalOptions
	indexer   *pipeline.IndexingPipeline
	retriever *pipeline.RetrievalPipeline
	qa        *pipeline.QAPipeline
	log       *logger.Logger
}

// NewLocal opens the KV store and assembles the pipelines.
func NewLocal(opts LocalOptions) (*Local, error) {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	if opts.Loaders == nil {
		opts.Loaders = loaders.NewRegistry()
	}
	if opts.KV == nil || opts.Vectors == nil || opts.Graph == nil {
		return nil, errors.New("engine requires kv, vector and graph stores")
	}
	if opts.Splitter == nil || opts.Embedder == nil || opts.LLM == nil {
		return nil, errors.New("engine requires a splitter, an embedder and an LLM")
	}
	if err := opts.KV.Open(); err != nil {
		return nil, err
	}

	return &Local{
		opts:      opts,
		indexer:   pipeline.NewIndexingPipeline(opts.Splitter, opts.Embedder, opts.KV, opts.Vectors, opts.Graph, opts.Log),
		retriever: pipeline.NewRetrievalPipeline(opts.Embedder, opts.Vectors, opts.KV, opts.Graph, opts.Log),
		qa:        pipeline.NewQAPipeline(opts.LLM, opts.Log),
		log:       opts.Log,
	}, nil
}

// ProcessDocumentComplete implements Engine.
func (e *Local) ProcessDocumentComplete(ctx context.Context, req models.ProcessRequest, logf func(string)) (ProcessOutcome, error) {
	if logf == nil {
		logf = func(string) {}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := os.Stat(req.FilePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ProcessOutcome{}, &FileNotFoundError{Path: req.FilePath}
		}
		return ProcessOutcome{}, fmt.Errorf("failed to stat %s: %w", req.FilePath, err)
	}
	name := filepath.Base(req.FilePath)

	docID, err := fileDocID(req.FilePath)
	if err != nil {
		return ProcessOutcome{}, err
	}

	status, err := e.opts.KV.GetStatus(ctx, docID)
	if err != nil {
		return ProcessOutcome{}, fmt.Errorf("failed to read document status: %w", err)
	}
	if status != nil {
		intact, err := e.indexIntact(ctx, status)
		if err != nil {
			return ProcessOutcome{}, err
		}
		if intact {
			logf(fmt.Sprintf("Document %s already exists in storage, skipping processing", name))
			return ProcessOutcome{Cache: CacheHit, DocID: docID, OutputDir: status.OutputDir, Chunks: status.ChunkCount}, nil
		}
		logf(fmt.Sprintf("Document %s is recorded but its index is incomplete, processing again", name))
		if err := e.opts.KV.Delete(ctx, status.ChunkIDs); err != nil {
			return ProcessOutcome{}, fmt.Errorf("failed to drop stale chunks: %w", err)
		}
	}

	loader, loaderName, err := e.opts.Loaders.ForFile(req.FilePath)
	if err != nil {
		return ProcessOutcome{}, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = e.opts.OutputDir
	}
	parseMethod := req.ParseMethod
	if parseMethod == "" {
		parseMethod = e.opts.ParseMethod
	}
	logf(fmt.Sprintf("Parsing %s with %s parser (%s loader, method %s)", name, e.opts.Parser, loaderName, parseMethod))

	st, err := e.indexer.Run(ctx, loader, pipeline.IndexInput{
		DocID:       docID,
		FilePath:    req.FilePath,
		OutputDir:   outputDir,
		ParseMethod: parseMethod,
	}, logf)
	if err != nil {
		return ProcessOutcome{}, err
	}
	if err := e.opts.KV.PutStatus(ctx, st); err != nil {
		return ProcessOutcome{}, fmt.Errorf("failed to record document status: %w", err)
	}
	logf(fmt.Sprintf("Document %s indexed with %d chunks", name, st.ChunkCount))

	return ProcessOutcome{Cache: CacheMiss, DocID: docID, OutputDir: st.OutputDir, Chunks: st.ChunkCount}, nil
}

// indexIntact reports whether the vector and graph stores still hold the chunks recorded in status.
// The status lives in the working directory while either store may be process memory.
func (e *Local) indexIntact(ctx context.Context, status *schema.DocStatus) (bool, error) {
	if len(status.ChunkIDs) == 0 {
		return true, nil
	}
	ok, err := e.opts.Vectors.Contains(ctx, status.ChunkIDs)
	if err != nil {
		return false, fmt.Errorf("failed to check vector store: %w", err)
	}
	if !ok {
		return false, nil
	}
	head, err := e.opts.Graph.DocumentChunks(ctx, status.DocID, 1)
	if err != nil {
		return false, fmt.Errorf("failed to check graph store: %w", err)
	}
	return len(head) > 0, nil
}

// Query implements Engine.
func (e *Local) Query(ctx context.Context, query, mode string) (string, error) {
	return e.QueryWithMultimodal(ctx, query, nil, mode)
}

// QueryWithMultimodal implements Engine.
func (e *Local) QueryWithMultimodal(ctx context.Context, query string, items []models.MultimodalItem, mode string) (string, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return "", err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	in := pipeline.QAInput{Query: query}
	in.Extra, in.Attachments = describeItems(items, e.log)

	if m != ModeBypass {
		docs, err := e.retriever.Run(ctx, query, e.retrievalOptions(m))
		if err != nil {
			return "", err
		}
		in.Documents = docs
	}
	return e.qa.Run(ctx, in)
}

func (e *Local) retrievalOptions(m Mode) pipeline.RetrievalOptions {
	opts := pipeline.RetrievalOptions{TopK: e.opts.Query.TopK, MaxChunks: e.opts.Query.MaxChunks}
	switch m {
	case ModeLocal:
		opts.Neighbors = true
	case ModeGlobal:
		opts.DocumentHead = documentHeadChunks
	case ModeHybrid, ModeMix:
		opts.Neighbors = true
		opts.DocumentHead = documentHeadChunks
	}
	return opts
}

// ClearStorage implements Engine. It waits for running ingests and queries.
func (e *Local) ClearStorage(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.opts.KV.Close(); err != nil {
		return false, fmt.Errorf("failed to close kv store: %w", err)
	}
	// Reopen even when clearing fails so the engine stays usable.
	defer func() {
		if err := e.opts.KV.Open(); err != nil {
			e.log.Error(fmt.Sprintf("failed to reopen kv store: %v", err))
		}
	}()

	cleared := false
	if _, err := os.Stat(e.opts.WorkingDir); err == nil {
		if err := os.RemoveAll(e.opts.WorkingDir); err != nil {
			return false, fmt.Errorf("failed to remove %s: %w", e.opts.WorkingDir, err)
		}
		cleared = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", e.opts.WorkingDir, err)
	}

	if err := e.opts.Vectors.Reset(ctx); err != nil {
		return cleared, fmt.Errorf("failed to reset vector store: %w", err)
	}
	if err := e.opts.Graph.Reset(ctx); err != nil {
		return cleared, fmt.Errorf("failed to reset graph store: %w", err)
	}
	e.log.Info(fmt.Sprintf("Cleared working storage at %s (removed=%t)", e.opts.WorkingDir, cleared))
	return cleared, nil
}

// Close releases the KV store.
func (e *Local) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.KV.Close()
}

// fileDocID derives the document id from the file content, so renamed copies share results.
func fileDocID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return "doc-" + hex.EncodeToString(h.Sum(nil)), nil
}
