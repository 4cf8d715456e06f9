package engine

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/database/milvus"
	"RagDesk/backend/go/internal/database/neo4j"
	"RagDesk/backend/go/internal/embedding"
	"RagDesk/backend/go/internal/llm"
	"RagDesk/backend/go/internal/rag/embeddings"
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/llms"
	"RagDesk/backend/go/internal/rag/loaders"
	"RagDesk/backend/go/internal/rag/splitters"
	"RagDesk/backend/go/internal/rag/storages/graphstore"
	"RagDesk/backend/go/internal/rag/storages/kvstore"
	"RagDesk/backend/go/internal/rag/storages/vectorstore"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"fmt"
	"path/filepath"

	"github.com/getsentry/sentry-go"
)

// kvDirName is the Badger directory inside the working directory.
const kvDirName = "kv_store"

// Build creates a Local engine from the application config.
// Milvus and Neo4j are used when their addresses are set; otherwise the stores live in memory.
func Build(ctx context.Context, cfg *config.AppConfig, hub *sentry.Hub, log *logger.Logger) (*Local, error) {
	emd, err := embedding.NewEmdModel(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding model: %w", err)
	}
	model, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	splitter, err := splitters.NewRuneSplitter(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	vectors, err := buildVectorStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	graph, err := buildGraphStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	kv := kvstore.NewBadger(filepath.Join(cfg.Processing.WorkingDir, kvDirName), false, log)
	kv.Sentry = hub

	return NewLocal(LocalOptions{
		WorkingDir:  cfg.Processing.WorkingDir,
		OutputDir:   cfg.Processing.OutputDir,
		ParseMethod: cfg.Processing.ParseMethod,
		Parser:      cfg.Processing.Parser,
		Query:       cfg.Query,
		Loaders:     loaders.NewRegistry(),
		Splitter:    splitter,
		Embedder:    embeddings.NewAdapter(emd, cfg.Processing.EmbedBatchSize),
		LLM:         llms.NewAdapter(model),
		KV:          kv,
		Vectors:     vectors,
		Graph:       graph,
		Log:         log,
	})
}

func buildVectorStore(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (interfaces.VectorStore, error) {
	if cfg.Databases.Milvus.Address == "" {
		log.Info("Using in-memory vector store")
		return vectorstore.NewMemoryStore(), nil
	}
	client, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("Using Milvus vector store at %s", cfg.Databases.Milvus.Address))
	return vectorstore.NewMilvusStore(ctx, client, cfg.Embedding.Dim, log)
}

func buildGraphStore(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (interfaces.GraphStore, error) {
	if cfg.Databases.Neo4j.Uri == "" {
		log.Info("Using in-memory graph store")
		return graphstore.NewMemoryStore(), nil
	}
	client, err := neo4j.GetClient(ctx, &cfg.Databases.Neo4j)
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("Using Neo4j graph store at %s", cfg.Databases.Neo4j.Uri))
	return graphstore.NewNeo4jStore(ctx, client)
}
