package vectorstore

import (
	"RagDesk/backend/go/internal/database/milvus"
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusStore is an adapter for the Milvus client to implement the VectorStore interface.
// The collection must carry the id, doc_id and embedding fields of milvus.DefaultFields.
type MilvusStore struct {
	log    *logger.Logger
	mc     *milvus.MilvusClient
	client client.Client
	dim    int
}

// NewMilvusStore creates a MilvusStore and makes sure the collection exists and is loaded.
func NewMilvusStore(ctx context.Context, milvusClient *milvus.MilvusClient, dim int, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if err := milvusClient.EnsureCollection(ctx, dim); err != nil {
		return nil, err
	}
	return &MilvusStore{log: log, mc: milvusClient, client: milvusClient.Client, dim: dim}, nil
}

func (s *MilvusStore) collection() string {
	return s.mc.Config.Schema.CollectionName
}

// Add inserts a list of documents into the Milvus collection.
func (s *MilvusStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	docIDs := make([]string, len(docs))
	embeddings := make([][]float32, len(docs))
	for i, doc := range docs {
		if len(doc.Embedding) != s.dim {
			return fmt.Errorf("embedding dimension mismatch for %s: got %d, want %d", doc.ID, len(doc.Embedding), s.dim)
		}
		ids[i] = doc.ID
		docIDs[i] = doc.DocID()
		embeddings[i] = doc.Embedding
	}

	idCol := entity.NewColumnVarChar(milvus.FieldID, ids)
	docIDCol := entity.NewColumnVarChar(milvus.FieldDocID, docIDs)
	embeddingCol := entity.NewColumnFloatVector(milvus.FieldEmbedding, s.dim, embeddings)

	s.log.Info(fmt.Sprintf("Inserting %d chunks into Milvus collection: %s", len(docs), s.collection()))
	if _, err := s.client.Insert(ctx, s.collection(), "", idCol, docIDCol, embeddingCol); err != nil {
		return fmt.Errorf("failed to insert data into Milvus: %w", err)
	}
	return s.mc.FlushCollection(ctx)
}

// Query performs a vector search in the Milvus collection.
func (s *MilvusStore) Query(ctx context.Context, embedding []float32, topK int) ([]*schema.Document, error) {
	if topK <= 0 {
		return []*schema.Document{}, nil
	}
	searchParams, err := s.searchParam()
	if err != nil {
		return nil, err
	}

	searchResults, err := s.client.Search(
		ctx, s.collection(), []string{}, "", []string{milvus.FieldID, milvus.FieldDocID},
		[]entity.Vector{entity.FloatVector(embedding)},
		milvus.FieldEmbedding, entity.MetricType(s.mc.Config.Schema.Index.MetricType), topK, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var results []*schema.Document
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := findColumn(milvus.FieldID).(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("Search result is missing ID field or has wrong type, skipping.")
			continue
		}
		var docIDData []string
		if col, ok := findColumn(milvus.FieldDocID).(*entity.ColumnVarChar); ok {
			docIDData = col.Data()
		}

		idData := idCol.Data()
		for i := 0; i < res.ResultCount; i++ {
			doc := &schema.Document{
				ID:       idData[i],
				Metadata: map[string]interface{}{schema.MetadataKeyScore: float64(res.Scores[i])},
			}
			if docIDData != nil {
				doc.Metadata[schema.MetadataKeyDocID] = docIDData[i]
			}
			results = append(results, doc)
		}
	}
	return results, nil
}

// Contains looks ids up by primary key.
func (s *MilvusStore) Contains(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	rs, err := s.client.QueryByPks(ctx, s.collection(), []string{}, entity.NewColumnVarChar(milvus.FieldID, ids), []string{milvus.FieldID})
	if err != nil {
		return false, fmt.Errorf("failed to query Milvus by id: %w", err)
	}
	for _, col := range rs {
		if col.Name() == milvus.FieldID {
			return col.Len() >= len(ids), nil
		}
	}
	return false, nil
}

// Reset drops and recreates the collection.
func (s *MilvusStore) Reset(ctx context.Context) error {
	if err := s.mc.DropCollection(ctx); err != nil {
		return err
	}
	return s.mc.EnsureCollection(ctx, s.dim)
}

func (s *MilvusStore) searchParam() (entity.SearchParam, error) {
	params := s.mc.Config.Schema.Index.Params
	switch s.mc.Config.Schema.Index.IndexType {
	case "HNSW":
		return entity.NewIndexHNSWSearchParam(intParam(params, "ef", 64))
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEXSearchParam(1)
	default:
		return entity.NewIndexIvfFlatSearchParam(intParam(params, "nprobe", 10))
	}
}

func intParam(params map[string]interface{}, key string, def int) int {
	if v, ok := params[key].(int); ok && v > 0 {
		return v
	}
	return def
}

var _ interfaces.VectorStore = (*MilvusStore)(nil)
