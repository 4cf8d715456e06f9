package graphstore

import (
	"RagDesk/backend/go/internal/database/neo4j"
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"fmt"

	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore stores (:RagDocument)-[:HAS_CHUNK]->(:RagChunk) with [:NEXT] links between consecutive chunks.
type Neo4jStore struct {
	client *neo4j.Neo4jClient
}

// NewNeo4jStore creates a new Neo4jStore and ensures its uniqueness constraints.
func NewNeo4jStore(ctx context.Context, client *neo4j.Neo4jClient) (*Neo4jStore, error) {
	if err := client.EnsureConstraints(ctx); err != nil {
		return nil, fmt.Errorf("failed to create neo4j constraints: %w", err)
	}
	return &Neo4jStore{client: client}, nil
}

// AddDocument writes the document node, its chunks and the chunk chain in one transaction.
func (s *Neo4jStore) AddDocument(ctx context.Context, docID, fileName string, chunks []*schema.Document) error {
	rows := make([]map[string]interface{}, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		rows[i] = map[string]interface{}{"id": c.ID, "idx": i}
		ids[i] = c.ID
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx driver.ManagedTransaction) (interface{}, error) {
		query := `
		MERGE (d:RagDocument {doc_id: $doc_id})
		SET d.file_name = $file_name
		WITH d
		UNWIND $chunks AS row
		MERGE (c:RagChunk {chunk_id: row.id})
		SET c.idx = row.idx, c.doc_id = $doc_id
		MERGE (d)-[:HAS_CHUNK]->(c)
		`
		params := map[string]interface{}{"doc_id": docID, "file_name": fileName, "chunks": rows}
		if _, err := tx.Run(ctx, query, params); err != nil {
			return nil, err
		}
		if len(ids) < 2 {
			return nil, nil
		}

		link := `
		UNWIND range(0, size($ids) - 2) AS i
		MATCH (a:RagChunk {chunk_id: $ids[i]}), (b:RagChunk {chunk_id: $ids[i + 1]})
		MERGE (a)-[:NEXT]->(b)
		`
		_, err := tx.Run(ctx, link, map[string]interface{}{"ids": ids})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to add document graph to neo4j: %w", err)
	}
	return nil
}

// Neighbors returns the chunks linked to chunkID by NEXT in either direction.
func (s *Neo4jStore) Neighbors(ctx context.Context, chunkID string) ([]string, error) {
	query := `
	MATCH (c:RagChunk {chunk_id: $chunk_id})
	OPTIONAL MATCH (p:RagChunk)-[:NEXT]->(c)
	OPTIONAL MATCH (c)-[:NEXT]->(n:RagChunk)
	RETURN p.chunk_id AS prev, n.chunk_id AS next
	`
	res, err := s.client.ExecuteRead(ctx, func(tx driver.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, map[string]interface{}{"chunk_id": chunkID})
		if err != nil {
			return nil, err
		}
		var out []string
		for result.Next(ctx) {
			record := result.Record()
			for _, key := range []string{"prev", "next"} {
				if v, ok := record.Get(key); ok {
					if id, ok := v.(string); ok && id != "" {
						out = append(out, id)
					}
				}
			}
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk neighbors from neo4j: %w", err)
	}
	return dedupe(res.([]string)), nil
}

// DocumentChunks returns the first limit chunk ids of docID ordered by position.
func (s *Neo4jStore) DocumentChunks(ctx context.Context, docID string, limit int) ([]string, error) {
	query := `
	MATCH (:RagDocument {doc_id: $doc_id})-[:HAS_CHUNK]->(c:RagChunk)
	RETURN c.chunk_id AS id
	ORDER BY c.idx
	LIMIT $limit
	`
	if limit <= 0 {
		limit = 1 << 20
	}
	res, err := s.client.ExecuteRead(ctx, func(tx driver.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, map[string]interface{}{"doc_id": docID, "limit": limit})
		if err != nil {
			return nil, err
		}
		out := []string{}
		for result.Next(ctx) {
			if v, ok := result.Record().Get("id"); ok {
				if id, ok := v.(string); ok {
					out = append(out, id)
				}
			}
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document chunks from neo4j: %w", err)
	}
	return res.([]string), nil
}

// Reset deletes every RagDocument and RagChunk node.
func (s *Neo4jStore) Reset(ctx context.Context) error {
	_, err := s.client.ExecuteWrite(ctx, func(tx driver.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, "MATCH (n) WHERE n:RagDocument OR n:RagChunk DETACH DELETE n", nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to reset neo4j graph: %w", err)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var _ interfaces.GraphStore = (*Neo4jStore)(nil)
