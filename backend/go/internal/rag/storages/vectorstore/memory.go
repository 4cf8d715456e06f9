package vectorstore

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

type memoryEntry struct {
	docID     string
	embedding []float32
}

// MemoryStore is a thread-safe vector store ranking by cosine similarity over every entry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	dim     int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Add stores the embeddings of docs. All vectors must share one dimension.
func (s *MemoryStore) Add(ctx context.Context, docs []*schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}
		if s.dim == 0 {
			s.dim = len(doc.Embedding)
		}
		if len(doc.Embedding) != s.dim {
			return fmt.Errorf("embedding dimension mismatch for %s: got %d, want %d", doc.ID, len(doc.Embedding), s.dim)
		}
		vec := make([]float32, len(doc.Embedding))
		copy(vec, doc.Embedding)
		s.entries[doc.ID] = memoryEntry{docID: doc.DocID(), embedding: vec}
	}
	return nil
}

// Query returns up to topK documents, best first. Only ID and metadata are filled.
func (s *MemoryStore) Query(ctx context.Context, embedding []float32, topK int) ([]*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.entries) == 0 {
		return []*schema.Document{}, nil
	}
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(embedding), s.dim)
	}

	type scored struct {
		id    string
		docID string
		score float64
	}
	all := make([]scored, 0, len(s.entries))
	for id, e := range s.entries {
		all = append(all, scored{id: id, docID: e.docID, score: cosine(embedding, e.embedding)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score == all[j].score {
			return all[i].id < all[j].id
		}
		return all[i].score > all[j].score
	})
	if len(all) > topK {
		all = all[:topK]
	}

	results := make([]*schema.Document, len(all))
	for i, sc := range all {
		results[i] = &schema.Document{
			ID: sc.id,
			Metadata: map[string]interface{}{
				schema.MetadataKeyScore: sc.score,
				schema.MetadataKeyDocID: sc.docID,
			},
		}
	}
	return results, nil
}

// Contains reports whether every id has an entry.
func (s *MemoryStore) Contains(ctx context.Context, ids []string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range ids {
		if _, ok := s.entries[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// Reset drops every entry.
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	s.dim = 0
	return nil
}

// Len returns the number of stored vectors.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ interfaces.VectorStore = (*MemoryStore)(nil)
