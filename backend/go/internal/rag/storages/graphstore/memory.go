package graphstore

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"sync"
)

type chunkPos struct {
	docID string
	index int
}

// MemoryStore keeps the document -> chunk chains in process.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string][]string
	chunks map[string]chunkPos
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string][]string),
		chunks: make(map[string]chunkPos),
	}
}

// AddDocument replaces the chunk chain of docID with chunks, in the given order.
func (s *MemoryStore) AddDocument(ctx context.Context, docID, fileName string, chunks []*schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.docs[docID] {
		delete(s.chunks, id)
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		s.chunks[c.ID] = chunkPos{docID: docID, index: i}
	}
	s.docs[docID] = ids
	return nil
}

// Neighbors returns the previous and next chunk ids of chunkID, when they exist.
func (s *MemoryStore) Neighbors(ctx context.Context, chunkID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.chunks[chunkID]
	if !ok {
		return []string{}, nil
	}
	chain := s.docs[pos.docID]
	out := make([]string, 0, 2)
	if pos.index > 0 {
		out = append(out, chain[pos.index-1])
	}
	if pos.index+1 < len(chain) {
		out = append(out, chain[pos.index+1])
	}
	return out, nil
}

// DocumentChunks returns the first limit chunk ids of docID.
func (s *MemoryStore) DocumentChunks(ctx context.Context, docID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.docs[docID]
	if limit > 0 && limit < len(chain) {
		chain = chain[:limit]
	}
	out := make([]string, len(chain))
	copy(out, chain)
	return out, nil
}

// Reset drops every document.
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string][]string)
	s.chunks = make(map[string]chunkPos)
	return nil
}

var _ interfaces.GraphStore = (*MemoryStore)(nil)
