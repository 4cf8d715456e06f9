package graphstore

import (
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs(ids ...string) []*schema.Document {
	out := make([]*schema.Document, len(ids))
	for i, id := range ids {
		out[i] = &schema.Document{ID: id}
	}
	return out
}

func TestMemoryStore_Neighbors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.AddDocument(ctx, "doc-1", "a.txt", docs("c0", "c1", "c2")))

	n, err := s.Neighbors(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c2"}, n)

	n, err = s.Neighbors(ctx, "c0")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, n)

	n, err = s.Neighbors(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, n)
}

func TestMemoryStore_DocumentChunks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.AddDocument(ctx, "doc-1", "a.txt", docs("c0", "c1", "c2")))

	ids, err := s.DocumentChunks(ctx, "doc-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1"}, ids)

	ids, err = s.DocumentChunks(ctx, "doc-1", 0)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	ids, err = s.DocumentChunks(ctx, "missing", 2)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStore_ReplaceAndReset(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.AddDocument(ctx, "doc-1", "a.txt", docs("c0", "c1")))
	require.NoError(t, s.AddDocument(ctx, "doc-1", "a.txt", docs("n0")))

	n, err := s.Neighbors(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, n)

	require.NoError(t, s.Reset(ctx))
	ids, err := s.DocumentChunks(ctx, "doc-1", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
