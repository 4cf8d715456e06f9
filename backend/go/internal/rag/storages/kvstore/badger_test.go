package kvstore

import (
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Badger {
	t.Helper()
	b := NewBadger("", true, nil)
	require.NoError(t, b.Open())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBadger_Chunks(t *testing.T) {
	ctx := context.Background()
	b := openMemory(t)

	err := b.Add(ctx, map[string]*schema.Document{
		"c1": {ID: "c1", Text: "first", Metadata: map[string]interface{}{schema.MetadataKeyChunkIndex: 0}},
		"c2": {ID: "c2", Text: "second"},
	})
	require.NoError(t, err)

	got, err := b.Get(ctx, []string{"c1", "c2", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got["c1"].Text)
	assert.Equal(t, 0, got["c1"].ChunkIndex())

	require.NoError(t, b.Delete(ctx, []string{"c1"}))
	got, err = b.Get(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBadger_Status(t *testing.T) {
	ctx := context.Background()
	b := openMemory(t)

	s, err := b.GetStatus(ctx, "doc-1")
	require.NoError(t, err)
	assert.Nil(t, s)

	want := &schema.DocStatus{DocID: "doc-1", FileName: "a.txt", ChunkCount: 2, ChunkIDs: []string{"c1", "c2"}, ProcessedAt: time.Unix(100, 0).UTC()}
	require.NoError(t, b.PutStatus(ctx, want))

	s, err = b.GetStatus(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, want.ChunkIDs, s.ChunkIDs)
	assert.True(t, want.ProcessedAt.Equal(s.ProcessedAt))
}

func TestBadger_ClosedStore(t *testing.T) {
	b := NewBadger("", true, nil)
	_, err := b.Get(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, b.Close())
}

func TestBadger_ReopenOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "kv")
	b := NewBadger(dir, false, nil)
	require.NoError(t, b.Open())
	require.NoError(t, b.PutStatus(ctx, &schema.DocStatus{DocID: "doc-1"}))
	require.NoError(t, b.Close())

	require.NoError(t, b.Open())
	defer b.Close()
	s, err := b.GetStatus(ctx, "doc-1")
	require.NoError(t, err)
	assert.NotNil(t, s)
}
