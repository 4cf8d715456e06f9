package splitters

import (
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuneSplitter_Validation(t *testing.T) {
	_, err := NewRuneSplitter(0, 0)
	assert.Error(t, err)
	_, err = NewRuneSplitter(10, 10)
	assert.Error(t, err)
	_, err = NewRuneSplitter(10, -1)
	assert.Error(t, err)

	s, err := NewRuneSplitter(10, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, s.ChunkSize)
}

func TestRuneSplitter_Windows(t *testing.T) {
	s, err := NewRuneSplitter(4, 1)
	require.NoError(t, err)

	doc := &schema.Document{ID: "src", Text: "abcdefghij", Metadata: map[string]interface{}{"file_name": "a.txt"}}
	chunks, err := s.Split(context.Background(), []*schema.Document{doc})
	require.NoError(t, err)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, texts)
	for i, c := range chunks {
		assert.Equal(t, "src", c.Metadata["original_doc_id"])
		assert.Equal(t, i+1, c.Metadata["chunk_number"])
		assert.Equal(t, "a.txt", c.Metadata["file_name"])
	}

	// metadata maps are not shared
	chunks[0].Metadata["file_name"] = "changed"
	assert.Equal(t, "a.txt", chunks[1].Metadata["file_name"])
	assert.Equal(t, "a.txt", doc.Metadata["file_name"])
}

func TestRuneSplitter_MultiByte(t *testing.T) {
	s, err := NewRuneSplitter(3, 0)
	require.NoError(t, err)

	chunks, err := s.Split(context.Background(), []*schema.Document{{ID: "x", Text: "检索增强生成"}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "检索增", chunks[0].Text)
	assert.Equal(t, "强生成", chunks[1].Text)
}

func TestRuneSplitter_SkipsBlankWindowsAndImages(t *testing.T) {
	s, err := NewRuneSplitter(5, 0)
	require.NoError(t, err)

	doc := &schema.Document{
		ID:       "x",
		Text:     "hello" + strings.Repeat(" ", 5) + "world",
		Metadata: map[string]interface{}{schema.MetadataKeyImage: [][]byte{{1}}},
	}
	chunks, err := s.Split(context.Background(), []*schema.Document{doc})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "world", chunks[1].Text)
	assert.Equal(t, 2, chunks[1].Metadata["chunk_number"])
	assert.NotContains(t, chunks[0].Metadata, schema.MetadataKeyImage)
}

func TestRuneSplitter_EmptyInput(t *testing.T) {
	s, err := NewRuneSplitter(5, 1)
	require.NoError(t, err)
	chunks, err := s.Split(context.Background(), []*schema.Document{{ID: "x", Text: ""}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
