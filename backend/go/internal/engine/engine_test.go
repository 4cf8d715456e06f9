package engine

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag/splitters"
	"RagDesk/backend/go/internal/rag/storages/graphstore"
	"RagDesk/backend/go/internal/rag/storages/kvstore"
	"RagDesk/backend/go/internal/rag/storages/vectorstore"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lengthEmbedder struct{}

func (lengthEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)) + 1, float32(strings.Count(t, "x")) + 1}
	}
	return out, nil
}

type fakeLLM struct {
	prompts     []string
	attachments [][]*models.Blob
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, attachments ...*models.Blob) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.attachments = append(f.attachments, attachments)
	return "generated", nil
}

func newTestEngine(t *testing.T) (*Local, *fakeLLM, *vectorstore.MemoryStore) {
	t.Helper()
	splitter, err := splitters.NewRuneSplitter(16, 4)
	require.NoError(t, err)
	llm := &fakeLLM{}
	vectors := vectorstore.NewMemoryStore()
	e, err := NewLocal(LocalOptions{
		WorkingDir:  filepath.Join(t.TempDir(), "rag_storage"),
		OutputDir:   t.TempDir(),
		ParseMethod: "auto",
		Parser:      "mineru",
		Query:       config.QueryConfig{TopK: 4, MaxChunks: 8},
		Splitter:    splitter,
		Embedder:    lengthEmbedder{},
		LLM:         llm,
		KV:          kvstore.NewBadger("", true, logger.Discard()),
		Vectors:     vectors,
		Graph:       graphstore.NewMemoryStore(),
		Log:         logger.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, llm, vectors
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(strings.ToUpper(string(m)))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, got)

	_, err = ParseMode("semantic")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestLocal_ProcessThenCached(t *testing.T) {
	e, _, vectors := newTestEngine(t)
	path := writeFile(t, "guide.txt", "The quick brown fox jumps over the lazy dog. xxx marks the spot.")
	ctx := context.Background()

	var logs []string
	outcome, err := e.ProcessDocumentComplete(ctx, models.ProcessRequest{FilePath: path}, func(s string) { logs = append(logs, s) })
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, outcome.Cache)
	assert.True(t, strings.HasPrefix(outcome.DocID, "doc-"))
	assert.Greater(t, outcome.Chunks, 1)
	assert.Equal(t, outcome.Chunks, vectors.Len())
	assert.FileExists(t, filepath.Join(outcome.OutputDir, "guide.md"))
	for _, l := range logs {
		assert.NotContains(t, l, "already exists")
	}

	// A copy under another name has the same content and is recognised.
	copyPath := writeFile(t, "guide-copy.txt", "The quick brown fox jumps over the lazy dog. xxx marks the spot.")
	logs = nil
	again, err := e.ProcessDocumentComplete(ctx, models.ProcessRequest{FilePath: copyPath}, func(s string) { logs = append(logs, s) })
	require.NoError(t, err)
	assert.Equal(t, CacheHit, again.Cache)
	assert.Equal(t, outcome.DocID, again.DocID)
	assert.Equal(t, []string{"Document guide-copy.txt already exists in storage, skipping processing"}, logs)
	assert.Equal(t, outcome.Chunks, vectors.Len())
}

func TestLocal_ProcessMissingFile(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.ProcessDocumentComplete(context.Background(), models.ProcessRequest{FilePath: "/nope/missing.pdf"}, nil)

	var notFound *FileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "File not found: /nope/missing.pdf", err.Error())
}

func TestLocal_ProcessUnsupportedFile(t *testing.T) {
	e, _, _ := newTestEngine(t)
	path := writeFile(t, "blob.bin", "\x00\x01\x02\x03")
	_, err := e.ProcessDocumentComplete(context.Background(), models.ProcessRequest{FilePath: path}, nil)
	assert.Error(t, err)
}

func TestLocal_Query(t *testing.T) {
	e, llm, _ := newTestEngine(t)
	path := writeFile(t, "notes.txt", "alpha beta gamma delta epsilon zeta eta theta iota kappa")
	ctx := context.Background()
	_, err := e.ProcessDocumentComplete(ctx, models.ProcessRequest{FilePath: path}, nil)
	require.NoError(t, err)

	answer, err := e.Query(ctx, "what comes after gamma?", "hybrid")
	require.NoError(t, err)
	assert.Equal(t, "generated", answer)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "(from notes.txt)")
	assert.Contains(t, llm.prompts[0], "Question: what comes after gamma?")

	_, err = e.Query(ctx, "plain question", "bypass")
	require.NoError(t, err)
	assert.Equal(t, "plain question", llm.prompts[1])

	_, err = e.Query(ctx, "bad", "semantic")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestLocal_QueryWithMultimodal(t *testing.T) {
	e, llm, _ := newTestEngine(t)
	img := writeFile(t, "chart.png", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	var items []models.MultimodalItem
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"image","img_path":"`+img+`","image_caption":["Quarterly chart"]},
		{"type":"table","table_data":"| q | v |\n| 1 | 2 |","table_caption":"Sales"},
		{"type":"equation","latex":"E=mc^2","equation_caption":"Energy"},
		{"type":"audio","uri":"clip.wav"}
	]`), &items))

	_, err := e.QueryWithMultimodal(context.Background(), "explain", items, "bypass")
	require.NoError(t, err)

	require.Len(t, llm.attachments, 1)
	require.Len(t, llm.attachments[0], 1)
	assert.Equal(t, "image/png", llm.attachments[0][0].MIMEType)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "Image 1 attached: chart.png")
	assert.Contains(t, prompt, "Caption: Quarterly chart")
	assert.Contains(t, prompt, "Caption: Sales")
	assert.Contains(t, prompt, "Equation (LaTeX): E=mc^2")
	assert.Contains(t, prompt, `"uri":"clip.wav"`)
}

func TestLocal_ClearStorage(t *testing.T) {
	e, _, vectors := newTestEngine(t)
	ctx := context.Background()
	path := writeFile(t, "a.txt", "some text that will be indexed into chunks")

	_, err := e.ProcessDocumentComplete(ctx, models.ProcessRequest{FilePath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(e.opts.WorkingDir, 0o755))

	cleared, err := e.ClearStorage(ctx)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.NoDirExists(t, e.opts.WorkingDir)
	assert.Equal(t, 0, vectors.Len())

	cleared, err = e.ClearStorage(ctx)
	require.NoError(t, err)
	assert.False(t, cleared)

	// The document is processed from scratch afterwards.
	outcome, err := e.ProcessDocumentComplete(ctx, models.ProcessRequest{FilePath: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, outcome.Cache)
}

func TestLocal_RestartWithVolatileStoresReindexes(t *testing.T) {
	workingDir := filepath.Join(t.TempDir(), "rag_storage")
	splitter, err := splitters.NewRuneSplitter(16, 4)
	require.NoError(t, err)
	open := func() (*Local, *fakeLLM, *vectorstore.MemoryStore) {
		llm := &fakeLLM{}
		vectors := vectorstore.NewMemoryStore()
		e, err := NewLocal(LocalOptions{
			WorkingDir: workingDir,
			OutputDir:  t.TempDir(),
			Query:      config.QueryConfig{TopK: 4, MaxChunks: 8},
			Splitter:   splitter,
			Embedder:   lengthEmbedder{},
			LLM:        llm,
			KV:         kvstore.NewBadger(filepath.Join(workingDir, kvDirName), false, logger.Discard()),
			Vectors:    vectors,
			Graph:      graphstore.NewMemoryStore(),
		})
		require.NoError(t, err)
		return e, llm, vectors
	}
	ctx := context.Background()
	path := writeFile(t, "guide.txt", "The quick brown fox jumps over the lazy dog. xxx marks the spot.")

	first, _, vectors := open()
	outcome, err := first.ProcessDocumentComplete(ctx, models.ProcessRequest{FilePath: path}, nil)
	require.NoError(t, err)
	require.Equal(t, CacheMiss, outcome.Cache)
	require.Equal(t, outcome.Chunks, vectors.Len())
	require.NoError(t, first.Close())

	second, llm, vectors := open()
	defer second.Close()
	var logs []string
	again, err := second.ProcessDocumentComplete(ctx, models.ProcessRequest{FilePath: path}, func(s string) { logs = append(logs, s) })
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, again.Cache)
	assert.Equal(t, outcome.DocID, again.DocID)
	assert.Equal(t, again.Chunks, vectors.Len())
	assert.Contains(t, logs, "Document guide.txt is recorded but its index is incomplete, processing again")

	_, err = second.Query(ctx, "fox", "naive")
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "(from guide.txt)")

	// Both stores now hold the document, so the next run reuses it.
	third, err := second.ProcessDocumentComplete(ctx, models.ProcessRequest{FilePath: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, third.Cache)
}
