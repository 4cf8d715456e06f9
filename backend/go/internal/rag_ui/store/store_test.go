package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreListFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.md", "notes.TXT", "photo.png", "c.docx", "script.sh"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.pdf"), 0o755))

	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	files, err := fs.List()
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
		assert.Equal(t, int64(1), f.Size)
		assert.False(t, f.ModifiedAt.IsZero())
	}
	assert.Equal(t, []string{"a.md", "b.pdf", "c.docx", "notes.TXT"}, names)
}

func TestFileStoreSaveUsesBaseName(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	name, size, err := fs.Save("../../etc/report.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", name)
	assert.Equal(t, int64(5), size)

	data, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// Replacing keeps a single file and leaves no temp files behind.
	_, _, err = fs.Save("report.pdf", strings.NewReader("v2"))
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStorePath(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	_, _, err = fs.Save("a.txt", strings.NewReader("a"))
	require.NoError(t, err)

	p, err := fs.Path("a.txt")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p))

	_, err = fs.Path("missing.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = fs.Path("../a.txt")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAllowedUpload(t *testing.T) {
	assert.True(t, AllowedUpload("x.PDF"))
	assert.True(t, AllowedUpload("scan.jpeg"))
	assert.False(t, AllowedUpload("x.exe"))
	assert.False(t, AllowedUpload("noext"))
}

func TestConfigStoreRoundTrip(t *testing.T) {
	cs := NewConfigStore(filepath.Join(t.TempDir(), "conf", "rag_config.json"))

	raw, err := cs.Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	require.NoError(t, cs.Save([]byte(`{"processing":{"parseMethod":"ocr"},"ragQuery":{"topK":5}}`)))

	data, err := os.ReadFile(cs.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"processing\": {\n    \"parseMethod\": \"ocr\"")

	raw, err = cs.Load()
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "ragQuery")
}

func TestConfigStoreRejectsNonObjects(t *testing.T) {
	cs := NewConfigStore(filepath.Join(t.TempDir(), "c.json"))
	assert.ErrorIs(t, cs.Save([]byte(`[1,2]`)), ErrNotJSONObject)
	assert.ErrorIs(t, cs.Save([]byte(`{broken`)), ErrNotJSONObject)
	assert.ErrorIs(t, cs.Save([]byte(`null`)), ErrNotJSONObject)
}
