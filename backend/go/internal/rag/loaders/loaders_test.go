package loaders

import (
	"RagDesk/backend/go/internal/rag/schema"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRegistry_ForFile(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()

	cases := []struct {
		file string
		data []byte
		want string
	}{
		{"notes.txt", []byte("plain text"), "text"},
		{"readme.md", []byte("# Title\n\nbody"), "markdown"},
		{"page.html", []byte("<html><body><p>hi</p></body></html>"), "html"},
		{"picture.png", pngBytes(t), "image"},
		// no extension: picked by content
		{"noext", pngBytes(t), "image"},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			p := writeFile(t, dir, tc.file, tc.data)
			_, name, err := reg.ForFile(p)
			require.NoError(t, err)
			assert.Equal(t, tc.want, name)
		})
	}
}

func TestRegistry_ForFile_Unsupported(t *testing.T) {
	p := writeFile(t, t.TempDir(), "blob.bin", []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00})
	_, _, err := NewRegistry().ForFile(p)
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestRegistry_ForFile_Missing(t *testing.T) {
	_, _, err := NewRegistry().ForFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestTxtLoader(t *testing.T) {
	p := writeFile(t, t.TempDir(), "a.txt", []byte("hello world"))
	docs, err := NewTxtLoader().Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello world", docs[0].Text)
	assert.Equal(t, "a.txt", docs[0].Metadata[schema.MetadataKeyFileName])
	assert.NotEmpty(t, docs[0].ID)
}

func TestMarkdownLoader_ReadsLocalImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pic.png", pngBytes(t))
	p := writeFile(t, dir, "doc.md", []byte("# Doc\n\n![local](pic.png)\n![remote](https://example.com/x.png)\n"))

	docs, err := NewMarkdownLoader().Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	images, ok := docs[0].Metadata[schema.MetadataKeyImage].([][]byte)
	require.True(t, ok)
	assert.Len(t, images, 1)
}

func TestHTMLLoader(t *testing.T) {
	p := writeFile(t, t.TempDir(), "page.html",
		[]byte("<html><body><h1>Title</h1><p>Hello <strong>world</strong></p></body></html>"))
	docs, err := NewHTMLLoader().Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, "# Title")
	assert.Contains(t, docs[0].Text, "**world**")
}

func TestXlsxLoader(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sheet.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "score"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "alice"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42))
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	_, name, err := NewRegistry().ForFile(p)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", name)

	docs, err := NewXlsxLoader().Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "| name | score |\n| --- | --- |\n| alice | 42 |\n", docs[0].Text)
	assert.Equal(t, "Sheet1", docs[0].Metadata[schema.MetadataKeySheetName])
}

func TestMarkdownTable_PadsShortRows(t *testing.T) {
	got := markdownTable([][]string{{"a", "b"}, {"1"}})
	assert.Equal(t, "| a | b |\n| --- | --- |\n| 1 |  |\n", got)
}

func TestImageLoader(t *testing.T) {
	p := writeFile(t, t.TempDir(), "shot.png", pngBytes(t))
	docs, err := NewImageLoader().Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "image", docs[0].Metadata[schema.MetadataKeyType])
	assert.Equal(t, "[Image: shot.png]", docs[0].Text)
	assert.True(t, filepath.IsAbs(docs[0].Metadata[schema.MetadataKeyImagePath].(string)))
}
