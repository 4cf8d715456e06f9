package service

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag_ui/store"
	"RagDesk/backend/go/pkg/ragclient"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	processed []models.ProcessRequest
	queries   []string
	modes     []string
	err       error
}

func (f *fakeBackend) ProcessDocument(ctx context.Context, req models.ProcessRequest) (*models.SubmitResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.processed = append(f.processed, req)
	return &models.SubmitResponse{TaskID: "task-1", Status: models.TaskStatusProcessing}, nil
}

func (f *fakeBackend) Query(ctx context.Context, query, mode string, items []models.MultimodalItem) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.queries = append(f.queries, query)
	f.modes = append(f.modes, mode)
	return "answer to " + query, nil
}

type memMirror struct{ keys []string }

func (m *memMirror) Put(ctx context.Context, name, localPath, contentType string) (string, error) {
	key := "uploads/" + name
	m.keys = append(m.keys, key)
	return key, nil
}

type memRegistry struct {
	rows  map[string]*models.UploadedFile
	tasks map[string]string
}

func newMemRegistry() *memRegistry {
	return &memRegistry{rows: map[string]*models.UploadedFile{}, tasks: map[string]string{}}
}

func (r *memRegistry) Record(ctx context.Context, f *models.UploadedFile) error {
	r.rows[f.Name] = f
	return nil
}

func (r *memRegistry) SetLastTask(ctx context.Context, name, taskID string) error {
	r.tasks[name] = taskID
	return nil
}

func (r *memRegistry) Get(ctx context.Context, name string) (*models.UploadedFile, error) {
	return r.rows[name], nil
}

func newService(t *testing.T, backend Backend, deps Deps) (*UIService, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := store.NewFileStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	cfg := store.NewConfigStore(filepath.Join(dir, "rag_config.json"))
	return NewUIService(files, cfg, StaticBackend{B: backend}, deps, nil), files.Dir()
}

func TestUploadStoresMirrorsAndRecords(t *testing.T) {
	mirror := &memMirror{}
	reg := newMemRegistry()
	svc, _ := newService(t, &fakeBackend{}, Deps{Mirror: mirror, Registry: reg})

	res, err := svc.Upload(context.Background(), "notes.txt", strings.NewReader("plain text notes"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", res.Name)
	assert.Equal(t, int64(16), res.Size)
	assert.True(t, strings.HasPrefix(res.MIMEType, "text/plain"))

	assert.Equal(t, []string{"uploads/notes.txt"}, mirror.keys)
	row := reg.rows["notes.txt"]
	require.NotNil(t, row)
	assert.Equal(t, "uploads/notes.txt", row.ObjectKey)
	assert.JSONEq(t, `{"extension":".txt"}`, string(row.Metadata))

	files, err := svc.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "notes.txt", files[0].Name)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _ := newService(t, &fakeBackend{}, Deps{})

	_, err := svc.Upload(context.Background(), "tool.exe", strings.NewReader("MZ"))
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "File type .exe not supported. Allowed: .pdf, .doc, .docx, .txt, .md, .jpg, .jpeg, .png", err.Error())
}

func TestProcessFileCallsBackend(t *testing.T) {
	backend := &fakeBackend{}
	reg := newMemRegistry()
	svc, dir := newService(t, backend, Deps{Registry: reg})
	_, err := svc.Upload(context.Background(), "a.md", strings.NewReader("# A"))
	require.NoError(t, err)

	resp, err := svc.ProcessFile(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, "task-1", resp.TaskID)

	require.Len(t, backend.processed, 1)
	req := backend.processed[0]
	assert.True(t, filepath.IsAbs(req.FilePath))
	assert.Equal(t, "a.md", filepath.Base(req.FilePath))
	assert.Equal(t, filepath.Join(dir, "output"), req.OutputDir)
	assert.Equal(t, "auto", req.ParseMethod)
	assert.Equal(t, "task-1", reg.tasks["a.md"])
}

func TestProcessFileMissing(t *testing.T) {
	backend := &fakeBackend{}
	svc, _ := newService(t, backend, Deps{})

	_, err := svc.ProcessFile(context.Background(), "ghost.pdf")
	assert.ErrorIs(t, err, store.ErrFileNotFound)
	assert.Empty(t, backend.processed)
}

func TestChat(t *testing.T) {
	backend := &fakeBackend{}
	svc, _ := newService(t, backend, Deps{})

	_, err := svc.Chat(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	out, err := svc.Chat(context.Background(), "  what is RAG? ")
	require.NoError(t, err)
	assert.Equal(t, "answer to what is RAG?", out)
	assert.Equal(t, []string{"hybrid"}, backend.modes)
}

func TestChatPropagatesBackendError(t *testing.T) {
	backend := &fakeBackend{err: &ragclient.APIError{StatusCode: 500, Message: "boom"}}
	svc, _ := newService(t, backend, Deps{})

	_, err := svc.Chat(context.Background(), "q")
	var apiErr *ragclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
}

type staticURL struct {
	url string
	err error
}

func (s *staticURL) URL() (string, error) { return s.url, s.err }

func TestDiscoveredBackendReusesClientPerURL(t *testing.T) {
	src := &staticURL{url: "http://10.0.0.1:8000"}
	d := NewDiscoveredBackend(src, config.CircuitBreakerConfig{})

	b1, err := d.Backend(context.Background())
	require.NoError(t, err)
	b2, err := d.Backend(context.Background())
	require.NoError(t, err)
	assert.Same(t, b1, b2)

	src.url = "http://10.0.0.2:8000"
	b3, err := d.Backend(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, b1, b3)
	assert.Equal(t, "http://10.0.0.2:8000", b3.(*ragclient.Client).BaseURL())

	src.err = errors.New("no instances")
	_, err = d.Backend(context.Background())
	assert.Error(t, err)
}
