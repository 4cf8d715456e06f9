package api

import (
	"RagDesk/backend/go/internal/engine"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag_backend/service"
	"RagDesk/backend/go/internal/task"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	queryErr error
	lastMode string
	items    int
}

func (s *stubEngine) ProcessDocumentComplete(ctx context.Context, req models.ProcessRequest, logf func(string)) (engine.ProcessOutcome, error) {
	logf("indexed")
	return engine.ProcessOutcome{Cache: engine.CacheMiss}, nil
}

func (s *stubEngine) Query(ctx context.Context, query, mode string) (string, error) {
	s.lastMode = mode
	return "answer to " + query, s.queryErr
}

func (s *stubEngine) QueryWithMultimodal(ctx context.Context, query string, items []models.MultimodalItem, mode string) (string, error) {
	s.lastMode = mode
	s.items = len(items)
	return "multimodal answer", s.queryErr
}

func (s *stubEngine) ClearStorage(ctx context.Context) (bool, error) {
	return true, nil
}

func newRouter(t *testing.T, eng engine.Engine, pool *task.Pool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if pool == nil {
		pool = task.NewPool(1, 4, logger.Discard())
		pool.Start(context.Background())
		t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })
	}
	svc := service.NewDocumentService(eng, task.NewRegistry(), pool, service.Deps{}, logger.Discard())
	router := gin.New()
	RegisterRoutes(router, NewAPI(svc, logger.Discard()))
	return router
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestProcessDocument_Validation(t *testing.T) {
	router := newRouter(t, &stubEngine{}, nil)

	w := postForm(router, "/api/process_document/", url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file_path is required", decode(t, w)["error"])

	w = postForm(router, "/api/process_document/", url.Values{"file_path": {"/missing/doc.pdf"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File not found: /missing/doc.pdf", decode(t, w)["error"])

	w = get(router, "/api/process_document/")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "POST required", decode(t, w)["error"])
}

func TestProcessDocument_ThenStatus(t *testing.T) {
	router := newRouter(t, &stubEngine{}, nil)
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	w := postForm(router, "/api/process_document/", url.Values{"file_path": {path}})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, "Document processing started in background", body["message"])
	id := body["task_id"].(string)
	require.NotEmpty(t, id)

	var status map[string]interface{}
	require.Eventually(t, func() bool {
		w := get(router, "/api/task_status/"+id+"/")
		if w.Code != http.StatusOK {
			return false
		}
		status = decode(t, w)
		return status["status"] == "completed"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, id, status["task_id"])
	assert.Equal(t, "paper.pdf", status["file_path"])
	assert.Equal(t, float64(100), status["progress"])
	assert.IsType(t, float64(0), status["start_time"])
	assert.IsType(t, float64(0), status["end_time"])
	result := status["result"].(map[string]interface{})
	assert.Equal(t, "./output", result["output_dir"])
	assert.Equal(t, false, result["was_cached"])
	assert.NotContains(t, status, "error")
}

func TestProcessDocument_QueueFull(t *testing.T) {
	pool := task.NewPool(1, 0, logger.Discard())
	router := newRouter(t, &stubEngine{}, pool)
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := postForm(router, "/api/process_document/", url.Values{"file_path": {path}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Processing queue is full, try again later", decode(t, w)["error"])
}

func TestTaskStatus_NotFound(t *testing.T) {
	router := newRouter(t, &stubEngine{}, nil)

	w := get(router, "/api/task_status/nope/")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Task not found", decode(t, w)["error"])

	w = postForm(router, "/api/task_status/nope/", url.Values{})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET required", decode(t, w)["error"])
}

func TestQueryDocument(t *testing.T) {
	eng := &stubEngine{}
	router := newRouter(t, eng, nil)

	w := postForm(router, "/api/query_document/", url.Values{"query": {"   "}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Query cannot be empty", decode(t, w)["error"])

	w = postForm(router, "/api/query_document/", url.Values{"query": {"hi"}, "mode": {"semantic"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postForm(router, "/api/query_document/", url.Values{"query": {"hi"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "answer to hi", decode(t, w)["result"])
	assert.Equal(t, "hybrid", eng.lastMode)

	w = postForm(router, "/api/query_document/", url.Values{
		"query":              {"chart?"},
		"mode":               {"local"},
		"multimodal_content": {`[{"type":"table","table_data":"a|b"}]`},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "multimodal answer", decode(t, w)["result"])
	assert.Equal(t, 1, eng.items)

	// Malformed multimodal content is ignored.
	w = postForm(router, "/api/query_document/", url.Values{"query": {"other"}, "multimodal_content": {"{not json"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "answer to other", decode(t, w)["result"])
}

func TestQueryDocument_EngineError(t *testing.T) {
	router := newRouter(t, &stubEngine{queryErr: errors.New("llm unavailable")}, nil)

	w := postForm(router, "/api/query_document/", url.Values{"query": {"hi"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "llm unavailable", decode(t, w)["error"])
}

func TestClearCache(t *testing.T) {
	router := newRouter(t, &stubEngine{}, nil)

	w := postForm(router, "/api/clear_cache/", url.Values{})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Cache cleared successfully", body["message"])
	assert.Equal(t, "Will be fresh processing (10+ minutes)", body["next_processing"])

	w = get(router, "/api/clear_cache/")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthz(t *testing.T) {
	router := newRouter(t, &stubEngine{}, nil)
	w := get(router, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "tasks": float64(0)}, decode(t, w))
}
