package ragclient

import (
	"RagDesk/backend/go/internal/config"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUIClientLoginUploadProcess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Incorrect username or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","auth_mode":"enabled"}`)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
			return
		}
		f, fh, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "hello", string(data))
		_, _ = io.WriteString(w, `{"success":true,"message":"File `+fh.Filename+` uploaded successfully","file_name":"`+fh.Filename+`","file_size":5}`)
	})
	mux.HandleFunc("/process_file", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "note.txt", r.PostForm.Get("file_name"))
		_, _ = io.WriteString(w, `{"task_id":"t1","status":"processing","message":"Processing started"}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	c, err := NewUI(ts.URL+"/", config.CircuitBreakerConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Upload(ctx, path)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Not authenticated", apiErr.Message)

	require.Error(t, c.Login(ctx, "alice", "wrong"))
	require.NoError(t, c.Login(ctx, "alice", "pw"))

	up, err := c.Upload(ctx, path)
	require.NoError(t, err)
	assert.True(t, up.Success)
	assert.Equal(t, "note.txt", up.FileName)
	assert.Equal(t, int64(5), up.FileSize)

	sub, err := c.ProcessFile(ctx, up.FileName)
	require.NoError(t, err)
	assert.Equal(t, "t1", sub.TaskID)
}

func TestNewUIRejectsEmptyURL(t *testing.T) {
	_, err := NewUI("", config.CircuitBreakerConfig{})
	assert.Error(t, err)
}
