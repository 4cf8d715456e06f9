package ragmcp

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/ragclient"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	submitted []models.ProcessRequest
	query     string
	mode      string
	items     []models.MultimodalItem
	err       error
}

func (f *fakeBackend) ProcessDocument(ctx context.Context, req models.ProcessRequest) (*models.SubmitResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, req)
	return &models.SubmitResponse{TaskID: "abc", Status: models.TaskStatusProcessing, Message: "Processing started"}, nil
}

func (f *fakeBackend) TaskStatus(ctx context.Context, taskID string) (*models.TaskStatusResponse, error) {
	if taskID != "abc" {
		return nil, fmt.Errorf("%w: %s", ragclient.ErrTaskNotFound, taskID)
	}
	return &models.TaskStatusResponse{TaskID: "abc", Status: models.TaskStatusCompleted, Progress: 100}, nil
}

func (f *fakeBackend) Query(ctx context.Context, query, mode string, items []models.MultimodalItem) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.query, f.mode, f.items = query, mode, items
	return "the answer", nil
}

func (f *fakeBackend) ClearCache(ctx context.Context) (*models.ClearCacheResponse, error) {
	return &models.ClearCacheResponse{Message: "Cache cleared successfully"}, nil
}

func toolsByName(t *testing.T, backend Backend) map[string]server.ServerTool {
	t.Helper()
	out := map[string]server.ServerTool{}
	for _, st := range NewTools(backend, nil).ServerTools() {
		out[st.Tool.Name] = st
	}
	return out
}

func call(t *testing.T, tools map[string]server.ServerTool, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	st, ok := tools[name]
	require.True(t, ok, "tool %s not registered", name)
	res, err := st.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

func TestToolSet(t *testing.T) {
	tools := toolsByName(t, &fakeBackend{})
	assert.Len(t, tools, 4)
	for _, name := range []string{ToolProcessDocument, ToolTaskStatus, ToolQueryDocument, ToolClearCache} {
		assert.Contains(t, tools, name)
	}
	assert.NotNil(t, NewServer(&fakeBackend{}, "test", nil))
}

func TestProcessDocumentTool(t *testing.T) {
	backend := &fakeBackend{}
	tools := toolsByName(t, backend)

	res := call(t, tools, ToolProcessDocument, nil)
	assert.True(t, res.IsError)

	res = call(t, tools, ToolProcessDocument, map[string]any{"file_path": "/data/a.pdf", "parse_method": "ocr"})
	require.False(t, res.IsError, text(t, res))

	var resp models.SubmitResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &resp))
	assert.Equal(t, "abc", resp.TaskID)
	require.Len(t, backend.submitted, 1)
	assert.Equal(t, "/data/a.pdf", backend.submitted[0].FilePath)
	assert.Equal(t, "ocr", backend.submitted[0].ParseMethod)
	assert.Empty(t, backend.submitted[0].OutputDir)
}

func TestProcessDocumentToolBackendError(t *testing.T) {
	backend := &fakeBackend{err: &ragclient.APIError{StatusCode: 400, Message: "File not found: /x"}}
	res := call(t, toolsByName(t, backend), ToolProcessDocument, map[string]any{"file_path": "/x"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "File not found: /x")
}

func TestTaskStatusTool(t *testing.T) {
	tools := toolsByName(t, &fakeBackend{})

	res := call(t, tools, ToolTaskStatus, map[string]any{"task_id": "abc"})
	require.False(t, res.IsError)
	var st models.TaskStatusResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &st))
	assert.Equal(t, models.TaskStatusCompleted, st.Status)
	assert.Equal(t, 100, st.Progress)

	res = call(t, tools, ToolTaskStatus, map[string]any{"task_id": "nope"})
	assert.True(t, res.IsError)
	assert.Equal(t, "Task nope not found", text(t, res))
}

func TestQueryDocumentTool(t *testing.T) {
	backend := &fakeBackend{}
	tools := toolsByName(t, backend)

	res := call(t, tools, ToolQueryDocument, map[string]any{
		"query":              "what is in the table?",
		"mode":               "mix",
		"multimodal_content": `[{"type":"table","table_data":"a,b\n1,2"}]`,
	})
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, "the answer", text(t, res))
	assert.Equal(t, "mix", backend.mode)
	require.Len(t, backend.items, 1)
	assert.Equal(t, "table", backend.items[0].Type)

	res = call(t, tools, ToolQueryDocument, map[string]any{"query": "q", "multimodal_content": "{"})
	assert.True(t, res.IsError)
}

func TestClearCacheTool(t *testing.T) {
	res := call(t, toolsByName(t, &fakeBackend{}), ToolClearCache, nil)
	require.False(t, res.IsError)
	assert.Contains(t, text(t, res), "Cache cleared successfully")
}
