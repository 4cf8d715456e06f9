// Package ragmcp exposes the document processing API as MCP tools.
package ragmcp

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ragclient"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName = "ragdesk"

	ToolProcessDocument = "process_document"
	ToolTaskStatus      = "task_status"
	ToolQueryDocument   = "query_document"
	ToolClearCache      = "clear_cache"
)

// Backend is the part of pkg/ragclient the tools call.
type Backend interface {
	ProcessDocument(ctx context.Context, req models.ProcessRequest) (*models.SubmitResponse, error)
	TaskStatus(ctx context.Context, taskID string) (*models.TaskStatusResponse, error)
	Query(ctx context.Context, query, mode string, items []models.MultimodalItem) (string, error)
	ClearCache(ctx context.Context) (*models.ClearCacheResponse, error)
}

// Tools binds the MCP tool handlers to a backend.
type Tools struct {
	backend Backend
	logger  *logger.Logger
}

// NewTools creates the tool set.
func NewTools(backend Backend, log *logger.Logger) *Tools {
	if log == nil {
		log = logger.Discard()
	}
	return &Tools{backend: backend, logger: log}
}

// NewServer returns an MCP server with every tool registered.
func NewServer(backend Backend, version string, log *logger.Logger) *server.MCPServer {
	s := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))
	s.AddTools(NewTools(backend, log).ServerTools()...)
	return s
}

// ServerTools returns the tool definitions with their handlers.
func (t *Tools) ServerTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolProcessDocument,
				mcp.WithDescription("Queue a document on the backend host for parsing and indexing. Returns a task id to poll with task_status."),
				mcp.WithString("file_path",
					mcp.Required(),
					mcp.Description("Path of the document as seen by the backend"),
				),
				mcp.WithString("output_dir",
					mcp.Description("Directory for parser output"),
				),
				mcp.WithString("parse_method",
					mcp.Description("Parse method"),
					mcp.Enum("auto", "ocr", "txt"),
				),
			),
			Handler: t.processDocument,
		},
		{
			Tool: mcp.NewTool(ToolTaskStatus,
				mcp.WithDescription("Get status, progress and recent log lines of a processing task."),
				mcp.WithString("task_id",
					mcp.Required(),
					mcp.Description("Task id returned by process_document"),
				),
			),
			Handler: t.taskStatus,
		},
		{
			Tool: mcp.NewTool(ToolQueryDocument,
				mcp.WithDescription("Ask a question over the indexed documents."),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("The question"),
				),
				mcp.WithString("mode",
					mcp.Description("Retrieval mode, hybrid when omitted"),
					mcp.Enum("local", "global", "hybrid", "naive", "mix", "bypass"),
				),
				mcp.WithString("multimodal_content",
					mcp.Description("JSON array of extra items (image, table, equation) to ground the question on"),
				),
			),
			Handler: t.queryDocument,
		},
		{
			Tool: mcp.NewTool(ToolClearCache,
				mcp.WithDescription("Delete every indexed document and cached answer on the backend."),
			),
			Handler: t.clearCache,
		},
	}
}

func (t *Tools) processDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := t.backend.ProcessDocument(ctx, models.ProcessRequest{
		FilePath:    filePath,
		OutputDir:   req.GetString("output_dir", ""),
		ParseMethod: req.GetString("parse_method", ""),
	})
	if err != nil {
		return t.failure(fmt.Sprintf("Failed to submit %s", filePath), err), nil
	}
	return jsonResult(resp)
}

func (t *Tools) taskStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := t.backend.TaskStatus(ctx, id)
	if err != nil {
		if errors.Is(err, ragclient.ErrTaskNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Task %s not found", id)), nil
		}
		return t.failure("Failed to fetch task status", err), nil
	}
	return jsonResult(st)
}

func (t *Tools) queryDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var items []models.MultimodalItem
	if raw := req.GetString("multimodal_content", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("multimodal_content is not a JSON array of items: %v", err)), nil
		}
	}
	answer, err := t.backend.Query(ctx, query, req.GetString("mode", ""), items)
	if err != nil {
		return t.failure("Query failed", err), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func (t *Tools) clearCache(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := t.backend.ClearCache(ctx)
	if err != nil {
		return t.failure("Failed to clear cache", err), nil
	}
	return jsonResult(resp)
}

// failure turns a backend error into a tool error result. Transport errors are logged.
func (t *Tools) failure(msg string, err error) *mcp.CallToolResult {
	var apiErr *ragclient.APIError
	if !errors.As(err, &apiErr) {
		t.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "backend_error"}).Warn(msg)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", msg, err))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
