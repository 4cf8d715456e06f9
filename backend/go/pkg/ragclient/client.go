// Package ragclient talks to the document processing backend over HTTP and
// follows its task events on Kafka.
package ragclient

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
	phttp "RagDesk/backend/go/pkg/http"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTaskNotFound is returned by TaskStatus when the backend does not know the task.
var ErrTaskNotFound = errors.New("task not found")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the backend endpoints. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *phttp.Client
}

// New creates a Client for the backend at baseURL, e.g. http://localhost:8000.
func New(baseURL string, breaker config.CircuitBreakerConfig, opts ...phttp.ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend url is empty")
	}
	hc, err := phttp.NewClient(breaker, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: normalizeBaseURL(baseURL), http: hc}, nil
}

func normalizeBaseURL(u string) string {
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	return strings.TrimRight(u, "/")
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ProcessDocument queues a document for processing.
func (c *Client) ProcessDocument(ctx context.Context, req models.ProcessRequest) (*models.SubmitResponse, error) {
	form := url.Values{"file_path": {req.FilePath}}
	if req.OutputDir != "" {
		form.Set("output_dir", req.OutputDir)
	}
	if req.ParseMethod != "" {
		form.Set("parse_method", req.ParseMethod)
	}

	var resp models.SubmitResponse
	if err := c.postForm(ctx, "/api/process_document", form, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TaskStatus fetches the current state of a task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*models.TaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/task_status/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}
	var resp models.TaskStatusResponse
	if err := c.do(req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, err
	}
	return &resp, nil
}

// WaitForTask polls TaskStatus every interval until the task is completed or failed.
// onUpdate, if set, sees every poll result.
func (c *Client) WaitForTask(ctx context.Context, taskID string, interval time.Duration, onUpdate func(*models.TaskStatusResponse)) (*models.TaskStatusResponse, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := c.TaskStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(st)
		}
		if st.Status.IsTerminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Query asks a question over the indexed documents. items may be nil.
func (c *Client) Query(ctx context.Context, query, mode string, items []models.MultimodalItem) (string, error) {
	form := url.Values{"query": {query}}
	if mode != "" {
		form.Set("mode", mode)
	}
	if len(items) > 0 {
		raw, err := json.Marshal(items)
		if err != nil {
			return "", fmt.Errorf("encode multimodal content: %w", err)
		}
		form.Set("multimodal_content", string(raw))
	}

	var resp struct {
		Result string `json:"result"`
	}
	if err := c.postForm(ctx, "/api/query_document", form, &resp); err != nil {
		return "", err
	}
	return resp.Result, nil
}

// ClearCache wipes the backend's working storage.
func (c *Client) ClearCache(ctx context.Context) (*models.ClearCacheResponse, error) {
	var resp models.ClearCacheResponse
	if err := c.postForm(ctx, "/api/clear_cache", url.Values{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// errorMessage pulls "error" or "detail" out of a JSON error body.
func errorMessage(body []byte) string {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Detail != "" {
			return e.Detail
		}
	}
	return strings.TrimSpace(string(body))
}
