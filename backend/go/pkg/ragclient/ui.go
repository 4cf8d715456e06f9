package ragclient

import (
	"RagDesk/backend/go/internal/config"
	phttp "RagDesk/backend/go/pkg/http"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// UploadResponse is the answer of the UI upload endpoint.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// UIClient calls the upload UI. Set a token with Login when the UI requires it.
type UIClient struct {
	baseURL string
	http    *phttp.Client
	token   string
}

// NewUI creates a client for the UI at baseURL.
func NewUI(baseURL string, breaker config.CircuitBreakerConfig, opts ...phttp.ClientOption) (*UIClient, error) {
	if baseURL == "" {
		return nil, errors.New("ui url is empty")
	}
	hc, err := phttp.NewClient(breaker, opts...)
	if err != nil {
		return nil, err
	}
	return &UIClient{baseURL: normalizeBaseURL(baseURL), http: hc}, nil
}

// Login exchanges credentials for a bearer token used by later calls.
// It is a no-op when the UI runs without accounts.
func (c *UIClient) Login(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		AccessToken string `json:"access_token"`
		AuthMode    string `json:"auth_mode"`
	}
	if err := c.do(req, &resp); err != nil {
		return err
	}
	c.token = resp.AccessToken
	return nil
}

// Upload sends a local file to the UI upload directory.
func (c *UIClient) Upload(ctx context.Context, path string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp UploadResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProcessFile asks the UI to hand an uploaded file to the backend.
func (c *UIClient) ProcessFile(ctx context.Context, name string) (*SubmitResponse, error) {
	form := url.Values{"file_name": {name}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process_file", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp SubmitResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *UIClient) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
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
	return json.Unmarshal(body, out)
}
