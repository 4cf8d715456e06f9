package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotJSONObject is returned by Save when the payload is not a JSON object.
var ErrNotJSONObject = errors.New("config must be a JSON object")

// ConfigStore keeps the RAG settings document saved from the UI.
// The document is stored as-is; only its top level must be an object.
type ConfigStore struct {
	path string
	mu   sync.Mutex
}

// NewConfigStore creates a store for path.
func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Path returns the file location.
func (s *ConfigStore) Path() string {
	return s.path
}

// Save writes raw, re-indented with two spaces.
func (s *ConfigStore) Save(raw []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return ErrNotJSONObject
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return ErrNotJSONObject
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}

// Load returns the saved document, or an empty object when nothing was saved yet.
func (s *ConfigStore) Load() (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return json.RawMessage("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", s.path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("config %s is not valid JSON", s.path)
	}
	return json.RawMessage(data), nil
}
