package engine

import (
	"RagDesk/backend/go/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"
)

// Engine is the document processing and retrieval backend used by the service layer.
type Engine interface {
	// ProcessDocumentComplete parses and indexes one file. Progress lines go to logf.
	// It blocks until the document is fully processed.
	ProcessDocumentComplete(ctx context.Context, req models.ProcessRequest, logf func(string)) (ProcessOutcome, error)
	Query(ctx context.Context, query, mode string) (string, error)
	QueryWithMultimodal(ctx context.Context, query string, items []models.MultimodalItem, mode string) (string, error)
	// ClearStorage wipes the working storage. cleared is false when there was nothing to remove.
	ClearStorage(ctx context.Context) (cleared bool, err error)
}

// CacheState tells whether a processing call reused earlier results.
type CacheState int

const (
	// CacheUnknown means the engine did not say; callers fall back to inspecting the logs.
	CacheUnknown CacheState = iota
	CacheHit
	CacheMiss
)

func (c CacheState) String() string {
	switch c {
	case CacheHit:
		return "hit"
	case CacheMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// ProcessOutcome describes a finished ProcessDocumentComplete call.
type ProcessOutcome struct {
	Cache     CacheState
	DocID     string
	OutputDir string
	Chunks    int
}

// Mode selects how much context retrieval gathers for a query.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
	ModeHybrid Mode = "hybrid"
	ModeNaive  Mode = "naive"
	ModeMix    Mode = "mix"
	ModeBypass Mode = "bypass"
)

// Modes lists every accepted query mode.
var Modes = []Mode{ModeLocal, ModeGlobal, ModeHybrid, ModeNaive, ModeMix, ModeBypass}

// ErrUnsupportedMode is returned for a query mode outside Modes.
var ErrUnsupportedMode = errors.New("unsupported query mode")

// ParseMode validates s. An empty string selects ModeHybrid.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeHybrid, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %s (supported: local, global, hybrid, naive, mix, bypass)", ErrUnsupportedMode, s)
}

// FileNotFoundError reports a source file that does not exist.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return "File not found: " + e.Path
}
