package service

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
	phttp "RagDesk/backend/go/pkg/http"
	"RagDesk/backend/go/pkg/ragclient"
	"context"
	"sync"
)

// Backend is the part of the document processing API the UI relays to.
type Backend interface {
	ProcessDocument(ctx context.Context, req models.ProcessRequest) (*models.SubmitResponse, error)
	Query(ctx context.Context, query, mode string, items []models.MultimodalItem) (string, error)
}

// BackendProvider hands out the backend client to use for one call.
type BackendProvider interface {
	Backend(ctx context.Context) (Backend, error)
}

// StaticBackend always returns the same client.
type StaticBackend struct {
	B Backend
}

func (s StaticBackend) Backend(context.Context) (Backend, error) {
	return s.B, nil
}

// URLSource yields the current backend base URL, e.g. an etcd resolver.
type URLSource interface {
	URL() (string, error)
}

// DiscoveredBackend builds a ragclient for whatever URL the source reports and
// reuses it until the URL changes.
type DiscoveredBackend struct {
	source  URLSource
	breaker config.CircuitBreakerConfig
	opts    []phttp.ClientOption

	mu     sync.Mutex
	url    string
	client *ragclient.Client
}

// NewDiscoveredBackend creates a provider over source.
func NewDiscoveredBackend(source URLSource, breaker config.CircuitBreakerConfig, opts ...phttp.ClientOption) *DiscoveredBackend {
	return &DiscoveredBackend{source: source, breaker: breaker, opts: opts}
}

func (d *DiscoveredBackend) Backend(context.Context) (Backend, error) {
	url, err := d.source.URL()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil && d.url == url {
		return d.client, nil
	}
	c, err := ragclient.New(url, d.breaker, d.opts...)
	if err != nil {
		return nil, err
	}
	d.url, d.client = url, c
	return c, nil
}
