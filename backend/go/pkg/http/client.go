package http

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/pkg/circuitbreaker"
	"fmt"
	"net/http"
	"time"
)

const defaultClientTimeout = 30 * time.Second

// Client wraps http.Client and guards calls with an optional circuit breaker.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// NewClient creates a Client. The circuit breaker is only installed when cfg enables it.
func NewClient(cfg config.CircuitBreakerConfig, opts ...ClientOption) (*Client, error) {
	c := &Client{httpClient: &http.Client{Timeout: defaultClientTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	if !cfg.Enabled {
		return c, nil
	}

	breaker, err := circuitbreaker.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.breaker = breaker
	return c, nil
}

// Do executes an HTTP request with circuit breaker protection.
// Status codes >= 500 count as failures; the response is still returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil && resp != nil && resp.StatusCode >= http.StatusInternalServerError {
		// The body carries the server's error detail.
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State reports the breaker state, Closed when no breaker is installed.
func (c *Client) State() circuitbreaker.State {
	if c.breaker == nil {
		return circuitbreaker.Closed
	}
	return c.breaker.State()
}
