package http

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/pkg/circuitbreaker"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_BreakerOpensAfterServerErrors(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	c, err := NewClient(config.CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, SuccessThreshold: 1, Timeout: "1m"}, WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
		resp, err := c.Do(req)
		if err != nil {
			t.Fatalf("Request %d: unexpected error %v", i+1, err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("Request %d: expected 500, got %d", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	if c.State() != circuitbreaker.Open {
		t.Fatalf("Expected breaker to be open, got %s", c.State())
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := c.Do(req); !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls to reach the server, got %d", calls)
	}
}

func TestClient_WithoutBreaker(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c, err := NewClient(config.CircuitBreakerConfig{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	if c.State() != circuitbreaker.Closed {
		t.Errorf("Expected Closed, got %s", c.State())
	}
}
