package etcd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceKeys(t *testing.T) {
	assert.Equal(t, "/services/rag_backend/10.0.0.5:8000", serviceKey("rag_backend", "10.0.0.5:8000"))
	assert.Equal(t, "/services/rag_backend/", servicePrefix("rag_backend"))
}

func TestBaseURL(t *testing.T) {
	_, err := baseURL(nil)
	assert.ErrorIs(t, err, ErrNoInstances)

	u, err := baseURL([]string{"10.0.0.5:8000", "10.0.0.6:8000"})
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", u)

	u, err = baseURL([]string{"https://rag.internal"})
	require.NoError(t, err)
	assert.Equal(t, "https://rag.internal", u)
}

func TestResolverURLBeforeRefresh(t *testing.T) {
	r := (&ServiceDiscovery{}).NewResolver("rag_backend")
	_, err := r.URL()
	assert.ErrorIs(t, err, ErrNoInstances)

	r.set([]string{"127.0.0.1:8000"})
	u, err := r.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", u)
}

func TestNewServiceDiscoveryNeedsEndpoints(t *testing.T) {
	_, err := NewServiceDiscovery(nil, nil)
	assert.Error(t, err)
}
