package cache

import (
	"RagDesk/backend/go/internal/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyHash(t *testing.T) {
	a := Key{Mode: "hybrid", Query: "q"}
	b := Key{Mode: "local", Query: "q"}
	c := Key{Mode: "hybrid", Query: "q", Multimodal: []models.MultimodalItem{{Type: "table", TableData: "x"}}}

	assert.Equal(t, a.Hash(), Key{Mode: "hybrid", Query: "q"}.Hash())
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	// The separator keeps mode and query from running together.
	assert.NotEqual(t, Key{Mode: "ab", Query: "c"}.Hash(), Key{Mode: "a", Query: "bc"}.Hash())
}

func TestTiered_LocalOnly(t *testing.T) {
	c, err := NewTiered(2, time.Minute, nil, "ragdesk:", nil)
	require.NoError(t, err)
	ctx := context.Background()
	key := Key{Mode: "hybrid", Query: "what?"}

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Set(ctx, key, "answer")
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "answer", got)

	c.Invalidate(ctx)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTiered_Capacity(t *testing.T) {
	c, err := NewTiered(2, 0, nil, "", nil)
	require.NoError(t, err)
	ctx := context.Background()

	c.Set(ctx, Key{Query: "1"}, "a")
	c.Set(ctx, Key{Query: "2"}, "b")
	c.Set(ctx, Key{Query: "3"}, "c")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, Key{Query: "1"})
	assert.False(t, ok)
}

func TestTiered_SetIfCurrent(t *testing.T) {
	c, err := NewTiered(4, time.Minute, nil, "", nil)
	require.NoError(t, err)
	ctx := context.Background()
	key := Key{Mode: "hybrid", Query: "q"}

	before := c.Epoch(ctx)
	c.Invalidate(ctx)
	assert.False(t, c.SetIfCurrent(ctx, key, "answer-before-ingest", before))
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	assert.True(t, c.SetIfCurrent(ctx, key, "answer-after-ingest", c.Epoch(ctx)))
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "answer-after-ingest", got)
}
