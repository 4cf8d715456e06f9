package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls [][]string
	fail  bool
}

func (c *countingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (c *countingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.fail {
		return nil, errors.New("boom")
	}
	c.calls = append(c.calls, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestAdapter_Batches(t *testing.T) {
	client := &countingClient{}
	a := NewAdapter(client, 2)

	vecs, err := a.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	assert.Len(t, client.calls, 3)
	assert.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, vecs)
}

func TestAdapter_SingleCallWhenUnbounded(t *testing.T) {
	client := &countingClient{}
	_, err := NewAdapter(client, 0).Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, client.calls, 1)
}

func TestAdapter_Error(t *testing.T) {
	_, err := NewAdapter(&countingClient{fail: true}, 2).Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "boom")
}

func TestAdapter_Empty(t *testing.T) {
	client := &countingClient{}
	vecs, err := NewAdapter(client, 4).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Empty(t, client.calls)
}
