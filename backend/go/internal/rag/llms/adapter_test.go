package llms

import (
	"RagDesk/backend/go/internal/models"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLLM struct {
	req    *models.GenerateContentRequest
	answer string
}

func (r *recordingLLM) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	r.req = req
	return &models.GenerateContentResponse{Content: []models.Content{{Parts: []*models.Part{{Text: r.answer}}}}}, nil
}

func TestAdapter_Generate(t *testing.T) {
	client := &recordingLLM{answer: "  the answer \n"}
	a := NewAdapter(client)

	blob := &models.Blob{MIMEType: "image/png", Data: []byte{1}}
	got, err := a.Generate(context.Background(), "question", blob, nil)
	require.NoError(t, err)
	assert.Equal(t, "the answer", got)

	require.Len(t, client.req.Content, 1)
	parts := client.req.Content[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "question", parts[0].Text)
	assert.Same(t, blob, parts[1].InlineData)
}

func TestAdapter_EmptyAnswer(t *testing.T) {
	_, err := NewAdapter(&recordingLLM{answer: " "}).Generate(context.Background(), "q")
	assert.Error(t, err)
}
