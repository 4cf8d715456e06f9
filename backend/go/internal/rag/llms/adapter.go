package llms

import (
	"RagDesk/backend/go/internal/llm"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag/interfaces"
	"context"
	"fmt"
	"strings"
)

// Adapter adapts the provider LLM clients to the generic LLM interface.
type Adapter struct {
	client llm.LLM
}

// NewAdapter creates a new adapter.
func NewAdapter(client llm.LLM) *Adapter {
	return &Adapter{client: client}
}

// Generate wraps the prompt and attachments into one user message and returns the answer text.
func (a *Adapter) Generate(ctx context.Context, prompt string, attachments ...*models.Blob) (string, error) {
	parts := []*models.Part{{Text: prompt}}
	for _, b := range attachments {
		if b != nil {
			parts = append(parts, &models.Part{InlineData: b})
		}
	}
	req := &models.GenerateContentRequest{
		Content: []models.Content{{Role: models.SpeakerUser, Parts: parts}},
	}

	resp, err := a.client.GenerateContent(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm client failed to generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("llm response was empty or in an unexpected format")
	}
	return text, nil
}

// compile-time check to ensure Adapter implements the LLM interface
var _ interfaces.LLM = (*Adapter)(nil)
