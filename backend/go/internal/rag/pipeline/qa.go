package pipeline

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"fmt"
	"strings"
)

// QAInput is everything the answer is generated from.
type QAInput struct {
	Query string
	// Documents are the retrieved chunks. Empty means the query goes to the model unchanged.
	Documents []*schema.Document
	// Extra is additional context supplied with the query, such as table or equation content.
	Extra       string
	Attachments []*models.Blob
}

// QAPipeline is responsible for generating an answer based on a query and retrieved documents.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm: llm,
		log: log,
	}
}

// Run builds a prompt from in and calls the LLM to generate an answer.
func (p *QAPipeline) Run(ctx context.Context, in QAInput) (string, error) {
	prompt := BuildPrompt(in)

	p.log.Info(fmt.Sprintf("Sending prompt with %d chunks and %d attachments to LLM", len(in.Documents), len(in.Attachments)))
	answer, err := p.llm.Generate(ctx, prompt, in.Attachments...)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, nil
}

// BuildPrompt constructs the prompt string. Without documents or extra context it returns the query itself.
func BuildPrompt(in QAInput) string {
	if len(in.Documents) == 0 && in.Extra == "" {
		return in.Query
	}

	var sb strings.Builder
	sb.WriteString("Based on the following context, please answer the question.\n")
	sb.WriteString("If the context does not contain the answer, say so.\n\nContext:\n")

	for i, doc := range in.Documents {
		sb.WriteString("---\n")
		source, _ := doc.Metadata[schema.MetadataKeyFileName].(string)
		if source != "" {
			sb.WriteString(fmt.Sprintf("Context %d (from %s):\n%s\n", i+1, source, doc.Text))
		} else {
			sb.WriteString(fmt.Sprintf("Context %d:\n%s\n", i+1, doc.Text))
		}
	}

	if in.Extra != "" {
		sb.WriteString("---\nAdditional content provided with the question:\n")
		sb.WriteString(in.Extra)
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s", in.Query))
	return sb.String()
}
