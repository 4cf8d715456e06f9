package llm

import (
	"RagDesk/backend/go/internal/models"
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
// 每次请求都是独立的，不保留会话历史。
type Gemini struct {
	model *genai.GenerativeModel // Gemini 生成模型实例。
}

// NewGemini 创建一个新的 Gemini 客户端。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{model: client.GenerativeModel(model)}, nil
}

// GenerateContent 向 Gemini API 发送请求并返回响应。
func (g *Gemini) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	parts := toGenaiParts(req.Content)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty request")
	}
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, err
	}
	return fromGenaiResponse(resp), nil
}

// toGenaiParts 将内部 Content 结构体转换为 GenAI Part 切片。
func toGenaiParts(content []models.Content) []genai.Part {
	var parts []genai.Part
	for _, c := range content {
		for _, p := range c.Parts {
			if p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			} else if p.InlineData != nil {
				parts = append(parts, genai.Blob{
					MIMEType: p.InlineData.MIMEType,
					Data:     p.InlineData.Data,
				})
			}
		}
	}
	return parts
}

// fromGenaiResponse 将 GenAI 响应转换为内部响应结构体，只保留文本和内联数据部分。
func fromGenaiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	if resp == nil {
		return nil
	}
	var content []models.Content
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		var parts []*models.Part
		for _, p := range cand.Content.Parts {
			switch v := p.(type) {
			case genai.Text:
				parts = append(parts, &models.Part{Text: string(v)})
			case genai.Blob:
				parts = append(parts, &models.Part{InlineData: &models.Blob{MIMEType: v.MIMEType, Data: v.Data}})
			}
		}
		content = append(content, models.Content{Parts: parts, Role: models.SpeakerRole(cand.Content.Role)})
	}
	return &models.GenerateContentResponse{Content: content}
}
