package llm

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
	"context"
	"fmt"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
type LLM interface {
	GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error)
}

// NewClient 是一个工厂函数，根据配置中的 provider 创建对应的 LLM 客户端。
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	active := cfg.Active()
	if active.Model == "" {
		return nil, fmt.Errorf("no model configured for %s provider", cfg.Provider)
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(active.Model, active.APIKey, active.BaseURL)
	case "ollama":
		return NewOllama(active.Model, active.BaseURL)
	case "gemini":
		return NewGemini(ctx, active.Model, active.APIKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// splitParts 将请求拆成文本和内联数据两部分，供只接受纯文本提示的后端使用。
func splitParts(req *models.GenerateContentRequest) (string, []*models.Blob) {
	var text string
	var blobs []*models.Blob
	for _, c := range req.Content {
		for _, p := range c.Parts {
			if p.Text != "" {
				text += p.Text
			}
			if p.InlineData != nil {
				blobs = append(blobs, p.InlineData)
			}
		}
	}
	return text, blobs
}
