package embedding

import (
	"RagDesk/backend/go/internal/config"
	"context"
	"fmt"
)

// NewEmdModel 根据配置中的提供商创建并返回一个新的 Embedding 模型实例。
func NewEmdModel(ctx context.Context, cfg config.EmbeddingConfig) (Embedding, error) {
	active := cfg.Active()
	if active.Model == "" {
		return nil, fmt.Errorf("no embedding model configured for %s provider", cfg.Provider)
	}
	switch ModelType(cfg.Provider) {
	case Google:
		return NewGoogleModel(ctx, active.APIKey, active.Model)
	case OpenAI:
		return NewOpenAIModel(active.APIKey, active.Model, active.BaseURL)
	case Ollama:
		return NewOllamaModel(active.Model, active.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
