package config

import (
	"RagDesk/backend/go/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// LoadRAGConfig 读取前端保存的 RAG 配置文件。文件不存在时返回 (nil, nil)。
func LoadRAGConfig(path string) (*models.RAGConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("无法读取 RAG 配置文件 '%s': %w", path, err)
	}
	var rc models.RAGConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("解析 RAG 配置文件失败: %w", err)
	}
	return &rc, nil
}

// ApplyRAGConfig 用前端保存的配置覆盖处理与检索参数。
// 只覆盖非零值，返回是否读取到了配置文件。
func (c *AppConfig) ApplyRAGConfig(path string) (bool, error) {
	rc, err := LoadRAGConfig(path)
	if err != nil || rc == nil {
		return false, err
	}

	if p := rc.Processing; p != nil {
		overrideString(&c.Processing.ParseMethod, p.ParseMethod)
		overrideString(&c.Processing.OutputDir, p.OutputDir)
		overrideString(&c.Processing.Parser, p.Parser)
		overrideInt(&c.Processing.ChunkSize, p.ChunkSize)
		overrideInt(&c.Processing.ChunkOverlap, p.ChunkOverlap)
	}
	if q := rc.RAGQuery; q != nil {
		overrideInt(&c.Query.TopK, q.TopK)
	}
	if e := rc.Embedding; e != nil {
		overrideInt(&c.Embedding.Dim, e.Dim)
		overrideInt(&c.Processing.EmbedBatchSize, e.BatchNum)
	}
	if s := rc.Server; s != nil && s.WebUITitle != "" {
		c.UI.Title = s.WebUITitle
	}

	// 覆盖后重新校验分块参数
	if c.Processing.ChunkOverlap >= c.Processing.ChunkSize {
		c.Processing.ChunkOverlap = c.Processing.ChunkSize / 10
	}
	return true, nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
