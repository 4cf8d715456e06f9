package milvus

import (
	"RagDesk/backend/go/internal/config"
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// 分块集合的默认字段名。
const (
	FieldID        = "id"
	FieldDocID     = "doc_id"
	FieldEmbedding = "embedding"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		log.Println("✅ 成功连接到 Milvus!")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// DefaultFields 返回分块集合的默认字段: 主键、文档ID 和向量。
func DefaultFields(dim int) []config.FieldConfig {
	return []config.FieldConfig{
		{Name: FieldID, DataType: "VarChar", IsPrimaryKey: true, MaxLength: 128},
		{Name: FieldDocID, DataType: "VarChar", MaxLength: 128},
		{Name: FieldEmbedding, DataType: "FloatVector", Dim: dim},
	}
}

// EnsureCollection 确保 Milvus 集合存在、已建索引并已加载。
// 配置中未声明字段时使用 DefaultFields(dim)。
func (c *MilvusClient) EnsureCollection(ctx context.Context, dim int) error {
	collName := c.Config.Schema.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}

	if !exists {
		fields := c.Config.Schema.Fields
		if len(fields) == 0 {
			fields = DefaultFields(dim)
		}

		schema := entity.NewSchema().
			WithName(collName).
			WithDescription(c.Config.Schema.Description)
		for _, fieldCfg := range fields {
			field, err := buildField(fieldCfg)
			if err != nil {
				return err
			}
			schema = schema.WithField(field)
		}

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := c.buildIndexFromConfig()
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, c.Config.Schema.Index.FieldName, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", c.Config.Schema.Index.FieldName, err)
		}
		log.Printf("✅ 已创建集合 '%s'", collName)
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// DropCollection 删除集合，集合不存在时直接返回。
func (c *MilvusClient) DropCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}
	if !exists {
		return nil
	}
	if err := c.Client.DropCollection(ctx, collName); err != nil {
		return fmt.Errorf("删除集合 '%s' 失败: %w", collName, err)
	}
	log.Printf("✅ 已删除集合 '%s'", collName)
	return nil
}

// FlushCollection 手动触发一次刷新操作，将内存中的数据写入磁盘。
func (c *MilvusClient) FlushCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	if err := c.Client.Flush(ctx, collName, false); err != nil {
		return fmt.Errorf("刷新集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

func buildField(fieldCfg config.FieldConfig) (*entity.Field, error) {
	field := entity.NewField().WithName(fieldCfg.Name)
	if fieldCfg.IsPrimaryKey {
		field = field.WithIsPrimaryKey(true)
	}
	if fieldCfg.IsAutoID {
		field = field.WithIsAutoID(true)
	}

	switch fieldCfg.DataType {
	case "Int64":
		field = field.WithDataType(entity.FieldTypeInt64)
	case "VarChar":
		field = field.WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(fieldCfg.MaxLength))
	case "FloatVector":
		field = field.WithDataType(entity.FieldTypeFloatVector).WithDim(int64(fieldCfg.Dim))
	case "Float":
		field = field.WithDataType(entity.FieldTypeFloat)
	case "Bool":
		field = field.WithDataType(entity.FieldTypeBool)
	default:
		return nil, fmt.Errorf("不支持的数据类型: %s", fieldCfg.DataType)
	}
	return field, nil
}

// buildIndexFromConfig 是一个辅助函数，用于从配置构建索引实体。
func (c *MilvusClient) buildIndexFromConfig() (entity.Index, error) {
	indexCfg := c.Config.Schema.Index
	metricType := entity.MetricType(indexCfg.MetricType)

	switch indexCfg.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, intParam(indexCfg.Params, "nlist", 128))
	case "HNSW":
		return entity.NewIndexHNSW(metricType, intParam(indexCfg.Params, "M", 8), intParam(indexCfg.Params, "efConstruction", 96))
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(metricType, intParam(indexCfg.Params, "nlist", 128))
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", indexCfg.IndexType)
	}
}

// intParam 读取整数参数, yaml 解析出的数字为 int。
func intParam(params map[string]interface{}, key string, def int) int {
	if v, ok := params[key].(int); ok && v > 0 {
		return v
	}
	return def
}
