package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath 是未设置 RAGDESK_CONFIG 时使用的配置文件路径。
const DefaultPath = "backend/go/internal/config/config.yaml"

// FieldConfig 定义了 Milvus 集合中字段的配置。
type FieldConfig struct {
	Name         string `yaml:"name"`                // 字段名称
	DataType     string `yaml:"dataType"`            // 字段数据类型 (例如: "VarChar", "FloatVector")
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`        // 是否为主键
	IsAutoID     bool   `yaml:"isAutoID"`            // 是否自动生成ID
	Dim          int    `yaml:"dim,omitempty"`       // 向量维度 (仅适用于向量类型)
	MaxLength    int    `yaml:"maxLength,omitempty"` // 最大长度 (仅适用于VarChar类型)
}

// IndexConfig 定义了 Milvus 集合中索引的配置。
type IndexConfig struct {
	FieldName  string                 `yaml:"fieldName"`  // 要创建索引的字段名称
	IndexType  string                 `yaml:"indexType"`  // 索引类型 (例如: "IVF_FLAT", "HNSW")
	MetricType string                 `yaml:"metricType"` // 相似度度量类型 (例如: "L2", "COSINE")
	Params     map[string]interface{} `yaml:"params"`     // 索引参数 (例如: {"nlist": 128})
}

// SchemaConfig 定义了 Milvus 集合的 Schema 配置。
type SchemaConfig struct {
	CollectionName string        `yaml:"collectionName"` // 集合名称
	Description    string        `yaml:"description"`    // 集合描述
	VectorField    string        `yaml:"vectorField"`    // 向量字段名称
	Fields         []FieldConfig `yaml:"fields"`         // 字段配置列表
	Index          IndexConfig   `yaml:"index"`          // 索引配置
}

// MilvusConfig 定义了 Milvus 数据库的连接和 Schema 配置。
type MilvusConfig struct {
	Address string       `yaml:"address"` // Milvus 服务地址, 为空时使用内存向量库
	Schema  SchemaConfig `yaml:"schema"`  // Milvus 集合 Schema 配置
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 上传文件镜像的存储桶
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address    string `yaml:"address"`    // MongoDB 服务器地址
	Username   string `yaml:"username"`   // 用户名
	Password   string `yaml:"password"`   // 密码
	Database   string `yaml:"database"`   // 数据库名称
	Collection string `yaml:"collection"` // 任务归档集合名称
}

// Neo4jConfig 定义了 Neo4j 图数据库的连接配置。
type Neo4jConfig struct {
	Uri      string `yaml:"uri"`      // Neo4j 数据库URI (例如: "bolt://localhost:7687")
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// EtcdConfig 定义了 Etcd 服务发现的连接配置。
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints"` // Etcd 节点地址列表
	LeaseTTL  int64    `yaml:"leaseTTL"`  // 服务注册租约 (秒)
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`   // Kafka Broker 地址列表
	TaskTopic string   `yaml:"taskTopic"` // 任务事件主题
}

// DatabaseConfigs 包含所有数据库的配置。
// 地址为空的组件视为未启用。
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`  // Milvus 数据库配置
	Redis   RedisConfig  `yaml:"redis"`   // Redis 数据库配置
	MySQL   MySQLConfig  `yaml:"mysql"`   // MySQL 数据库配置
	MinIO   MinIOConfig  `yaml:"minio"`   // MinIO 对象存储配置
	MongoDB MongoConfig  `yaml:"mongodb"` // MongoDB 数据库配置
	Neo4j   Neo4jConfig  `yaml:"neo4j"`   // Neo4j 数据库配置
	Etcd    EtcdConfig   `yaml:"etcd"`    // Etcd 服务发现配置
	Kafka   KafkaConfig  `yaml:"kafka"`   // Kafka 消息队列配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// ServerConfig 定义了各个服务的监听地址。
type ServerConfig struct {
	BackendAddr   string `yaml:"backendAddr"`   // 文档处理服务 HTTP 地址
	UIAddr        string `yaml:"uiAddr"`        // 上传界面服务 HTTP 地址
	GRPCAddr      string `yaml:"grpcAddr"`      // 健康检查 gRPC 地址
	MCPAddr       string `yaml:"mcpAddr"`       // MCP 服务地址 (sse / httpstream)
	ServiceName   string `yaml:"serviceName"`   // 在 etcd 中注册的服务名
	AdvertiseAddr string `yaml:"advertiseAddr"` // 注册到 etcd 的对外地址
}

// ProcessingConfig 定义了文档处理相关的配置。
type ProcessingConfig struct {
	WorkingDir     string `yaml:"workingDir"`     // RAG 工作存储目录
	OutputDir      string `yaml:"outputDir"`      // 默认解析输出目录
	Parser         string `yaml:"parser"`         // 解析器名称 (例如: "mineru", "docling")
	ParseMethod    string `yaml:"parseMethod"`    // 默认解析方式 (auto, ocr, txt)
	Workers        int    `yaml:"workers"`        // 并发处理的 worker 数
	QueueSize      int    `yaml:"queueSize"`      // 等待队列长度
	TaskTTL        string `yaml:"taskTTL"`        // 终态任务保留时间, 为空或 0 表示不淘汰
	SweepInterval  string `yaml:"sweepInterval"`  // 淘汰扫描间隔
	ChunkSize      int    `yaml:"chunkSize"`      // 分块大小 (字符)
	ChunkOverlap   int    `yaml:"chunkOverlap"`   // 分块重叠 (字符)
	EmbedBatchSize int    `yaml:"embedBatchSize"` // 每批嵌入的分块数
}

// QueryConfig 定义了检索相关的配置。
type QueryConfig struct {
	DefaultMode string `yaml:"defaultMode"` // 默认检索模式
	TopK        int    `yaml:"topK"`        // 向量检索返回数量
	MaxChunks   int    `yaml:"maxChunks"`   // 送入 LLM 的最大分块数
}

// CacheConfig 定义了查询结果缓存的配置。
type CacheConfig struct {
	Capacity    int    `yaml:"capacity"`    // 本地 LRU 容量
	TTL         string `yaml:"ttl"`         // 缓存有效期
	RedisPrefix string `yaml:"redisPrefix"` // Redis 键前缀
}

// UIConfig 定义了上传界面服务的配置。
type UIConfig struct {
	Title          string `yaml:"title"`          // 页面标题
	UploadDir      string `yaml:"uploadDir"`      // 上传目录
	ConfigFile     string `yaml:"configFile"`     // 前端保存的 RAG 配置文件
	BackendURL     string `yaml:"backendURL"`     // 文档处理服务地址
	BackendTimeout string `yaml:"backendTimeout"` // 调用后端的超时时间
	MaxUploadMB    int64  `yaml:"maxUploadMB"`    // 单个文件大小上限
}

// AuthConfig 用于配置上传界面的登录认证。
type AuthConfig struct {
	Accounts         []string `yaml:"accounts"`         // 账号列表, 格式为 "用户名:bcrypt哈希"
	TokenSecret      string   `yaml:"tokenSecret"`      // JWT 密钥
	TokenExpireHours int      `yaml:"tokenExpireHours"` // JWT 有效期 (小时)
}

// SentryConfig 定义了错误上报的配置。
type SentryConfig struct {
	DSN         string `yaml:"dsn"`         // Sentry DSN, 为空则不启用
	Environment string `yaml:"environment"` // 上报环境
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Server     ServerConfig     `yaml:"server"`     // 服务地址
	Processing ProcessingConfig `yaml:"processing"` // 文档处理配置
	Query      QueryConfig      `yaml:"query"`      // 检索配置
	Cache      CacheConfig      `yaml:"cache"`      // 查询缓存配置
	UI         UIConfig         `yaml:"ui"`         // 上传界面配置
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置部分
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // Embedding 配置部分
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Sentry     SentryConfig     `yaml:"sentry"`     // 错误上报配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// ProviderConfig 描述单个模型提供商的连接信息。
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`  // API 密钥
	BaseURL string `yaml:"baseURL"` // 服务地址 (可选)
	Model   string `yaml:"model"`   // 模型名称
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string         `yaml:"provider"` // LLM提供商 ("openai", "ollama", "gemini")
	Timeout  string         `yaml:"timeout"`  // 单次生成超时
	OpenAI   ProviderConfig `yaml:"openai"`   // OpenAI 模型配置
	Ollama   ProviderConfig `yaml:"ollama"`   // Ollama 模型配置
	Gemini   ProviderConfig `yaml:"gemini"`   // Gemini 模型配置
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider string         `yaml:"provider"` // Embedding提供商 ("openai", "ollama", "gemini")
	Dim      int            `yaml:"dim"`      // 向量维度
	OpenAI   ProviderConfig `yaml:"openai"`   // OpenAI 模型配置
	Ollama   ProviderConfig `yaml:"ollama"`   // Ollama 模型配置
	Gemini   ProviderConfig `yaml:"gemini"`   // Gemini 模型配置
}

// Active 返回当前提供商对应的配置。
func (c LLMConfig) Active() ProviderConfig {
	return pickProvider(c.Provider, c.OpenAI, c.Ollama, c.Gemini)
}

// Active 返回当前提供商对应的配置。
func (c EmbeddingConfig) Active() ProviderConfig {
	return pickProvider(c.Provider, c.OpenAI, c.Ollama, c.Gemini)
}

func pickProvider(provider string, openai, ollama, gemini ProviderConfig) ProviderConfig {
	switch provider {
	case "ollama":
		return ollama
	case "gemini":
		return gemini
	default:
		return openai
	}
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "fixedWindow", "tokenBucket"
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件，并补全默认值。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Path 返回配置文件路径，环境变量 RAGDESK_CONFIG 优先。
func Path() string {
	if p := os.Getenv("RAGDESK_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// ApplyDefaults 为未设置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	setString(&c.App.Name, "RagDesk")
	setString(&c.App.Version, "0.1.0")
	setString(&c.App.Environment, "development")

	setString(&c.Server.BackendAddr, ":8000")
	setString(&c.Server.UIAddr, ":8001")
	setString(&c.Server.GRPCAddr, ":9000")
	setString(&c.Server.MCPAddr, ":8085")
	setString(&c.Server.ServiceName, "rag_backend")
	setString(&c.Server.AdvertiseAddr, "localhost:8000")

	setString(&c.Processing.WorkingDir, "./rag_storage")
	setString(&c.Processing.OutputDir, "./output")
	setString(&c.Processing.Parser, "mineru")
	setString(&c.Processing.ParseMethod, "auto")
	setString(&c.Processing.SweepInterval, "1m")
	setInt(&c.Processing.Workers, 2)
	setInt(&c.Processing.QueueSize, 16)
	setInt(&c.Processing.ChunkSize, 1200)
	setInt(&c.Processing.ChunkOverlap, 100)
	setInt(&c.Processing.EmbedBatchSize, 32)
	if c.Processing.ChunkOverlap >= c.Processing.ChunkSize {
		c.Processing.ChunkOverlap = c.Processing.ChunkSize / 10
	}

	setString(&c.Query.DefaultMode, "hybrid")
	setInt(&c.Query.TopK, 10)
	setInt(&c.Query.MaxChunks, 20)

	setInt(&c.Cache.Capacity, 256)
	setString(&c.Cache.TTL, "10m")
	setString(&c.Cache.RedisPrefix, "ragdesk:query:")

	setString(&c.UI.Title, "RAG Document Desk")
	setString(&c.UI.UploadDir, "./uploads")
	setString(&c.UI.ConfigFile, "config/rag_config.json")
	setString(&c.UI.BackendURL, "http://localhost:8000")
	setString(&c.UI.BackendTimeout, "30s")
	if c.UI.MaxUploadMB == 0 {
		c.UI.MaxUploadMB = 200
	}

	setInt(&c.Auth.TokenExpireHours, 48)

	setString(&c.LLM.Provider, "openai")
	setString(&c.LLM.Timeout, "240s")
	setString(&c.LLM.OpenAI.Model, "gpt-4o-mini")
	setString(&c.LLM.Ollama.Model, "llama3.1")
	setString(&c.LLM.Gemini.Model, "gemini-1.5-flash")

	setString(&c.Embedding.Provider, "openai")
	setInt(&c.Embedding.Dim, 3072)
	setString(&c.Embedding.OpenAI.Model, "text-embedding-3-large")
	setString(&c.Embedding.Ollama.Model, "nomic-embed-text")
	setString(&c.Embedding.Gemini.Model, "text-embedding-004")

	setString(&c.Logger.Level, "info")
	setString(&c.Sentry.Environment, c.App.Environment)

	setString(&c.Databases.MongoDB.Database, "ragdesk")
	setString(&c.Databases.MongoDB.Collection, "tasks")
	setString(&c.Databases.Kafka.TaskTopic, "rag-task-events")
	setString(&c.Databases.MinIO.Bucket, "rag-uploads")
	if c.Databases.Etcd.LeaseTTL == 0 {
		c.Databases.Etcd.LeaseTTL = 10
	}
	setString(&c.Databases.Milvus.Schema.CollectionName, "rag_chunks")
	setString(&c.Databases.Milvus.Schema.Description, "RAG document chunks")
	setString(&c.Databases.Milvus.Schema.VectorField, "embedding")
	setString(&c.Databases.Milvus.Schema.Index.FieldName, c.Databases.Milvus.Schema.VectorField)
	setString(&c.Databases.Milvus.Schema.Index.IndexType, "IVF_FLAT")
	setString(&c.Databases.Milvus.Schema.Index.MetricType, "L2")

	setString(&c.Middleware.RateLimiter.Algorithm, "tokenBucket")
	setString(&c.Middleware.CircuitBreaker.Timeout, "30s")
	if c.Middleware.CircuitBreaker.FailureThreshold == 0 {
		c.Middleware.CircuitBreaker.FailureThreshold = 5
	}
	if c.Middleware.CircuitBreaker.SuccessThreshold == 0 {
		c.Middleware.CircuitBreaker.SuccessThreshold = 1
	}
}

// ParseDuration 解析形如 "30s" 的时长，空字符串或解析失败时返回 def。
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst <= 0 {
		*dst = def
	}
}
