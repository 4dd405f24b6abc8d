// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	VectorStore   VectorStoreConfig   `mapstructure:"vector_store"`
	DocPipeline   DocPipelineConfig   `mapstructure:"doc_pipeline"`
	RAG           RAGConfig           `mapstructure:"rag"`
	Service       ServiceConfig       `mapstructure:"service"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储元数据存储的数据库连接配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL      string `mapstructure:"server_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	Timeout    int    `mapstructure:"timeout_seconds"`
	CacheSize  int    `mapstructure:"cache_size"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Timeout    int                 `mapstructure:"timeout_seconds"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
	Prompt     LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示与上下文包裹格式（可选）。
type LLMPromptConfig struct {
	Rules        string `mapstructure:"rules"`
	RefStart     string `mapstructure:"ref_start"`
	RefEnd       string `mapstructure:"ref_end"`
	NoResultText string `mapstructure:"no_result_text"`
}

// VectorStoreConfig 配置向量存储子系统：批处理、队列容量与内存压力阈值。
type VectorStoreConfig struct {
	BatchSize                  int `mapstructure:"batch_size"`
	QueueCapacity              int `mapstructure:"queue_capacity"`
	ConsecutiveFailureThreshold int `mapstructure:"consecutive_failure_threshold"`
	MemoryThresholdMB          int `mapstructure:"memory_threshold_mb"`
	MemoryCriticalThresholdMB  int `mapstructure:"memory_critical_threshold_mb"`
	MemoryCheckIntervalSeconds int `mapstructure:"memory_check_interval_seconds"`
}

// DocPipelineConfig 配置文档摄取流水线：分块大小、文件约束与支持格式。
type DocPipelineConfig struct {
	ChunkSize            int      `mapstructure:"chunk_size"`
	ChunkOverlap         int      `mapstructure:"chunk_overlap"`
	MinChunkSize         int      `mapstructure:"min_chunk_size"`
	MaxFileSizeMB        int      `mapstructure:"max_file_size_mb"`
	MaxChunksPerDocument int      `mapstructure:"max_chunks_per_document"`
	SupportedFormats     []string `mapstructure:"supported_formats"`
}

// RAGConfig 配置检索与生成流水线的默认参数。
type RAGConfig struct {
	TopKDefault             int     `mapstructure:"top_k_default"`
	ScoreThresholdDefault   float64 `mapstructure:"score_threshold_default"`
	MaxContextLengthDefault int     `mapstructure:"max_context_length_default"`
	DefaultSafetyLevel      string  `mapstructure:"default_safety_level"`
}

// ServiceConfig 配置 HTTP 服务层：限流与流式连接的生命周期。
type ServiceConfig struct {
	RateLimitPerMinute             int `mapstructure:"rate_limit_per_minute"`
	UploadRateLimitPerMinute       int `mapstructure:"upload_rate_limit_per_minute"`
	StreamConnectionTimeoutMinutes int `mapstructure:"stream_connection_timeout_minutes"`
	MaxConcurrentStreams           int `mapstructure:"max_concurrent_streams"`
	CORSOrigins                    []string `mapstructure:"cors_origins"`
	APIKey                          string   `mapstructure:"api_key"`
	ShutdownTimeoutSeconds          int      `mapstructure:"shutdown_timeout_seconds"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	applyDefaults()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	if errs := Conf.Validate(); len(errs) > 0 {
		panic(fmt.Errorf("配置校验失败: %v", errs))
	}
}

func applyDefaults() {
	viper.SetDefault("tika.timeout_seconds", 60)

	viper.SetDefault("vector_store.batch_size", 100)
	viper.SetDefault("vector_store.queue_capacity", 1000)
	viper.SetDefault("vector_store.consecutive_failure_threshold", 3)
	viper.SetDefault("vector_store.memory_threshold_mb", 1024)
	viper.SetDefault("vector_store.memory_critical_threshold_mb", 2048)
	viper.SetDefault("vector_store.memory_check_interval_seconds", 30)

	viper.SetDefault("doc_pipeline.chunk_size", 1000)
	viper.SetDefault("doc_pipeline.chunk_overlap", 100)
	viper.SetDefault("doc_pipeline.min_chunk_size", 50)
	viper.SetDefault("doc_pipeline.max_file_size_mb", 50)
	viper.SetDefault("doc_pipeline.max_chunks_per_document", 5000)
	viper.SetDefault("doc_pipeline.supported_formats", []string{"txt", "md", "csv"})

	viper.SetDefault("rag.top_k_default", 5)
	viper.SetDefault("rag.score_threshold_default", 0.3)
	viper.SetDefault("rag.max_context_length_default", 4000)
	viper.SetDefault("rag.default_safety_level", "standard")

	viper.SetDefault("service.rate_limit_per_minute", 60)
	viper.SetDefault("service.upload_rate_limit_per_minute", 10)
	viper.SetDefault("service.stream_connection_timeout_minutes", 10)
	viper.SetDefault("service.max_concurrent_streams", 200)
	viper.SetDefault("service.shutdown_timeout_seconds", 5)
}

// Validate 检查配置中互相依赖或数值范围的约束，返回所有发现的问题而非只报第一个。
func (c Config) Validate() []error {
	var errs []error
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("server.port (%q) 必须是 1 到 65535 之间的端口号", c.Server.Port))
	}
	if c.DocPipeline.ChunkOverlap >= c.DocPipeline.ChunkSize {
		errs = append(errs, fmt.Errorf("doc_pipeline.chunk_overlap (%d) 必须小于 chunk_size (%d)", c.DocPipeline.ChunkOverlap, c.DocPipeline.ChunkSize))
	}
	if c.DocPipeline.MinChunkSize > c.DocPipeline.ChunkSize {
		errs = append(errs, fmt.Errorf("doc_pipeline.min_chunk_size (%d) 不能大于 chunk_size (%d)", c.DocPipeline.MinChunkSize, c.DocPipeline.ChunkSize))
	}
	if c.VectorStore.MemoryCriticalThresholdMB <= c.VectorStore.MemoryThresholdMB {
		errs = append(errs, fmt.Errorf("vector_store.memory_critical_threshold_mb (%d) 必须大于 memory_threshold_mb (%d)", c.VectorStore.MemoryCriticalThresholdMB, c.VectorStore.MemoryThresholdMB))
	}
	if c.RAG.TopKDefault <= 0 {
		errs = append(errs, fmt.Errorf("rag.top_k_default 必须为正数"))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions 必须为正数"))
	}
	return errs
}
