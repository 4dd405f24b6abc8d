// Package model 定义了与数据库表对应的 Go 结构体，以及 RAG 核心领域对象。
package model

import "time"

// DocumentStatus 描述一次文档摄取在处理管道中的阶段。
type DocumentStatus string

const (
	DocStatusPending    DocumentStatus = "pending"
	DocStatusValidating DocumentStatus = "validating"
	DocStatusParsing    DocumentStatus = "parsing"
	DocStatusChunking   DocumentStatus = "chunking"
	DocStatusEmbedding  DocumentStatus = "embedding"
	DocStatusStoring    DocumentStatus = "storing"
	DocStatusCompleted  DocumentStatus = "completed"
	DocStatusFailed     DocumentStatus = "failed"
	DocStatusCancelled  DocumentStatus = "cancelled"
	DocStatusDeleted    DocumentStatus = "deleted"
)

// ContentType 对齐 spec 的 content_type 分类。
type ContentType string

const (
	ContentTypeText       ContentType = "text"
	ContentTypeStructured ContentType = "structured"
	ContentTypeMixed      ContentType = "mixed"
)

// DocumentMetadata 是一次上传文档的完整元数据记录。
// 除 Status 与 ErrorMessage 外，创建后其余字段均不可变。
type DocumentMetadata struct {
	ID                string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	FileName          string         `json:"fileName" gorm:"type:varchar(255);not null"`
	FileSize          int64          `json:"fileSize"`
	FileType          string         `json:"fileType" gorm:"type:varchar(32)"`
	Encoding          string         `json:"encoding" gorm:"type:varchar(32)"`
	WordCount         int            `json:"wordCount"`
	CharCount         int            `json:"charCount"`
	SentenceCount     int            `json:"sentenceCount"`
	ParagraphCount    int            `json:"paragraphCount"`
	LineCount         int            `json:"lineCount"`
	ContentHash       string         `json:"contentHash" gorm:"type:varchar(64);index"`
	CreatedAt         time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	LastModified      time.Time      `json:"lastModified"`
	ProcessedAt       *time.Time     `json:"processedAt"`
	ProcessingTimeMs  int64          `json:"processingTimeMs"`
	Status            DocumentStatus `json:"status" gorm:"type:varchar(16);index"`
	IsValid           bool           `json:"isValid"`
	ValidationErrors  []string       `json:"validationErrors" gorm:"serializer:json"`
	ContentType       ContentType    `json:"contentType" gorm:"type:varchar(16)"`
	HasTables         bool           `json:"hasTables"`
	HasImages         bool           `json:"hasImages"`
	HasLinks          bool           `json:"hasLinks"`
	LanguageDetected  string         `json:"languageDetected,omitempty"`
	ErrorMessage      string         `json:"errorMessage,omitempty" gorm:"type:text"`
	ChunkCount        int            `json:"chunkCount"`
	ChunkIDs          []string       `json:"chunkIds,omitempty" gorm:"serializer:json"`
	UserID            uint           `json:"userId" gorm:"index"`
	OrgTag            string         `json:"orgTag" gorm:"type:varchar(50)"`
	IsPublic          bool           `json:"isPublic"`
}

func (DocumentMetadata) TableName() string { return "document_metadata" }

// Chunk 是索引中存储的最小单元，创建后不可变。
type Chunk struct {
	ID               string         `json:"id"`
	SourceDocumentID string         `json:"sourceDocumentId"`
	ChunkIndex       int            `json:"chunkIndex"`
	Text             string         `json:"text"`
	StartChar        int            `json:"startChar"`
	EndChar          int            `json:"endChar"`
	ByteSize         int            `json:"byteSize"`
	WordCount        int            `json:"wordCount"`
	SentenceCount    int            `json:"sentenceCount"`
	CreatedAt        time.Time      `json:"createdAt"`
	ContentPreview   string         `json:"contentPreview"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// VectorRecord 是写入向量存储的完整记录：chunk_id、向量与载荷。
type VectorRecord struct {
	ChunkID   string    `json:"chunkId"`
	Embedding []float32 `json:"embedding"`
	Payload   Chunk     `json:"payload"`
}

// SearchResult 是一次相似度检索返回的一条命中，按 Score 降序排列。
type SearchResult struct {
	ChunkID string  `json:"chunkId"`
	Score   float64 `json:"score"`
	Payload Chunk   `json:"payload"`
}

// Priority 定义了 OperationQueueItem 的优先级，数值越小越先处理。
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 2
	PriorityLow    Priority = 3
)

// OpType 区分 OperationQueueItem 所承载的变更类型。
type OpType string

const (
	OpInsertBatch OpType = "insert_batch"
	OpDeleteBatch OpType = "delete_batch"
)

// OperationQueueItem 是后台队列 worker 消费的一项索引变更任务。
type OperationQueueItem struct {
	Seq        uint64
	OpType     OpType
	Records    []VectorRecord
	IDs        []string
	Priority   Priority
	EnqueuedAt time.Time
	Callback   func(OperationResult)
}

// OperationResult 是队列 worker 完成一项任务后反馈给回调的结果。
type OperationResult struct {
	Applied int
	Failed  []FailedRecord
	Err     error
}

// FailedRecord 描述批量写入/删除中单条失败的原因。
type FailedRecord struct {
	ID     string
	Reason string
}

// AlertSeverity 描述 PerformanceAlert 的严重程度。
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// PerformanceAlert 记录一次需要关注的存储层或流水线事件。
type PerformanceAlert struct {
	Kind      string         `json:"kind"`
	Severity  AlertSeverity  `json:"severity"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metrics   map[string]any `json:"metrics,omitempty"`
}

// UploadProgress 追踪单次摄取任务从上传到完成的全过程。
type UploadProgress struct {
	DocumentID               string            `json:"documentId"`
	Status                   DocumentStatus    `json:"status"`
	Progress                 int               `json:"progress"`
	CurrentStep              string            `json:"currentStep"`
	EstimatedTimeRemainingMs int64             `json:"estimatedTimeRemainingMs"`
	ErrorMessage             string            `json:"errorMessage,omitempty"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
	CreatedAt                time.Time         `json:"createdAt"`
	UpdatedAt                time.Time         `json:"updatedAt"`
}

// ConnectionStatus 描述一条 StreamConnection 的生命周期状态。
type ConnectionStatus string

const (
	ConnActive  ConnectionStatus = "active"
	ConnClosing ConnectionStatus = "closing"
	ConnClosed  ConnectionStatus = "closed"
)

// StreamConnection 描述一条活跃的 SSE/WebSocket 流式会话。
type StreamConnection struct {
	ConnectionID   string            `json:"connectionId"`
	CreatedAt      time.Time         `json:"createdAt"`
	LastActivityAt time.Time         `json:"lastActivityAt"`
	Status         ConnectionStatus  `json:"status"`
	RemoteAddr     string            `json:"remoteAddr"`
	UserAgent      string            `json:"userAgent"`
	Query          string            `json:"query"`
	Metadata       map[string]string `json:"metadata,omitempty"`

	cancel func()
}

// Cancel 触发该连接对应生成任务的协作式取消。
func (c *StreamConnection) Cancel() {
	if c.cancel != nil {
		c.cancel()
	}
}

// SetCancelFunc 绑定取消回调；由 server 在注册连接时设置。
func (c *StreamConnection) SetCancelFunc(fn func()) { c.cancel = fn }

// QueryType 描述 RAGQuery 的语义分类，决定使用哪套 prompt 模板。
type QueryType string

const (
	QueryGeneral       QueryType = "general"
	QueryFactual       QueryType = "factual"
	QueryAnalytical    QueryType = "analytical"
	QueryComparative   QueryType = "comparative"
	QuerySummarization QueryType = "summarization"
	QueryCreative      QueryType = "creative"
)

// ResponseFormat 描述客户端要求的输出结构。
type ResponseFormat string

const (
	FormatText          ResponseFormat = "text"
	FormatBulletPoints   ResponseFormat = "bullet_points"
	FormatNumberedList   ResponseFormat = "numbered_list"
	FormatTable          ResponseFormat = "table"
	FormatJSON           ResponseFormat = "json"
	FormatSummary        ResponseFormat = "summary"
)

// SafetyLevel 调整安全准则的严格程度。
type SafetyLevel string

const (
	SafetyStandard    SafetyLevel = "standard"
	SafetyConservative SafetyLevel = "conservative"
	SafetyPermissive   SafetyLevel = "permissive"
)

// ValidationStatus 汇总安全性、上下文依从性与质量检查的最差结果。
type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "valid"
	ValidationWarning ValidationStatus = "warning"
	ValidationError   ValidationStatus = "error"
)

// RAGQuery 是一次问答请求的完整入参。
type RAGQuery struct {
	QueryText         string         `json:"query" binding:"required"`
	TopK              int            `json:"topK"`
	ScoreThreshold    float64        `json:"scoreThreshold"`
	MaxContextLength  int            `json:"maxContextLength"`
	MaxTokens         int            `json:"maxTokens"`
	Temperature       float64        `json:"temperature"`
	IncludeSources    bool           `json:"includeSources"`
	ResponseFormat    ResponseFormat `json:"responseFormat"`
	SafetyLevel       SafetyLevel    `json:"safetyLevel"`
	QueryType         QueryType      `json:"queryType,omitempty"`
}

// Source 是一条回答引用的原文片段。
type Source struct {
	ChunkID  string  `json:"chunkId"`
	FileName string  `json:"fileName"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

// RAGResponse 是一次问答请求的完整结果。
type RAGResponse struct {
	Answer           string            `json:"answer"`
	Sources          []Source          `json:"sources,omitempty"`
	ResponseTimeMs   int64             `json:"responseTimeMs"`
	TokensUsed       int               `json:"tokensUsed"`
	ValidationStatus ValidationStatus  `json:"validationStatus"`
	SafetyScore      float64           `json:"safetyScore"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
}

// StreamEventType 标记一个 TokenStream 事件的种类。
type StreamEventType string

const (
	EventContent  StreamEventType = "content"
	EventSources  StreamEventType = "sources"
	EventProgress StreamEventType = "progress"
	EventError    StreamEventType = "error"
	EventEnd      StreamEventType = "end"
)

// StreamEvent 是 RAGPipeline.Stream 发出的一条有序事件。
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Payload any             `json:"payload"`
}

// BackendStats 汇总了一个向量后端当前持有的数据规模。
type BackendStats struct {
	VectorCount int64   `json:"vectorCount"`
	Dimension   int     `json:"dimension"`
	IndexSizeMB float64 `json:"indexSizeMb"`
}
