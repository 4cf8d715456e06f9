package models

import (
	"time"
)

// TaskStatus 定义了文档处理任务的几种可能状态
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal 判断状态是否为终态
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// 处理类型描述
const (
	ProcessingTypeCached = "Cached document - used existing results"
	ProcessingTypeFresh  = "New document - full processing completed"
)

// ProcessRequest 描述一次文档处理请求
type ProcessRequest struct {
	FilePath    string `json:"file_path"`
	OutputDir   string `json:"output_dir"`
	ParseMethod string `json:"parse_method"`
}

// ProcessResult 是处理成功后写入任务的结果
type ProcessResult struct {
	FilePath       string  `json:"file_path" bson:"file_path"`
	OutputDir      string  `json:"output_dir" bson:"output_dir"`
	ProcessingTime float64 `json:"processing_time" bson:"processing_time"` // 秒
	ProcessingType string  `json:"processing_type" bson:"processing_type"`
	WasCached      bool    `json:"was_cached" bson:"was_cached"`
}

// TaskSnapshot 是任务记录在某一时刻的只读副本
type TaskSnapshot struct {
	ID        string         `json:"task_id" bson:"_id"`
	FilePath  string         `json:"file_path" bson:"file_path"`
	Status    TaskStatus     `json:"status" bson:"status"`
	Progress  int            `json:"progress" bson:"progress"`
	Logs      []string       `json:"logs" bson:"logs"`
	Result    *ProcessResult `json:"result,omitempty" bson:"result,omitempty"`
	Error     string         `json:"error,omitempty" bson:"error,omitempty"`
	StartTime time.Time      `json:"start_time" bson:"start_time"`
	EndTime   time.Time      `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Duration  time.Duration  `json:"duration" bson:"duration"`
}

// TaskStatusResponse 是状态接口返回给客户端的结构
type TaskStatusResponse struct {
	TaskID    string         `json:"task_id"`
	Status    TaskStatus     `json:"status"`
	Progress  int            `json:"progress"`
	Logs      []string       `json:"logs"`
	FilePath  string         `json:"file_path"`
	StartTime float64        `json:"start_time"`
	Duration  float64        `json:"duration"`
	EndTime   *float64       `json:"end_time,omitempty"`
	Result    *ProcessResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// SubmitResponse 是提交接口的返回结构
type SubmitResponse struct {
	TaskID  string     `json:"task_id"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message"`
}

// ClearCacheResponse 是清理缓存接口的返回结构
type ClearCacheResponse struct {
	Message        string `json:"message"`
	NextProcessing string `json:"next_processing"`
}
