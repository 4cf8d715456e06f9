package models

import "time"

// TaskEventType 定义了任务事件的类型。
type TaskEventType string

const (
	TaskEventSubmitted TaskEventType = "SUBMITTED"
	TaskEventStarted   TaskEventType = "STARTED"
	TaskEventProgress  TaskEventType = "PROGRESS"
	TaskEventCompleted TaskEventType = "COMPLETED"
	TaskEventFailed    TaskEventType = "FAILED"
)

// TaskEvent 定义了发送到 Kafka 的任务进度事件的统一结构。
type TaskEvent struct {
	TaskID    string         `json:"task_id"`
	Type      TaskEventType  `json:"type"`
	Status    TaskStatus     `json:"status"`
	Progress  int            `json:"progress"`
	FilePath  string         `json:"file_path"`
	Message   string         `json:"message,omitempty"`
	Result    *ProcessResult `json:"result,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
