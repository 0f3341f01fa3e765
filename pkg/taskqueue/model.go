package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskValidateDocument 文档校验任务
	TaskValidateDocument TaskType = "document_validate"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	RunID       string          `json:"run_id"`       // 关联的校验运行ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷数据
	Result      json.RawMessage `json:"result"`       // 任务结果数据
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	Attempts    int             `json:"attempts"`     // 尝试次数
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// ValidatePayload 文档校验任务载荷
type ValidatePayload struct {
	RunID    string `json:"run_id"`    // 校验运行ID
	FilePath string `json:"file_path"` // 文件存储路径
	FileName string `json:"file_name"` // 原始文件名
	FileType string `json:"file_type"` // 文件类型（pptx/docx）
}

// ValidateResult 文档校验任务结果
type ValidateResult struct {
	RunID         string `json:"run_id"`         // 校验运行ID
	TotalFindings int    `json:"total_findings"` // 检出的论断数量
	GreenCount    int    `json:"green_count"`    // 绿色论断数量
	YellowCount   int    `json:"yellow_count"`   // 黄色论断数量
	RedCount      int    `json:"red_count"`      // 红色论断数量
	ReportPath    string `json:"report_path"`    // PDF报告路径
	AnnotatedPath string `json:"annotated_path"` // 批注副本路径
	SnippetPath   string `json:"snippet_path"`   // HTML摘录页路径
	Error         string `json:"error"`          // 错误信息（如果有）
}

// TaskInfo 任务的元信息，用于传递给客户端的简化任务信息
type TaskInfo struct {
	ID          string     `json:"id"`           // 任务唯一标识符
	Type        TaskType   `json:"type"`         // 任务类型
	RunID       string     `json:"run_id"`       // 关联的校验运行ID
	Status      TaskStatus `json:"status"`       // 任务状态
	Error       string     `json:"error"`        // 错误信息
	CreatedAt   time.Time  `json:"created_at"`   // 创建时间
	StartedAt   *time.Time `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time `json:"completed_at"` // 完成时间
}

// NewTaskInfo 从Task创建TaskInfo
func NewTaskInfo(task *Task) *TaskInfo {
	return &TaskInfo{
		ID:          task.ID,
		Type:        task.Type,
		RunID:       task.RunID,
		Status:      task.Status,
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
	}
}
