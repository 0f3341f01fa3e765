package model

import (
	"encoding/json"
	"time"

	"github.com/fyerfyer/claim-check-system/internal/models"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// VerifyResponse 同步校验响应
type VerifyResponse struct {
	RunID         string `json:"run_id"`         // 校验运行ID
	FileName      string `json:"file_name"`      // 原始文件名
	TotalFindings int    `json:"total_findings"` // 检出的论断数量
	GreenCount    int    `json:"green_count"`    // 绿色论断数量
	YellowCount   int    `json:"yellow_count"`   // 黄色论断数量
	RedCount      int    `json:"red_count"`      // 红色论断数量
	ReportURL     string `json:"report_url"`     // PDF报告下载地址
	AnnotatedURL  string `json:"annotated_url"`  // 批注副本下载地址
	SnippetURL    string `json:"snippet_url"`    // HTML摘录页地址
}

// AsyncVerifyResponse 异步校验响应
type AsyncVerifyResponse struct {
	TaskID   string `json:"task_id"`  // 任务ID
	FileName string `json:"filename"` // 文件名
	Status   string `json:"status"`   // 任务状态
}

// TaskStatusResponse 任务状态查询响应
type TaskStatusResponse struct {
	TaskID      string          `json:"task_id"`                // 任务ID
	Status      string          `json:"status"`                 // 任务状态
	Error       string          `json:"error,omitempty"`        // 错误信息（如果有）
	Result      json.RawMessage `json:"result,omitempty"`       // 校验结果（完成后）
	CreatedAt   string          `json:"created_at"`             // 创建时间
	StartedAt   string          `json:"started_at,omitempty"`   // 开始处理时间
	CompletedAt string          `json:"completed_at,omitempty"` // 完成时间
}

// RunInfo 校验运行信息
type RunInfo struct {
	RunID         string          `json:"run_id"`                 // 运行ID
	FileName      string          `json:"file_name"`              // 文件名
	FileType      string          `json:"file_type"`              // 文件类型
	Status        string          `json:"status"`                 // 运行状态
	TotalFindings int             `json:"total_findings"`         // 检出的论断数量
	Counts        json.RawMessage `json:"counts,omitempty"`       // 各分类数量
	Error         string          `json:"error,omitempty"`        // 错误信息（如果有）
	CreatedAt     string          `json:"created_at"`             // 创建时间
	CompletedAt   string          `json:"completed_at,omitempty"` // 完成时间
}

// RunListResponse 校验运行列表响应
type RunListResponse struct {
	Total    int64     `json:"total"`     // 总记录数
	Page     int       `json:"page"`      // 当前页码
	PageSize int       `json:"page_size"` // 每页大小
	Runs     []RunInfo `json:"runs"`      // 运行列表
}

// ConvertToRunInfo 将运行记录转换为响应信息
func ConvertToRunInfo(run *models.ValidationRun) RunInfo {
	info := RunInfo{
		RunID:         run.ID,
		FileName:      run.FileName,
		FileType:      run.FileType,
		Status:        string(run.Status),
		TotalFindings: run.TotalFindings,
		Counts:        json.RawMessage(run.Counts),
		Error:         run.Error,
		CreatedAt:     run.CreatedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return info
}
