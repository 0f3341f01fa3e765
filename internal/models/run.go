package models

import (
	"time"

	"gorm.io/datatypes"
)

// RunStatus 校验运行状态类型
type RunStatus string

const (
	// RunStatusPending 运行等待处理
	RunStatusPending RunStatus = "pending"
	// RunStatusProcessing 运行处理中
	RunStatusProcessing RunStatus = "processing"
	// RunStatusCompleted 运行完成
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed 运行失败
	RunStatusFailed RunStatus = "failed"
)

// ValidationRun 校验运行数据模型
// 记录每次文档校验的元数据和产物路径
type ValidationRun struct {
	ID            string         `gorm:"primaryKey"`         // 运行ID，主键
	FileName      string         `gorm:"not null"`           // 原始文件名
	FileType      string         `gorm:"size:10"`            // 文件类型（pptx/docx）
	Status        RunStatus      `gorm:"not null;index"`     // 运行状态
	TotalFindings int            `gorm:"not null;default:0"` // 校验结果总数
	Counts        datatypes.JSON `gorm:"type:json"`          // 各分类数量，JSON格式
	ReportPath    string         `gorm:"type:text"`          // PDF报告路径
	AnnotatedPath string         `gorm:"type:text"`          // 批注副本路径
	SnippetPath   string         `gorm:"type:text"`          // 摘录页路径
	Error         string         `gorm:"type:text"`          // 错误信息（如果失败）
	CreatedAt     time.Time      `gorm:"not null;index"`     // 创建时间
	UpdatedAt     time.Time      `gorm:"not null"`           // 更新时间
	CompletedAt   *time.Time     `gorm:"index"`              // 完成时间
}

// TableName 指定表名
func (ValidationRun) TableName() string {
	return "validation_runs"
}
