package model

import (
	"mime/multipart"
)

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// VerifyRequest 文档校验请求
type VerifyRequest struct {
	File  *multipart.FileHeader `form:"file" binding:"required"`   // 待校验的pptx或docx文件
	Async bool                  `form:"async" binding:"omitempty"` // 是否异步处理
}

// TaskStatusRequest 任务状态查询请求
type TaskStatusRequest struct {
	ID string `uri:"id" binding:"required"` // 任务ID
}

// RunStatusRequest 校验运行查询请求
type RunStatusRequest struct {
	ID string `uri:"id" binding:"required"` // 运行ID
}

// RunListRequest 校验运行列表请求
type RunListRequest struct {
	PaginationRequest
}
