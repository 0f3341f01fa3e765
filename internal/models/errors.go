package models

import "errors"

var (
	// ErrUnsupportedFormat 不支持的文档格式错误
	// 仅支持.pptx和.docx两种输入格式
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrRunNotFound 校验记录不存在错误
	ErrRunNotFound = errors.New("validation run not found")
)
