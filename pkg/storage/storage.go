package storage

import (
	"io"
	"path/filepath"
	"strings"
)

// FileInfo 文件元数据结构
type FileInfo struct {
	ID   string // 文件唯一标识符
	Name string // 原始文件名
	Size int64  // 文件大小(字节)
	Ext  string // 文件扩展名
	Path string // 内部存储路径(实现相关)
}

// Storage 文件存储接口
// 定义上传文档的基本存取操作，可以有不同实现(本地文件系统、MinIO等)
type Storage interface {
	// Save 保存文件并返回文件信息
	Save(reader io.Reader, filename string) (FileInfo, error)

	// Get 按存储路径获取文件内容
	Get(path string) (io.ReadCloser, error)

	// Delete 按存储路径删除文件
	Delete(path string) error

	// Exists 检查文件是否存在
	Exists(path string) (bool, error)
}

// getMimeType 根据扩展名返回文档的MIME类型
func getMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".pdf":
		return "application/pdf"
	case ".html":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
