package document

import (
	"path/filepath"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/sirupsen/logrus"
)

// Adapter 文档适配器接口
// 每种受支持的文档格式提供文本块提取和批注副本渲染两种能力
type Adapter interface {
	// ExtractBlocks 按顺序提取文档中的文本块
	// 幻灯片文档每页一块，段落文档每段一块，块序号从1开始
	ExtractBlocks(path string) ([]models.TextBlock, error)

	// RenderAnnotated 生成批注副本
	// 按校验结果的分类颜色标注匹配的文本，并在格式支持时附加证据链接；
	// 原始文件不被修改，单个文本片段的批注失败不中断其余内容
	RenderAnnotated(srcPath, outPath string, findings []models.Finding) error
}

// Format 文档格式类型
type Format string

const (
	// FormatPPTX 幻灯片文档
	FormatPPTX Format = "pptx"
	// FormatDOCX 段落文档
	FormatDOCX Format = "docx"
	// FormatUnknown 不支持的格式
	FormatUnknown Format = "unknown"
)

// DetectFormat 根据文件扩展名检测文档格式
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pptx":
		return FormatPPTX
	case ".docx":
		return FormatDOCX
	default:
		return FormatUnknown
	}
}

// AdapterFactory 适配器工厂函数
// 根据文件格式创建对应的适配器；不支持的格式返回ErrUnsupportedFormat
func AdapterFactory(path string, logger *logrus.Logger) (Adapter, error) {
	if logger == nil {
		logger = logrus.New()
	}

	switch DetectFormat(path) {
	case FormatPPTX:
		return NewPPTXAdapter(logger), nil
	case FormatDOCX:
		return NewDOCXAdapter(logger), nil
	default:
		return nil, models.ErrUnsupportedFormat
	}
}
