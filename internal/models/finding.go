package models

// TextBlock 从文档中提取的文本块
// 幻灯片文档中对应一页幻灯片，段落文档中对应一个段落
type TextBlock struct {
	Index int    // 块序号，从1开始（幻灯片页码或段落序号）
	Text  string // 块的原始文本
}

// CitationKind 引用类型
type CitationKind string

const (
	// KindDOI DOI引用
	KindDOI CitationKind = "doi"
	// KindPMID PubMed文献ID引用
	KindPMID CitationKind = "pmid"
	// KindAuthorYear 作者-年份引用
	KindAuthorYear CitationKind = "author_year"
	// KindUnknown 未知引用类型
	KindUnknown CitationKind = "unknown"
)

// Citation 从文本块中检测出的规范化引用
type Citation struct {
	Raw  string       // 原始匹配文本
	Kind CitationKind // 引用类型
	ID   string       // 规范化标识：DOI字符串、纯数字PMID或作者-年份原文
}

// Classification 三级证据支持度分类
type Classification string

const (
	// ClassGreen 证据充分支持
	ClassGreen Classification = "green"
	// ClassYellow 证据支持存疑
	ClassYellow Classification = "yellow"
	// ClassRed 证据不支持或无证据
	ClassRed Classification = "red"
)

// Finding 一条校验结果
// 对应一个(文本块, 引用)组合及其相似度评分和证据链接
type Finding struct {
	BlockIndex      int            // 所属文本块序号
	ClaimText       string         // 文本块的声明文本
	CitationRaw     string         // 检测到的原始引用文本
	Score           float64        // 相似度得分，0-100
	Classification  Classification // 三级分类
	EvidenceExcerpt string         // 证据文本摘录（已截断）
	EvidenceURL     string         // 证据来源链接
	SnippetURL      string         // 摘录页锚点链接
}

// Summary 一次校验运行的汇总结果
// 由Validate操作返回给上层路由
type Summary struct {
	RunID         string `json:"run_id"`         // 运行标识
	FileName      string `json:"file_name"`      // 原始文件名
	TotalFindings int    `json:"total_findings"` // 校验结果总数
	GreenCount    int    `json:"green_count"`    // 绿色结果数量
	YellowCount   int    `json:"yellow_count"`   // 黄色结果数量
	RedCount      int    `json:"red_count"`      // 红色结果数量
	ReportPath    string `json:"report_path"`    // PDF报告路径
	AnnotatedPath string `json:"annotated_path"` // 批注副本路径
	SnippetPath   string `json:"snippet_path"`   // 摘录页路径
}

// CountByClass 统计各分类的结果数量
func CountByClass(findings []Finding) (green, yellow, red int) {
	for _, f := range findings {
		switch f.Classification {
		case ClassGreen:
			green++
		case ClassYellow:
			yellow++
		default:
			red++
		}
	}
	return green, yellow, red
}
