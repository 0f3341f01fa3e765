package citation

import (
	"regexp"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/models"
)

// 引用匹配模式，按优先级排列：DOI > PMID > 作者-年份
// 包级编译，避免每次检测时重复编译
var (
	// doiPattern DOI格式：10.前缀 + 4-9位注册机构码 + / + DOI允许字符
	doiPattern = regexp.MustCompile(`\b10\.\d{4,9}/[-._;()/:A-Za-z0-9]+`)

	// pmidPattern PMID标记（不区分大小写）后跟6-9位数字，冒号和空格可选
	pmidPattern = regexp.MustCompile(`(?i)\bPMID:?\s?\d{6,9}\b`)

	// authorYearPattern 首字母大写的姓氏（可带et al.）后跟4位年份，括号可选
	authorYearPattern = regexp.MustCompile(`[A-Z][A-Za-z-]+(?:\s+et\s?al\.)?\s*\(?\d{4}\)?`)

	// digitsOnly 用于从PMID原文中剥离非数字字符
	digitsOnly = regexp.MustCompile(`\D`)
)

// patterns 按检测优先级排列的所有模式
var patterns = []*regexp.Regexp{doiPattern, pmidPattern, authorYearPattern}

// Detector 引用检测器
// 从一段文本中找出引用样式的词元并规范化为带类型的引用
type Detector struct{}

// NewDetector 创建引用检测器
func NewDetector() *Detector {
	return &Detector{}
}

// Detect 检测文本块中的引用
// 返回块内去重后的有序引用列表；普通文本没有匹配时返回空列表，不算错误。
// 同一片文本可能命中多条规则，按DOI > PMID > 作者-年份的优先级，
// 与高优先级匹配区间重叠的低优先级匹配被丢弃
func (d *Detector) Detect(text string) []models.Citation {
	var raws []string
	var occupied [][]int
	for _, pat := range patterns {
		var accepted [][]int
		for _, span := range pat.FindAllStringIndex(text, -1) {
			if overlapsAny(span, occupied) {
				continue
			}
			raws = append(raws, text[span[0]:span[1]])
			accepted = append(accepted, span)
		}
		occupied = append(occupied, accepted...)
	}

	// 块内去重：对原始匹配文本做不区分大小写的精确去重
	seen := make(map[string]bool, len(raws))
	citations := make([]models.Citation, 0, len(raws))
	for _, raw := range raws {
		key := strings.ToLower(raw)
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, Normalize(raw))
	}
	return citations
}

// overlapsAny 判断区间是否与已占用的任一区间重叠
func overlapsAny(span []int, occupied [][]int) bool {
	for _, o := range occupied {
		if span[0] < o[1] && o[0] < span[1] {
			return true
		}
	}
	return false
}

// Normalize 将原始匹配文本规范化为带类型的引用
// DOI的id剥离尾部标点（括号内引用会把右括号一并匹配进来）；
// PMID的id只保留数字；其余归为作者-年份类型
func Normalize(raw string) models.Citation {
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "10."):
		return models.Citation{Raw: raw, Kind: models.KindDOI, ID: strings.TrimRight(raw, `.,;:)]"'`)}
	case strings.Contains(lower, "pmid"):
		return models.Citation{Raw: raw, Kind: models.KindPMID, ID: digitsOnly.ReplaceAllString(raw, "")}
	default:
		return models.Citation{Raw: raw, Kind: models.KindAuthorYear, ID: raw}
	}
}
