package document

import (
	"regexp"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/models"
)

// longTokenPattern 长词元：6个及以上字母的连续序列（小写化后匹配）
var longTokenPattern = regexp.MustCompile(`[a-zá-úñ]{6,}`)

// WeakMatch 弱匹配启发式
// 文本片段与声明共享至少3个不同的长词元时视为属于该声明（不区分大小写）
func WeakMatch(text, claim string) bool {
	textTokens := longTokens(text)
	if len(textTokens) == 0 {
		return false
	}

	shared := 0
	for token := range longTokens(claim) {
		if textTokens[token] {
			shared++
			if shared >= 3 {
				return true
			}
		}
	}
	return false
}

// longTokens 提取文本中的长词元集合
func longTokens(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range longTokenPattern.FindAllString(strings.ToLower(s), -1) {
		tokens[t] = true
	}
	return tokens
}

// matchLastFinding 在候选结果中找到弱匹配该文本的最后一条
// 多条结果匹配同一片段时，迭代顺序靠后的胜出——这是固定的确定性决胜策略
func matchLastFinding(text string, findings []models.Finding) (models.Finding, bool) {
	var matched models.Finding
	found := false
	for _, f := range findings {
		if WeakMatch(text, f.ClaimText) {
			matched = f
			found = true
		}
	}
	return matched, found
}
