package similarity

import (
	"sort"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/models"
)

// 分类阈值，策略常量，不可配置
// 报告配色依赖这两个精确边界
const (
	// GreenThreshold 得分达到该值判为绿色
	GreenThreshold = 86.0
	// YellowThreshold 得分达到该值且低于绿色阈值判为黄色
	YellowThreshold = 75.0
)

// Score 计算两段文本的词元集合相似度，范围[0,100]
// 对词序重排和部分重叠具有容忍性；任一侧为空时得分为0
func Score(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}
	return tokenSetRatio(a, b)
}

// Classify 将得分映射为三级分类
// 边界固定：>=86绿色，>=75黄色，其余红色
func Classify(score float64) models.Classification {
	switch {
	case score >= GreenThreshold:
		return models.ClassGreen
	case score >= YellowThreshold:
		return models.ClassYellow
	default:
		return models.ClassRed
	}
}

// ScoreAndClassify 一次完成评分和分类
func ScoreAndClassify(claim, evidence string) (float64, models.Classification) {
	score := Score(claim, evidence)
	return score, Classify(score)
}

// tokenSetRatio 词元集合比率
// 将两侧文本分词、去重、排序后，取交集与两侧差集组合字符串的
// 三组归一化编辑相似度中的最大值
func tokenSetRatio(a, b string) float64 {
	tokensA := tokenize(a)
	tokensB := tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(tokensA))
	for _, t := range tokensA {
		setA[t] = true
	}
	setB := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		setB[t] = true
	}

	var intersect, diffA, diffB []string
	for t := range setA {
		if setB[t] {
			intersect = append(intersect, t)
		} else {
			diffA = append(diffA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			diffB = append(diffB, t)
		}
	}
	sort.Strings(intersect)
	sort.Strings(diffA)
	sort.Strings(diffB)

	sect := strings.Join(intersect, " ")
	combinedA := joinNonEmpty(sect, strings.Join(diffA, " "))
	combinedB := joinNonEmpty(sect, strings.Join(diffB, " "))

	r1 := indelRatio(sect, combinedA)
	r2 := indelRatio(sect, combinedB)
	r3 := indelRatio(combinedA, combinedB)

	best := r1
	if r2 > best {
		best = r2
	}
	if r3 > best {
		best = r3
	}
	return best
}

// tokenize 小写化并按非字母数字字符切分
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r > 127)
	})
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " " + b
}

// indelRatio 归一化插入删除相似度，范围[0,100]
// ratio = (1 - distance/(len1+len2)) * 100，distance为只允许增删的编辑距离
func indelRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	dist := indelDistance(ra, rb)
	return (1 - float64(dist)/float64(total)) * 100
}

// indelDistance 只允许插入和删除的编辑距离
// 等价于 len(a)+len(b)-2*LCS(a,b)
func indelDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
			} else {
				del := prev[j] + 1
				ins := curr[j-1] + 1
				if del < ins {
					curr[j] = del
				} else {
					curr[j] = ins
				}
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
