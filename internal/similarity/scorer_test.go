package similarity

import (
	"testing"

	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/stretchr/testify/assert"
)

// TestScoreEmptyInput 测试空输入的评分
func TestScoreEmptyInput(t *testing.T) {
	assert.Equal(t, float64(0), Score("", "some evidence text"))
	assert.Equal(t, float64(0), Score("some claim text", ""))
	assert.Equal(t, float64(0), Score("", ""))
	assert.Equal(t, float64(0), Score("   ", "text"), "只有空白的输入应该得0分")
}

// TestScoreIdenticalText 测试完全相同文本的评分
func TestScoreIdenticalText(t *testing.T) {
	score := Score("adalimumab improves clinical response", "adalimumab improves clinical response")
	assert.Equal(t, float64(100), score)
}

// TestScoreWordReordering 测试词序重排的容忍性
func TestScoreWordReordering(t *testing.T) {
	a := "adalimumab improves clinical response in patients"
	b := "in patients adalimumab improves clinical response"
	score := Score(a, b)
	assert.Equal(t, float64(100), score, "词元集合相似度应该对词序重排不敏感")
}

// TestScoreSubsetTokens 测试词元子集的评分
func TestScoreSubsetTokens(t *testing.T) {
	claim := "adalimumab improves response"
	evidence := "a randomized trial showed adalimumab improves response in moderate to severe disease"
	score := Score(claim, evidence)
	assert.Equal(t, float64(100), score, "一侧词元是另一侧子集时应该得满分")
}

// TestScorePartialOverlap 测试部分重叠的评分
func TestScorePartialOverlap(t *testing.T) {
	a := "adalimumab improves hidradenitis response rates"
	b := "placebo had no measurable effect on outcomes"
	score := Score(a, b)
	assert.Less(t, score, YellowThreshold, "无重叠文本的得分应该落在红色区间")
}

// TestClassifyBoundaries 测试分类边界的精确性
func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  models.Classification
	}{
		{100, models.ClassGreen},
		{86, models.ClassGreen},
		{85.999, models.ClassYellow},
		{75, models.ClassYellow},
		{74.999, models.ClassRed},
		{0, models.ClassRed},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.score), "score=%v", c.score)
	}
}

// TestScoreAndClassify 测试评分分类组合函数
func TestScoreAndClassify(t *testing.T) {
	t.Run("absent evidence is red", func(t *testing.T) {
		score, class := ScoreAndClassify("some claim", "")
		assert.Equal(t, float64(0), score)
		assert.Equal(t, models.ClassRed, class)
	})

	t.Run("identical text is green", func(t *testing.T) {
		score, class := ScoreAndClassify("identical claim text", "identical claim text")
		assert.Equal(t, float64(100), score)
		assert.Equal(t, models.ClassGreen, class)
	})
}

// TestScoreDeterministic 测试评分的确定性
func TestScoreDeterministic(t *testing.T) {
	a := "adalimumab achieved HiSCR in 41.8% of patients at week 12"
	b := "HiSCR was achieved by 41.8% of adalimumab patients versus placebo at week 12"
	first := Score(a, b)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(a, b), "同一输入的得分必须稳定")
	}
}
