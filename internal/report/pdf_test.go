package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteReport 测试报告渲染
func TestWriteReport(t *testing.T) {
	findings := []models.Finding{
		{
			BlockIndex:      1,
			ClaimText:       "Adalimumab improves HiSCR response in moderate to severe disease",
			CitationRaw:     "10.1056/NEJMoa1504370",
			Score:           91,
			Classification:  models.ClassGreen,
			EvidenceExcerpt: "Two phase 3 trials of adalimumab for hidradenitis suppurativa.",
			EvidenceURL:     "https://doi.org/10.1056/NEJMoa1504370",
		},
		{
			BlockIndex:     2,
			ClaimText:      "Unsupported claim with no retrievable evidence",
			CitationRaw:    "PMID:99999999",
			Score:          0,
			Classification: models.ClassRed,
		},
	}

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, Write(path, "deck.pptx", findings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"), "输出应该是合法的PDF文件")
	assert.Greater(t, len(data), 1000, "封面加两页结果的报告不应该是空文件")
}

// TestWriteReportNoFindings 测试无结果时只有封面的报告
func TestWriteReportNoFindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, Write(path, "empty.docx", nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

// TestWriteReportLongText 测试超长文本的截断渲染
func TestWriteReportLongText(t *testing.T) {
	long := strings.Repeat("adalimumab improves clinical response ", 60)
	findings := []models.Finding{{
		BlockIndex:      1,
		ClaimText:       long,
		CitationRaw:     "Kimball et al. 2016",
		Score:           80,
		Classification:  models.ClassYellow,
		EvidenceExcerpt: long,
	}}

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, Write(path, "deck.pptx", findings), "超长文本应该被截断并换行渲染而不是报错")
}

// TestTruncate 测试字符预算截断
func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 800))
	assert.Len(t, []rune(truncate(strings.Repeat("x", 1000), 800)), 800)
	assert.Equal(t, "中文文本", truncate("中文文本", 10), "截断按字符计数而不是字节")
}
