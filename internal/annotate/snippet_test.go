package annotate

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteSnippetPage 测试摘录页渲染
func TestWriteSnippetPage(t *testing.T) {
	findings := []models.Finding{
		{
			BlockIndex:      1,
			ClaimText:       "Adalimumab improves HiSCR response",
			Score:           91.5,
			Classification:  models.ClassGreen,
			EvidenceExcerpt: "Two phase 3 trials of adalimumab",
			EvidenceURL:     "https://doi.org/10.1056/NEJMoa1504370",
		},
		{
			BlockIndex:     3,
			ClaimText:      "Claim with <script>alert(1)</script> markup & entities",
			Score:          0,
			Classification: models.ClassRed,
		},
	}

	path := filepath.Join(t.TempDir(), "snippets.html")
	require.NoError(t, WriteSnippetPage(path, findings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	t.Run("anchors match finding order", func(t *testing.T) {
		assert.Contains(t, html, `id="claim-1"`)
		assert.Contains(t, html, `id="claim-2"`)
		assert.NotContains(t, html, `id="claim-3"`)
	})

	t.Run("content rendered", func(t *testing.T) {
		assert.Contains(t, html, "GREEN")
		assert.Contains(t, html, "score=91")
		assert.Contains(t, html, "Adalimumab improves HiSCR response")
		assert.Contains(t, html, "https://doi.org/10.1056/NEJMoa1504370")
	})

	t.Run("html special characters escaped", func(t *testing.T) {
		assert.NotContains(t, html, "<script>alert(1)</script>")
		assert.Contains(t, html, "&lt;script&gt;")
		assert.Contains(t, html, "&amp;")
	})
}

// TestWriteSnippetPageEmpty 测试无结果时的摘录页
func TestWriteSnippetPageEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snippets.html")
	require.NoError(t, WriteSnippetPage(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Evidence snippets")
	assert.NotContains(t, string(data), "claim-1")
}

// TestSnippetAnchorURL 测试锚点链接与页面锚点的对应关系
func TestSnippetAnchorURL(t *testing.T) {
	findings := make([]models.Finding, 3)
	for i := range findings {
		findings[i] = models.Finding{
			BlockIndex:     i + 1,
			ClaimText:      fmt.Sprintf("claim number %d text", i+1),
			Classification: models.ClassRed,
		}
	}

	path := filepath.Join(t.TempDir(), "snippets.html")
	require.NoError(t, WriteSnippetPage(path, findings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	// 每个snippet_url引用的锚点都必须在页面中存在，编号等于1-based位置
	for i := range findings {
		url := SnippetAnchorURL(path, i+1)
		assert.Equal(t, fmt.Sprintf("%s#claim-%d", path, i+1), url)
		assert.Contains(t, html, fmt.Sprintf(`id="claim-%d"`, i+1))
	}
}
