package annotate

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/models"
)

// snippetTemplate 摘录页模板
// 每条结果一个带claim-{n}锚点的区块，内容经HTML转义
var snippetTemplate = template.Must(template.New("snippets").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Evidence Snippets</title>
</head>
<body style="font-family:Arial,sans-serif;max-width:900px;margin:2rem auto">
<h1>Evidence snippets</h1>
{{- range .Entries}}
<section id="claim-{{.Number}}" style="margin:1rem 0;padding:1rem;border:1px solid #ddd;border-radius:10px">
  <h3>Claim {{.Number}} &mdash; {{.Class}} (score={{.Score}})</h3>
  <p><b>Claim text:</b><br>{{.Claim}}</p>
  <p><b>Source excerpt:</b><br><pre style="white-space:pre-wrap">{{.Excerpt}}</pre></p>
  {{- if .EvidenceURL}}
  <p><a href="{{.EvidenceURL}}" target="_blank" rel="noopener">Open paper</a></p>
  {{- end}}
</section>
{{- end}}
</body>
</html>
`))

// snippetEntry 模板中单条结果的数据
type snippetEntry struct {
	Number      int
	Class       string
	Score       int
	Claim       string
	Excerpt     string
	EvidenceURL string
}

// snippetPage 模板的根数据
type snippetPage struct {
	Entries []snippetEntry
}

// WriteSnippetPage 渲染摘录页并写入指定路径
// 锚点claim-1..claim-n严格按照结果的规范顺序编号
func WriteSnippetPage(path string, findings []models.Finding) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snippet directory: %w", err)
	}

	page := snippetPage{Entries: make([]snippetEntry, 0, len(findings))}
	for i, f := range findings {
		page.Entries = append(page.Entries, snippetEntry{
			Number:      i + 1,
			Class:       strings.ToUpper(string(f.Classification)),
			Score:       int(f.Score),
			Claim:       f.ClaimText,
			Excerpt:     f.EvidenceExcerpt,
			EvidenceURL: f.EvidenceURL,
		})
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snippet page: %w", err)
	}
	defer out.Close()

	if err := snippetTemplate.Execute(out, page); err != nil {
		return fmt.Errorf("failed to render snippet page: %w", err)
	}
	return nil
}

// SnippetAnchorURL 构造指向摘录页锚点的链接
// position是结果在规范顺序中的1-based位置
func SnippetAnchorURL(pagePath string, position int) string {
	return fmt.Sprintf("%s#claim-%d", pagePath, position)
}
