package document

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/sirupsen/logrus"
)

// docx主文档部件和XML片段匹配模式
const docxDocumentPart = "word/document.xml"

var (
	paragraphPattern = regexp.MustCompile(`(?s)<w:p[^>]*/>|<w:p(?:>|\s[^>]*>).*?</w:p>`)
	wordRunPattern   = regexp.MustCompile(`(?s)<w:r>.*?</w:r>|<w:r\s[^>]*>.*?</w:r>`)
	wordTextPattern  = regexp.MustCompile(`(?s)<w:t[^>]*>(.*?)</w:t>`)
)

// 分类对应的高亮颜色
// w:highlight没有橙色，黄色沿用yellow，红色用magenta作警示色
var docxHighlight = map[models.Classification]string{
	models.ClassGreen:  "green",
	models.ClassYellow: "yellow",
	models.ClassRed:    "magenta",
}

// DOCXAdapter 段落文档适配器
type DOCXAdapter struct {
	logger *logrus.Logger
}

// NewDOCXAdapter 创建段落文档适配器
func NewDOCXAdapter(logger *logrus.Logger) *DOCXAdapter {
	return &DOCXAdapter{logger: logger}
}

// ExtractBlocks 提取文档的段落文本
// 每个段落一个文本块，块序号是段落在文档中的位置（从1开始，包括空段落）
func (a *DOCXAdapter) ExtractBlocks(path string) ([]models.TextBlock, error) {
	parts, err := readArchiveParts(path)
	if err != nil {
		return nil, err
	}

	var documentXML string
	for _, part := range parts {
		if part.Name == docxDocumentPart {
			documentXML = string(part.Data)
			break
		}
	}
	if documentXML == "" {
		return nil, fmt.Errorf("document part %s not found", docxDocumentPart)
	}

	var blocks []models.TextBlock
	for i, para := range paragraphPattern.FindAllString(documentXML, -1) {
		blocks = append(blocks, models.TextBlock{
			Index: i + 1,
			Text:  paragraphText(para),
		})
	}
	return blocks, nil
}

// RenderAnnotated 生成带批注的文档副本
// 弱匹配某条结果的段落整体加高亮和加粗，段尾追加可见的证据链接文本
// （OOXML在任意游程上加超链接需要改写关系部件，这里沿用可见链接的退路）
func (a *DOCXAdapter) RenderAnnotated(srcPath, outPath string, findings []models.Finding) error {
	parts, err := readArchiveParts(srcPath)
	if err != nil {
		return err
	}

	for i, part := range parts {
		if part.Name != docxDocumentPart {
			continue
		}
		annotated := paragraphPattern.ReplaceAllStringFunc(string(part.Data), func(para string) string {
			return a.annotateParagraph(para, findings)
		})
		parts[i].Data = []byte(annotated)
	}

	return writeArchiveParts(outPath, parts)
}

// annotateParagraph 改写单个段落
// 没有匹配结果时原样返回；段落级改写失败只影响该段
func (a *DOCXAdapter) annotateParagraph(para string, findings []models.Finding) string {
	text := strings.TrimSpace(paragraphText(para))
	if text == "" {
		return para
	}

	f, ok := matchLastFinding(text, findings)
	if !ok {
		return para
	}

	highlight := docxHighlight[f.Classification]

	// 段落内所有游程统一加高亮和加粗
	annotated := wordRunPattern.ReplaceAllStringFunc(para, func(run string) string {
		var texts []string
		for _, m := range wordTextPattern.FindAllStringSubmatch(run, -1) {
			texts = append(texts, unescapeXML(m[1]))
		}
		runText := strings.Join(texts, "")
		if runText == "" {
			return run
		}
		return fmt.Sprintf(
			`<w:r><w:rPr><w:b/><w:highlight w:val="%s"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r>`,
			highlight, escapeXML(runText))
	})

	// 段尾追加可见的证据链接
	url := f.SnippetURL
	if url == "" {
		url = f.EvidenceURL
	}
	if url != "" {
		closeIdx := strings.LastIndex(annotated, "</w:p>")
		if closeIdx < 0 {
			a.logger.WithField("block_index", f.BlockIndex).Warn("Paragraph close tag not found, evidence link skipped")
			return annotated
		}
		linkRuns := fmt.Sprintf(
			`<w:r><w:rPr><w:u w:val="single"/></w:rPr><w:t xml:space="preserve"> [evidence]</w:t></w:r><w:r><w:t xml:space="preserve"> (%s)</w:t></w:r>`,
			escapeXML(url))
		annotated = annotated[:closeIdx] + linkRuns + annotated[closeIdx:]
	}
	return annotated
}

// paragraphText 拼接段落内所有文本游程的内容
func paragraphText(para string) string {
	var texts []string
	for _, m := range wordTextPattern.FindAllStringSubmatch(para, -1) {
		texts = append(texts, unescapeXML(m[1]))
	}
	return strings.Join(texts, "")
}
