package document

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/sirupsen/logrus"
)

// pptx部件路径和XML片段匹配模式
var (
	slidePartPattern   = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	drawingRunPattern  = regexp.MustCompile(`(?s)<a:r>.*?</a:r>`)
	drawingTextPattern = regexp.MustCompile(`(?s)<a:t[^>]*>(.*?)</a:t>`)
)

// 分类对应的字体颜色（十六进制RGB）
var pptxColorHex = map[models.Classification]string{
	models.ClassGreen:  "009600",
	models.ClassYellow: "FFA500",
	models.ClassRed:    "C80000",
}

// PPTXAdapter 幻灯片文档适配器
type PPTXAdapter struct {
	logger *logrus.Logger
}

// NewPPTXAdapter 创建幻灯片文档适配器
func NewPPTXAdapter(logger *logrus.Logger) *PPTXAdapter {
	return &PPTXAdapter{logger: logger}
}

// ExtractBlocks 提取每页幻灯片的文本
// 一页幻灯片的所有形状文本拼接为一个文本块，块序号即页码
func (a *PPTXAdapter) ExtractBlocks(path string) ([]models.TextBlock, error) {
	parts, err := readArchiveParts(path)
	if err != nil {
		return nil, err
	}

	type slidePart struct {
		number int
		data   []byte
	}
	var slides []slidePart
	for _, part := range parts {
		m := slidePartPattern.FindStringSubmatch(part.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slidePart{number: n, data: part.Data})
	}

	// zip部件顺序不保证页码顺序，按编号排序
	sort.Slice(slides, func(i, j int) bool {
		return slides[i].number < slides[j].number
	})

	blocks := make([]models.TextBlock, 0, len(slides))
	for _, s := range slides {
		var texts []string
		for _, m := range drawingTextPattern.FindAllSubmatch(s.data, -1) {
			texts = append(texts, unescapeXML(string(m[1])))
		}
		blocks = append(blocks, models.TextBlock{
			Index: s.number,
			Text:  strings.Join(texts, " "),
		})
	}
	return blocks, nil
}

// RenderAnnotated 生成带批注的幻灯片副本
// 弱匹配某条结果的文本游程改为该结果的分类颜色加粗显示，
// 并链接到摘录页锚点（无摘录链接时退回证据链接）
func (a *PPTXAdapter) RenderAnnotated(srcPath, outPath string, findings []models.Finding) error {
	parts, err := readArchiveParts(srcPath)
	if err != nil {
		return err
	}

	// 按页码分组结果，每页只和自己的结果做匹配
	findingsBySlide := make(map[int][]models.Finding)
	for _, f := range findings {
		findingsBySlide[f.BlockIndex] = append(findingsBySlide[f.BlockIndex], f)
	}

	// 第一遍处理幻灯片部件，记录每页需要追加的超链接关系
	relsToAdd := make(map[string][]hyperlinkRel)
	for i, part := range parts {
		m := slidePartPattern.FindStringSubmatch(part.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slideFindings := findingsBySlide[n]
		if len(slideFindings) == 0 {
			continue
		}

		relsName := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)
		annotated, rels := a.annotateSlideXML(string(part.Data), slideFindings)
		parts[i].Data = []byte(annotated)
		if len(rels) > 0 {
			relsToAdd[relsName] = rels
		}
	}

	// 第二遍把超链接关系写入对应的rels部件
	// 找不到rels部件时放弃该页的链接，不中断批注
	for i, part := range parts {
		rels, ok := relsToAdd[part.Name]
		if !ok {
			continue
		}
		updated, err := appendRelationships(string(part.Data), rels)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"part":  part.Name,
				"error": err.Error(),
			}).Warn("Failed to add hyperlink relationships, links skipped")
			continue
		}
		parts[i].Data = []byte(updated)
		delete(relsToAdd, part.Name)
	}
	for name := range relsToAdd {
		a.logger.WithField("part", name).Warn("Relationship part not found, hyperlinks dropped")
	}

	return writeArchiveParts(outPath, parts)
}

// hyperlinkRel 需要追加到rels部件的超链接关系
type hyperlinkRel struct {
	ID     string
	Target string
}

// annotateSlideXML 改写一页幻灯片的XML
// 返回改写后的XML和该页需要登记的超链接关系
func (a *PPTXAdapter) annotateSlideXML(slideXML string, findings []models.Finding) (string, []hyperlinkRel) {
	var rels []hyperlinkRel
	relSeq := 0

	annotated := drawingRunPattern.ReplaceAllStringFunc(slideXML, func(run string) string {
		var texts []string
		for _, m := range drawingTextPattern.FindAllStringSubmatch(run, -1) {
			texts = append(texts, unescapeXML(m[1]))
		}
		text := strings.TrimSpace(strings.Join(texts, " "))
		if text == "" {
			return run
		}

		f, ok := matchLastFinding(text, findings)
		if !ok {
			return run
		}

		url := f.SnippetURL
		if url == "" {
			url = f.EvidenceURL
		}
		link := ""
		if url != "" {
			relSeq++
			rid := fmt.Sprintf("rIdcc%d", relSeq)
			rels = append(rels, hyperlinkRel{ID: rid, Target: url})
			link = fmt.Sprintf(`<a:hlinkClick xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" r:id="%s"/>`, rid)
		}

		// 用统一格式重建游程：分类颜色、加粗、可选超链接
		return fmt.Sprintf(
			`<a:r><a:rPr lang="en-US" b="1" dirty="0"><a:solidFill><a:srgbClr val="%s"/></a:solidFill>%s</a:rPr><a:t>%s</a:t></a:r>`,
			pptxColorHex[f.Classification], link, escapeXML(text))
	})

	return annotated, rels
}

// appendRelationships 在rels部件末尾追加外部超链接关系
func appendRelationships(relsXML string, rels []hyperlinkRel) (string, error) {
	const closeTag = "</Relationships>"
	idx := strings.LastIndex(relsXML, closeTag)
	if idx < 0 {
		return "", fmt.Errorf("malformed relationships part")
	}

	var sb strings.Builder
	sb.WriteString(relsXML[:idx])
	for _, rel := range rels {
		sb.WriteString(fmt.Sprintf(
			`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="%s" TargetMode="External"/>`,
			rel.ID, escapeXML(rel.Target)))
	}
	sb.WriteString(relsXML[idx:])
	return sb.String(), nil
}
