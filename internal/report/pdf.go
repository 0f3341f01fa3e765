package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/jung-kurt/gofpdf"
)

// textBudget 声明和摘录在报告中的最大字符数
const textBudget = 800

// classColor 分类对应的RGB颜色
type classColor struct {
	r, g, b int
}

var reportColors = map[models.Classification]classColor{
	models.ClassGreen:  {0, 150, 0},
	models.ClassYellow: {255, 165, 0},
	models.ClassRed:    {200, 0, 0},
}

// Write 渲染分页的校验汇总报告
// 第一页是封面（标题、源文件名、颜色图例），之后每条结果一页，
// 严格按结果的规范顺序渲染
func Write(outPath, sourceName string, findings []models.Finding) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)

	writeCoverPage(pdf, sourceName)
	for _, f := range findings {
		writeFindingPage(pdf, f)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// writeCoverPage 渲染封面页
func writeCoverPage(pdf *gofpdf.Fpdf, sourceName string) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(20, 30)
	pdf.CellFormat(0, 10, "Claim Validation Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(20, 45)
	pdf.CellFormat(0, 6, "File: "+sourceName, "", 1, "L", false, 0, "")
	pdf.SetXY(20, 52)
	pdf.CellFormat(0, 6, "Color legend: Green = supported, Yellow = uncertain, Red = unsupported", "", 1, "L", false, 0, "")
}

// writeFindingPage 渲染一条结果的页面
func writeFindingPage(pdf *gofpdf.Fpdf, f models.Finding) {
	pdf.AddPage()

	color := reportColors[f.Classification]
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(color.r, color.g, color.b)
	pdf.SetXY(20, 25)
	header := fmt.Sprintf("Block %d - %s (score=%d)",
		f.BlockIndex, strings.ToUpper(string(f.Classification)), int(f.Score))
	pdf.CellFormat(0, 8, header, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetY(40)
	writeSection(pdf, "Claim text:", truncate(f.ClaimText, textBudget))
	writeSection(pdf, "Detected reference:", f.CitationRaw)
	if f.EvidenceExcerpt != "" {
		writeSection(pdf, "Source excerpt:", truncate(f.EvidenceExcerpt, textBudget))
	}
	if f.EvidenceURL != "" {
		writeSection(pdf, "Evidence URL:", f.EvidenceURL)
	}
}

// writeSection 渲染带标题的自动换行文本段
func writeSection(pdf *gofpdf.Fpdf, title, body string) {
	pdf.SetX(20)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")

	pdf.SetX(20)
	pdf.SetFont("Helvetica", "", 10)
	// 证据文本可能带有标记残留，转为可打印编码避免渲染失败
	pdf.MultiCell(170, 5, pdf.UnicodeTranslatorFromDescriptor("")(body), "", "L", false)
	pdf.Ln(4)
}

// truncate 按固定字符预算截断文本
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
