package document

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// OOXML文档（pptx/docx）是zip容器内的一组XML部件
// 这里提供部件读取和副本重写的通用操作

// archivePart zip容器中的一个部件
type archivePart struct {
	Name string
	Data []byte
}

// readArchiveParts 读取zip容器中的所有部件，保持原始顺序
func readArchiveParts(path string) ([]archivePart, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document archive: %w", err)
	}
	defer zr.Close()

	parts := make([]archivePart, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		parts = append(parts, archivePart{Name: f.Name, Data: data})
	}
	return parts, nil
}

// writeArchiveParts 将部件写入新的zip容器
// 输出文件是原始文档的独立副本，写入失败时不留下半成品
func writeArchiveParts(outPath string, parts []archivePart) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	zw := zip.NewWriter(out)
	for _, part := range parts {
		w, err := zw.Create(part.Name)
		if err == nil {
			_, err = w.Write(part.Data)
		}
		if err != nil {
			zw.Close()
			out.Close()
			os.Remove(outPath)
			return fmt.Errorf("failed to write part %s: %w", part.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(outPath)
		return fmt.Errorf("failed to finalize output archive: %w", err)
	}
	return out.Close()
}

// xmlEscaper XML文本内容转义
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// xmlUnescaper XML实体还原
var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// escapeXML 转义XML文本内容
func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// unescapeXML 还原XML文本中的实体
func unescapeXML(s string) string {
	return xmlUnescaper.Replace(s)
}
