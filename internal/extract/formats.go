package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// pdfText extracts the plain text of every page, joined by paragraph breaks.
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", ErrExtraction, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %v", ErrExtraction, i, err)
		}
		pages = append(pages, pageText)
	}
	return normalizeWhitespace(joinNonEmpty(pages, "\n\n")), nil
}

// docxText extracts paragraph text from a Word document. The document
// XML is scanned for <w:t> runs; paragraphs become newlines.
func docxText(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrExtraction, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return normalizeWhitespace(wordXMLText(content)), nil
}

// wordXMLText pulls the text runs out of WordprocessingML, inserting a
// newline at each paragraph end.
func wordXMLText(xmlContent string) string {
	var b strings.Builder
	rest := xmlContent
	for {
		start := strings.Index(rest, "<w:t")
		if start < 0 {
			break
		}
		// Paragraph closings before this run become line breaks.
		b.WriteString(strings.Repeat("\n", strings.Count(rest[:start], "</w:p>")))

		rest = rest[start:]
		open := strings.Index(rest, ">")
		if open < 0 {
			break
		}
		// Guard against matching "<w:tbl" and friends.
		tag := rest[:open]
		rest = rest[open+1:]
		if tag != "<w:t" && !strings.HasPrefix(tag, "<w:t ") {
			continue
		}
		end := strings.Index(rest, "</w:t>")
		if end < 0 {
			break
		}
		b.WriteString(unescapeXML(rest[:end]))
		rest = rest[end+len("</w:t>"):]
	}
	b.WriteString(strings.Repeat("\n", strings.Count(rest, "</w:p>")))
	return b.String()
}

func unescapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(s)
}

// xlsxText renders every sheet as a tab-separated block under a
// "Sheet: <name>" header, so queries can reference cells by sheet.
func xlsxText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: xlsx: %v", ErrExtraction, err)
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var b strings.Builder
		b.WriteString("Sheet: " + sheetName + "\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
		sheets = append(sheets, b.String())
	}
	return normalizeWhitespace(joinNonEmpty(sheets, "\n\n")), nil
}

// markdownText parses markdown and extracts the readable text, dropping
// formatting syntax so headings and emphasis markers do not pollute
// embeddings. Block boundaries become paragraph breaks.
func markdownText(data []byte) (string, error) {
	src := []byte(plainText(data))
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if t := nodeText(node, src); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

// nodeText collects the text content beneath a markdown AST node.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.Kind() {
		case ast.KindText:
			sb.Write(node.(*ast.Text).Segment.Value(source))
			if node.(*ast.Text).SoftLineBreak() || node.(*ast.Text).HardLineBreak() {
				sb.WriteString("\n")
			}
		case ast.KindCodeBlock, ast.KindFencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
