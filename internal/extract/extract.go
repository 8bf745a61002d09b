// Package extract converts uploaded file bytes into plain text ready for
// chunking. Each supported format gets its own extractor; everything else
// falls through to a permissive plain-text decode.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrExtraction is returned when a file's content cannot be read as its
// declared format. Callers map it to a client error, not a server fault.
var ErrExtraction = errors.New("extract: could not read file content")

// Text extracts plain text from data, dispatching on the filename's
// extension. Unknown extensions are treated as plain text.
func Text(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return pdfText(data)
	case ".docx":
		return docxText(data)
	case ".xlsx":
		return xlsxText(data)
	case ".doc", ".xls":
		// Legacy OLE formats need a converter we do not ship.
		return "", fmt.Errorf("%w: legacy format %q is not supported, convert to %s first",
			ErrExtraction, filepath.Ext(filename), modernEquivalent(filename))
	case ".md", ".markdown":
		return markdownText(data)
	default:
		return plainText(data), nil
	}
}

func modernEquivalent(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".doc") {
		return ".docx"
	}
	return ".xlsx"
}

// plainText decodes data as UTF-8, falling back to Latin-1 when the
// bytes are not valid UTF-8 so legacy text files still ingest.
func plainText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}

// normalizeWhitespace collapses runs of three or more newlines down to a
// paragraph break so extractor output chunks cleanly.
func normalizeWhitespace(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}

// joinNonEmpty joins the non-blank parts with the separator.
func joinNonEmpty(parts []string, sep string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
