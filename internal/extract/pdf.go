package extract

import (
	"bytes"
	"context"
	"regexp"
	"strings"
)

// PDFExtractor recovers text from a PDF's uncompressed content streams by
// scanning for the Tj/TJ text-showing operators. It does not decode
// FlateDecode-compressed streams or run a font/encoding model; scanned or
// compressed PDFs yield partial or empty text. No PDF-parsing library
// appears anywhere in the reference corpus, so this stays a small
// best-effort scanner rather than a full parser.
type PDFExtractor struct{}

var (
	tjStringRE  = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	tjArrayRE   = regexp.MustCompile(`\[((?:[^\[\]]|\\.)*)\]\s*TJ`)
	tjArrayPart = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
)

// Extract scans content for text-showing operators inside PDF streams.
func (PDFExtractor) Extract(_ context.Context, _ string, content []byte) (Result, error) {
	var b strings.Builder

	for _, m := range tjStringRE.FindAllSubmatch(content, -1) {
		b.WriteString(unescapePDFString(m[1]))
		b.WriteString(" ")
	}
	for _, m := range tjArrayRE.FindAllSubmatch(content, -1) {
		for _, part := range tjArrayPart.FindAllSubmatch(m[1], -1) {
			b.WriteString(unescapePDFString(part[1]))
		}
		b.WriteString(" ")
	}

	return Result{Text: strings.TrimSpace(b.String()), FileType: "pdf"}, nil
}

func unescapePDFString(raw []byte) string {
	raw = bytes.ReplaceAll(raw, []byte(`\(`), []byte("("))
	raw = bytes.ReplaceAll(raw, []byte(`\)`), []byte(")"))
	raw = bytes.ReplaceAll(raw, []byte(`\\`), []byte(`\`))
	return string(raw)
}
