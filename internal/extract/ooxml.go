package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
)

// OOXMLExtractor pulls plain text out of the Office Open XML container
// formats (.docx, .xlsx, .pptx) by walking the zip archive's XML parts,
// the same way a word processor's document.xml holds run text.
type OOXMLExtractor struct{}

// Extract dispatches on extension to the matching part-walker.
func (OOXMLExtractor) Extract(_ context.Context, path string, content []byte) (Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Result{}, apperr.ErrInvalidInput
	}

	ext := strings.ToLower(filepath.Ext(path))
	var text string
	switch ext {
	case ".docx":
		text = extractZipPartText(reader, "word/document.xml", parseWordprocessingXML)
	case ".xlsx":
		text = extractSpreadsheetText(reader)
	case ".pptx":
		text = extractSlidesText(reader)
	default:
		return Result{}, apperr.ErrUnsupportedType
	}

	return Result{Text: text, FileType: strings.TrimPrefix(ext, ".")}, nil
}

func readZipPart(reader *zip.Reader, name string) ([]byte, bool) {
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

func extractZipPartText(reader *zip.Reader, part string, parse func([]byte) string) string {
	data, ok := readZipPart(reader, part)
	if !ok {
		return ""
	}
	return parse(data)
}

// -- DOCX: word/document.xml, <w:p>/<w:r>/<w:t> --

type wordDocumentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func parseWordprocessingXML(content []byte) string {
	var doc wordDocumentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}
	var b strings.Builder
	for i, p := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// -- XLSX: xl/sharedStrings.xml + xl/worksheets/sheetN.xml cell values --

type sharedStringsXML struct {
	Items []struct {
		Runs []struct {
			Content string `xml:",chardata"`
		} `xml:"r>t"`
		Text string `xml:"t"`
	} `xml:"si"`
}

type worksheetXML struct {
	Rows []struct {
		Cells []struct {
			Type  string `xml:"t,attr"`
			Value string `xml:"v"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func extractSpreadsheetText(reader *zip.Reader) string {
	var shared []string
	if data, ok := readZipPart(reader, "xl/sharedStrings.xml"); ok {
		var ss sharedStringsXML
		if xml.Unmarshal(data, &ss) == nil {
			for _, item := range ss.Items {
				if item.Text != "" {
					shared = append(shared, item.Text)
					continue
				}
				var runText strings.Builder
				for _, r := range item.Runs {
					runText.WriteString(r.Content)
				}
				shared = append(shared, runText.String())
			}
		}
	}

	var sheetNames []string
	for _, f := range reader.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			sheetNames = append(sheetNames, f.Name)
		}
	}
	sort.Strings(sheetNames)

	var b strings.Builder
	for _, name := range sheetNames {
		data, ok := readZipPart(reader, name)
		if !ok {
			continue
		}
		var sheet worksheetXML
		if xml.Unmarshal(data, &sheet) != nil {
			continue
		}
		for _, row := range sheet.Rows {
			var cells []string
			for _, c := range row.Cells {
				if c.Type == "s" {
					idx := parseIndex(c.Value)
					if idx >= 0 && idx < len(shared) {
						cells = append(cells, shared[idx])
					}
				} else if c.Value != "" {
					cells = append(cells, c.Value)
				}
			}
			if len(cells) > 0 {
				b.WriteString(strings.Join(cells, "\t"))
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func parseIndex(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// -- PPTX: ppt/slides/slideN.xml, <a:t> runs --

type slideXML struct {
	Texts []string `xml:"cSld>spTree>sp>txBody>p>r>t"`
}

func extractSlidesText(reader *zip.Reader) string {
	var slideNames []string
	for _, f := range reader.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slideNames = append(slideNames, f.Name)
		}
	}
	sort.Strings(slideNames)

	var b strings.Builder
	for i, name := range slideNames {
		data, ok := readZipPart(reader, name)
		if !ok {
			continue
		}
		var slide slideXML
		if xml.Unmarshal(data, &slide) != nil {
			continue
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(slide.Texts, " "))
	}
	return strings.TrimSpace(b.String())
}
