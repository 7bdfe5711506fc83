// Package extract turns a file path into plain text plus a detected type,
// dispatching by extension to a pluggable extractor. It never executes
// file content, only reads it.
package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
)

// Result is the outcome of a successful extraction.
type Result struct {
	Text     string
	FileType string
	Size     int64
}

// Extractor converts raw file bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, path string, content []byte) (Result, error)
}

// denyPatterns are content substrings that cause a file to be rejected
// outright, regardless of extension.
var denyPatterns = []string{
	"<script",
	"javascript:",
	"<?php",
}

// Registry dispatches extraction by file extension and enforces the
// size cap and content deny-list centrally: the size cap before any
// format-specific parsing runs, the deny-list on the extracted text.
type Registry struct {
	byExt       map[string]Extractor
	maxFileSize int64
}

// NewRegistry builds a Registry with the standard set of extractors wired
// in: plaintext/markdown/code, OOXML (docx/xlsx/pptx), and a best-effort
// PDF text scanner.
func NewRegistry(maxFileSizeBytes int64) *Registry {
	r := &Registry{
		byExt:       make(map[string]Extractor),
		maxFileSize: maxFileSizeBytes,
	}

	plain := &PlaintextExtractor{}
	for _, ext := range []string{
		".txt", ".md", ".markdown", ".go", ".py", ".rs", ".java", ".c", ".cpp",
		".rb", ".sh", ".sql", ".csv", ".yaml", ".yml", ".toml", ".js", ".jsx",
		".ts", ".tsx", ".css", ".html", ".htm", ".json", ".xml",
	} {
		r.byExt[ext] = plain
	}

	ooxml := &OOXMLExtractor{}
	r.byExt[".docx"] = ooxml
	r.byExt[".xlsx"] = ooxml
	r.byExt[".pptx"] = ooxml

	r.byExt[".pdf"] = &PDFExtractor{}

	return r
}

// Extract reads path, validates its size, and dispatches to the extractor
// registered for its extension.
func (r *Registry) Extract(ctx context.Context, path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, errors.Join(apperr.ErrInvalidInput, err)
	}
	if r.maxFileSize > 0 && info.Size() > r.maxFileSize {
		return Result{}, apperr.ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := r.byExt[ext]
	if !ok {
		return Result{}, apperr.ErrUnsupportedType
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}

	result, err := extractor.Extract(ctx, path, content)
	if err != nil {
		return Result{}, err
	}
	result.Size = info.Size()

	if violatesContentPolicy(result.Text) {
		return Result{}, apperr.ErrContentRejected
	}

	return result, nil
}

func violatesContentPolicy(text string) bool {
	lower := strings.ToLower(text)
	for _, pattern := range denyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
