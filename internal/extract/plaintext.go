package extract

import (
	"context"
	"path/filepath"
	"strings"
)

// PlaintextExtractor handles text and source-code files: the bytes are
// already the text, decoded as UTF-8.
type PlaintextExtractor struct{}

// Extract returns the file content as-is, tagged with its extension.
func (PlaintextExtractor) Extract(_ context.Context, path string, content []byte) (Result, error) {
	fileType := strings.TrimPrefix(filepath.Ext(path), ".")
	if fileType == "" {
		fileType = "text"
	}
	return Result{Text: string(content), FileType: fileType}, nil
}
