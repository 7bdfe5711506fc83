package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
)

func TestRegistryExtractsPlaintext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	reg := NewRegistry(1024)
	res, err := reg.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.Equal(t, "txt", res.FileType)
}

func TestRegistryRejectsUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01}, 0644))

	reg := NewRegistry(1024)
	_, err := reg.Extract(context.Background(), path)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
}

func TestRegistryRejectsTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0644))

	reg := NewRegistry(10)
	_, err := reg.Extract(context.Background(), path)
	assert.ErrorIs(t, err, apperr.ErrTooLarge)
}

func TestRegistryRejectsContentPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi <script>alert(1)</script>"), 0644))

	reg := NewRegistry(1024)
	_, err := reg.Extract(context.Background(), path)
	assert.ErrorIs(t, err, apperr.ErrContentRejected)
}
