package docsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", []byte("second"))
	writeFile(t, dir, "a.TXT", []byte("first"))
	writeFile(t, dir, "notes.md", []byte("ignored"))
	writeFile(t, dir, "bad.txt", []byte{0xff, 0xfe, 0x00})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	docs, failures, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{
		{Filename: "a.TXT", Content: "first"},
		{Filename: "b.txt", Content: "second"},
	}, docs)
	require.Len(t, failures, 1)
	assert.Equal(t, filepath.Join(dir, "bad.txt"), failures[0].Path)
	assert.ErrorIs(t, failures[0].Err, ErrNotUTF8)
}

func TestLoadDir_Missing(t *testing.T) {
	_, _, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadPaths(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("alpha"))
	writeFile(t, dir, "b.txt", []byte("beta"))

	docs, failures := LoadPaths([]string{filepath.Join(dir, "*.txt"), a, filepath.Join(dir, "missing.txt")})
	assert.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Filename)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "missing.txt")
}
