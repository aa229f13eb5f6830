package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDirectoryJoinsFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "first document\n")
	writeFile(t, dir, "b.md", "  second document  ")

	loader := NewDocumentLoader()
	text, err := loader.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, "first document\n\nsecond document", text)
}

func TestLoadDirectoryEmptyDir(t *testing.T) {
	loader := NewDocumentLoader()
	_, err := loader.LoadDirectory(t.TempDir())
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestLoadDirectoryUnsupportedOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.bin", "binary stuff")
	writeFile(t, dir, "image.png", "not an image")

	loader := NewDocumentLoader()
	_, err := loader.LoadDirectory(dir)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestLoadDirectorySkipsEmptyAndBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blank.txt", "   \n\t  ")
	writeFile(t, dir, "broken.pdf", "definitely not a pdf")
	writeFile(t, dir, "good.txt", "useful content")
	// 子目录不递归
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeFile(t, filepath.Join(dir, "nested"), "ignored.txt", "nested content")

	loader := NewDocumentLoader()
	text, err := loader.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, "useful content", text)
}

func TestLoadDirectoryMissingDir(t *testing.T) {
	loader := NewDocumentLoader()
	_, err := loader.LoadDirectory(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDocuments)
}

func TestFileParserManagerSupports(t *testing.T) {
	m := NewFileParserManager()
	assert.True(t, m.Supports("notes.txt"))
	assert.True(t, m.Supports("README.md"))
	assert.True(t, m.Supports("paper.PDF"))
	assert.True(t, m.Supports("report.docx"))
	assert.False(t, m.Supports("archive.zip"))
	assert.False(t, m.Supports("script.py"))
}

func TestTextParserParse(t *testing.T) {
	p := &TextParser{}
	text, err := p.Parse(strings.NewReader("hello"), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestFileParserManagerUnsupported(t *testing.T) {
	m := NewFileParserManager()
	_, err := m.ParseFile(strings.NewReader("data"), "a.zip")
	assert.Error(t, err)
}
