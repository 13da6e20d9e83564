package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestExtractContextPythonOnly(t *testing.T) {
	dir := t.TempDir()
	req := "flask==3.0.0\ngunicorn\n"
	writeFile(t, dir, "requirements.txt", req)

	got, err := ExtractContext(dir)
	require.NoError(t, err)
	assert.Contains(t, got, req)
	assert.Equal(t, "Python Dependencies (requirements.txt):\n"+req+"\n", got)
	assert.NotContains(t, got, "Node.js")
	assert.NotContains(t, got, "package.json")
}

func TestExtractContextBothManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "django")
	writeFile(t, dir, "package.json", `{"name":"app"}`)

	got, err := ExtractContext(dir)
	require.NoError(t, err)
	assert.Equal(t,
		"Python Dependencies (requirements.txt):\ndjango\n"+
			"Node.js Dependencies (package.json):\n{\"name\":\"app\"}\n",
		got)
}

func TestExtractContextSentinel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# hi")

	got, err := ExtractContext(dir)
	require.NoError(t, err)
	assert.Equal(t, NoManifestContext, got)
}

func TestExtractContextRejectsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte{0xff, 0xfe, 'x'}, 0o644))

	_, err := ExtractContext(dir)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestExtractContextManifestIsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "requirements.txt"), 0o755))

	got, err := ExtractContext(dir)
	require.NoError(t, err)
	assert.Equal(t, NoManifestContext, got)
}
