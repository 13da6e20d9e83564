package safeio

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileUnderRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	root, err := Open(dir)
	require.NoError(t, err)

	got, err := root.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	ok, err := root.Exists("a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = root.Exists("missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRejectsTraversal(t *testing.T) {
	root, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = root.ReadFile("../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("s3cr3t"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.Symlink(secret, filepath.Join(dir, "requirements.txt")))

	root, err := Open(dir)
	require.NoError(t, err)

	_, err = root.ReadFile("requirements.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = root.Exists("requirements.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestOpenRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))

	_, err := Open(f)
	assert.Error(t, err)
	_, err = Open("")
	assert.Error(t, err)
}
