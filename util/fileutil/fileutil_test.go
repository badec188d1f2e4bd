package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/util/fileutil"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.True(t, fileutil.FileExists(path))
	assert.True(t, fileutil.FileExists(dir))
	assert.False(t, fileutil.FileExists(filepath.Join(dir, "absent.txt")))
}

func TestMkdirAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, fileutil.MkdirAll(dir))
	assert.True(t, fileutil.FileExists(dir))
	// Second call is a no-op.
	require.NoError(t, fileutil.MkdirAll(dir))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	content := []byte("payload bytes to copy")
	require.NoError(t, os.WriteFile(src, content, 0644))

	written, err := fileutil.CopyFile(src, dst)
	require.NoError(t, err)
	assert.EqualValues(t, len(content), written)

	copied, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, copied)
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := fileutil.CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	assert.Error(t, err)
	assert.False(t, fileutil.FileExists(filepath.Join(dir, "dst")))
}

func TestExpandTilde(t *testing.T) {
	expanded, err := fileutil.ExpandTilde("~/tmp")
	require.NoError(t, err)
	assert.True(t, len(expanded) > len("/tmp"))
	assert.True(t, filepath.IsAbs(expanded))

	unchanged, err := fileutil.ExpandTilde("/var/data")
	require.NoError(t, err)
	assert.Equal(t, "/var/data", unchanged)
}

func TestLooksSafeToDelete(t *testing.T) {
	assert.True(t, fileutil.LooksSafeToDelete("/var/westvault/harvest/x", 12, 3))
	assert.False(t, fileutil.LooksSafeToDelete("/var", 12, 3))
	assert.False(t, fileutil.LooksSafeToDelete("/var/westvault", 12, 3))
}

func TestDeleteTreeRefusesShallowPaths(t *testing.T) {
	err := fileutil.DeleteTree("/tmp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing")
}

func TestDeleteTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "tree", "of", "files")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0644))

	require.NoError(t, fileutil.DeleteTree(dir))
	assert.False(t, fileutil.FileExists(dir))
}
