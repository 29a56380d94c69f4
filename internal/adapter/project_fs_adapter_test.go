package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

func TestLocalProjectFSAdapter_ReadWriteRoundTrip(t *testing.T) {
	fs := NewLocalProjectFSAdapter()
	path := fs.JoinPath(t.TempDir(), "file.txt")

	require.NoError(t, fs.WriteFile(path, []byte("content"), 0o600))

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	info, err := fs.FileInfo(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestLocalProjectFSAdapter_HashFile(t *testing.T) {
	fs := NewLocalProjectFSAdapter()
	path := fs.JoinPath(t.TempDir(), "file.txt")
	require.NoError(t, fs.WriteFile(path, []byte("abc"), 0o600))

	hash, err := fs.HashFile(path)
	require.NoError(t, err)
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hash)
}

func TestLocalProjectFSAdapter_CopyDir(t *testing.T) {
	fs := NewLocalProjectFSAdapter()
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "src", "nested"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "src", "nested", "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "HEAD"), []byte("ref"), 0o600))

	require.NoError(t, fs.CopyDir(m.Path(src), m.Path(dst)))

	data, err := os.ReadFile(filepath.Join(dst, "src", "nested", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	_, err = os.Stat(filepath.Join(dst, ".git"))
	assert.True(t, os.IsNotExist(err), "version control metadata must not be copied")
}

func TestLocalProjectFSAdapter_RelPath(t *testing.T) {
	fs := NewLocalProjectFSAdapter()

	rel, err := fs.RelPath("/a/b", "/a/b/c/d")
	require.NoError(t, err)
	assert.Equal(t, m.Path(filepath.Join("c", "d")), rel)
}
