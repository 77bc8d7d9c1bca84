package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := NewFileStore(path)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Empty(t, tok, "missing file should read as no token")

	require.NoError(t, s.Save("abc123"))

	tok, err = s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	tok, err = s.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestFileStoreClearMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "token"))
	assert.NoError(t, s.Clear())
}

func TestFileStoreTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("tok-1\n"), 0o600))

	s := NewFileStore(path)
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Save("t"))
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "t", tok)
	require.NoError(t, s.Clear())
	tok, _ = s.Token()
	assert.Empty(t, tok)
}
