package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFile(t *testing.T, dir, rel, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLocalStorageOpen(t *testing.T) {
	dir := t.TempDir()
	seedFile(t, dir, "slides/a.txt", "hello")
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	assert.True(t, store.Exists("slides/a.txt"))
	assert.False(t, store.Exists("slides"))
	assert.False(t, store.Exists("slides/missing.txt"))

	f, err := store.Open("slides/a.txt")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = store.Open("slides/missing.txt")
	assert.Error(t, err)
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = store.Open("/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = store.Open("")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	assert.False(t, store.Exists("../etc/passwd"))
}
