package fsutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestClearDir(t *testing.T) {
	t.Run("it empties the directory but keeps it", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.css"), "a")
		writeFile(t, filepath.Join(root, "admin", "js", "b.js"), "b")

		removed, err := ClearDir(root, 0o755)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("it creates a missing directory", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "static")

		removed, err := ClearDir(root, 0o755)
		require.NoError(t, err)
		assert.Zero(t, removed)

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestCopyTree(t *testing.T) {
	t.Run("it copies nested files", func(t *testing.T) {
		src := t.TempDir()
		dst := t.TempDir()
		writeFile(t, filepath.Join(src, "css", "main.css"), "body{}")
		writeFile(t, filepath.Join(src, "favicon.ico"), "ico")

		n, err := CopyTree(context.Background(), src, dst, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "body{}", readFile(t, filepath.Join(dst, "css", "main.css")))
		assert.Equal(t, "ico", readFile(t, filepath.Join(dst, "favicon.ico")))
	})

	t.Run("it keeps existing files unless overwrite is set", func(t *testing.T) {
		src := t.TempDir()
		dst := t.TempDir()
		writeFile(t, filepath.Join(src, "main.css"), "new")
		writeFile(t, filepath.Join(dst, "main.css"), "old")

		n, err := CopyTree(context.Background(), src, dst, false)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, "old", readFile(t, filepath.Join(dst, "main.css")))

		n, err = CopyTree(context.Background(), src, dst, true)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "new", readFile(t, filepath.Join(dst, "main.css")))
	})

	t.Run("it stops when the context is cancelled", func(t *testing.T) {
		src := t.TempDir()
		dst := t.TempDir()
		writeFile(t, filepath.Join(src, "main.css"), "body{}")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		n, err := CopyTree(ctx, src, dst, false)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, n)
		assert.NoFileExists(t, filepath.Join(dst, "main.css"))
	})

	t.Run("it fails for a missing source", func(t *testing.T) {
		_, err := CopyTree(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir(), false)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("it fails when the source is a file", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "file")
		writeFile(t, src, "x")

		_, err := CopyTree(context.Background(), src, t.TempDir(), false)
		assert.Error(t, err)
	})
}

func TestCreateAll(t *testing.T) {
	root := t.TempDir()

	f, err := CreateAll(filepath.Join(root, "foo", "bar", "targetFile"), 0o600, 0o755)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := os.Stat(filepath.Join(root, "foo", "bar"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = os.Stat(filepath.Join(root, "foo", "bar", "targetFile"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
}
