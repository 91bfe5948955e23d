// Package fileutil provides tests for shared file utilities.
package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	t.Run("within limit", func(t *testing.T) {
		data, err := ReadFileLimited(path, 10)
		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(data))
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadFileLimited(path, 9)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFileLimited(filepath.Join(t.TempDir(), "absent"), 10)
		require.Error(t, err)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestAtomicWriteFile(t *testing.T) {
	t.Run("writes new file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.sql")
		require.NoError(t, AtomicWriteFile(path, []byte("SELECT 1;\n"), 0o644))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1;\n", string(data))

		if runtime.GOOS != "windows" {
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
		}
	})

	t.Run("replaces existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.sql")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

		require.NoError(t, AtomicWriteFile(path, []byte("new"), 0o644))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.sql")
		require.NoError(t, AtomicWriteFile(path, []byte("x"), 0o644))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "out.sql", entries[0].Name())
	})

	t.Run("fails on missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.sql")
		require.Error(t, AtomicWriteFile(path, []byte("x"), 0o644))
	})
}
