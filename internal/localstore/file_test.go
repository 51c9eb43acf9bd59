package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "progress")
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	_, ok, err := backend.Get("learn-card-progress:reader@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Put("learn-card-progress:reader@example.com", []byte(`{}`)))
	require.NoError(t, backend.Put("learn-card-progress:reader@example.com", []byte(`{"a":{}}`)))

	data, ok, err := backend.Get("learn-card-progress:reader@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":{}}`, string(data))

	t.Run("no temp files left behind", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("keys round trip through file names", func(t *testing.T) {
		require.NoError(t, backend.Put("other/key", []byte(`{}`)))
		keys, err := backend.Keys("learn-card-progress:")
		require.NoError(t, err)
		assert.Equal(t, []string{"learn-card-progress:reader@example.com"}, keys)
	})

	require.NoError(t, backend.Delete("learn-card-progress:reader@example.com"))
	require.NoError(t, backend.Delete("learn-card-progress:reader@example.com"))
	_, ok, err = backend.Get("learn-card-progress:reader@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileBackend_WithStore(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	store := NewStore(backend, "")

	store.Write("reader@example.com", sample())
	m, ok := store.Read("reader@example.com")
	require.True(t, ok)
	assert.Equal(t, 5, m["cet4"].Learned())

	users, err := store.Users()
	require.NoError(t, err)
	assert.Equal(t, []string{"reader@example.com"}, users)
}
