package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAferoStore(t *testing.T) {
	memFs := afero.NewMemMapFs()
	store := NewAferoStore(memFs)
	ctx := context.Background()

	path := "snapshots/identity.json"
	content := `{"users":{}}`

	t.Run("Save writes through a temp file", func(t *testing.T) {
		n, err := store.Save(ctx, path, strings.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), n)

		exists, err := afero.Exists(memFs, path+".tmp")
		require.NoError(t, err)
		assert.False(t, exists, "temp file should be renamed away")

		got, err := afero.ReadFile(memFs, path)
		require.NoError(t, err)
		assert.Equal(t, content, string(got))
	})

	t.Run("Save replaces an existing snapshot", func(t *testing.T) {
		_, err := store.Save(ctx, path, strings.NewReader(`{"users":{"a":{}}}`))
		require.NoError(t, err)

		f, err := store.Open(ctx, path)
		require.NoError(t, err)
		defer f.Close()
		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, `{"users":{"a":{}}}`, string(got))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, path))
		exists, err := afero.Exists(memFs, path)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Open non-existent file", func(t *testing.T) {
		_, err := store.Open(ctx, "path/to/nothing.json")
		assert.Error(t, err)
	})
}
