package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), "covers/dune-1.png", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	assert.Equal(t, "uploads/covers/dune-1.png", ref)

	data, err := os.ReadFile(filepath.Join(dir, "covers", "dune-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), ref))
	_, err = os.Stat(filepath.Join(dir, "covers", "dune-1.png"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	assert.NoError(t, store.Delete(context.Background(), ref))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "../evil.png", "image/png", strings.NewReader("x"), 1)
	assert.Error(t, err)

	assert.ErrorIs(t, store.Delete(context.Background(), "/etc/passwd"), ErrForeignRef)
	assert.Error(t, store.Delete(context.Background(), "uploads/../../etc/passwd"))
}

func TestLocalStore_SaveDoesNotOverwrite(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "a.png", "image/png", strings.NewReader("1"), 1)
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "a.png", "image/png", strings.NewReader("2"), 1)
	assert.Error(t, err)
}
