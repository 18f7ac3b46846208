package objectclient

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/markdave123-py/askflow/internal/config"
)

func TestLocalStore_SaveAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), "abc.pdf", []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc.pdf"), ref)

	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(context.Background(), ref))
	_, err = os.Stat(ref)
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine.
	assert.NoError(t, store.Delete(context.Background(), ref))
}

func TestLocalStore_RejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	for _, key := range []string{"", ".", "..", "../evil.pdf", "nested/evil.pdf"} {
		_, err := store.Save(context.Background(), key, []byte("x"), "application/pdf")
		assert.Error(t, err, key)
	}

	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o600))
	assert.Error(t, store.Delete(context.Background(), outside))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, "a.pdf", []byte("x"), "application/pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewObjectClient(t *testing.T) {
	local, err := NewObjectClient(context.Background(), &cfg.Config{FileBackend: cfg.FileBackendLocal, UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, local)

	_, err = NewObjectClient(context.Background(), &cfg.Config{FileBackend: "ftp"})
	assert.Error(t, err)

	_, err = NewObjectClient(context.Background(), &cfg.Config{FileBackend: cfg.FileBackendS3})
	assert.Error(t, err)
}
