package upload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "repairdesk/internal/errors"
)

func newTestStore(t *testing.T, maxBytes int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "uploads"), "/uploads/", maxBytes)
	require.NoError(t, err)
	return store
}

func TestLocalStore_Save(t *testing.T) {
	store := newTestStore(t, 1024)

	ref, err := store.Save(context.Background(), "Photo.JPG", strings.NewReader("image-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "/uploads/"))
	assert.True(t, strings.HasSuffix(ref, ".jpg"))

	data, err := os.ReadFile(filepath.Join(store.Dir(), strings.TrimPrefix(ref, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestLocalStore_SaveUniqueNames(t *testing.T) {
	store := newTestStore(t, 1024)

	first, err := store.Save(context.Background(), "a.png", strings.NewReader("1"))
	require.NoError(t, err)
	second, err := store.Save(context.Background(), "a.png", strings.NewReader("2"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestLocalStore_RejectsExtension(t *testing.T) {
	store := newTestStore(t, 1024)

	for _, name := range []string{"script.sh", "noext", "image.svg"} {
		_, err := store.Save(context.Background(), name, strings.NewReader("x"))
		_, ok := apperrors.IsValidationError(err)
		assert.True(t, ok, name)
	}

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_RejectsOversize(t *testing.T) {
	store := newTestStore(t, 4)

	_, err := store.Save(context.Background(), "big.webp", strings.NewReader("12345"))
	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "file too large", ve.Message)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file removed")
}

func TestLocalStore_ExactLimitAccepted(t *testing.T) {
	store := newTestStore(t, 4)

	_, err := store.Save(context.Background(), "ok.gif", strings.NewReader("1234"))
	assert.NoError(t, err)
}

func TestLocalStore_CancelledContext(t *testing.T) {
	store := newTestStore(t, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
