package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^\d+-[0-9a-f-]{36}\.pdf$`)

func TestNewKey(t *testing.T) {
	key := NewKey("../../etc/My Notes.PDF")
	assert.Regexp(t, keyPattern, key)
	assert.NotEqual(t, key, NewKey("My Notes.PDF"))
	assert.NotContains(t, NewKey("notes"), ".")
}

func TestDiskStore_SaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	saved, err := store.Save(ctx, strings.NewReader("hello notes"), "chapter.pdf")
	require.NoError(t, err)
	assert.Regexp(t, keyPattern, saved.Key)
	assert.Equal(t, "/uploads/"+saved.Key, saved.URL)
	assert.EqualValues(t, 11, saved.Size)

	rc, err := store.Open(ctx, saved.Key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello notes", string(data))

	objects, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, saved.Key, objects[0].Key)

	require.NoError(t, store.Delete(ctx, saved.Key))
	require.NoError(t, store.Delete(ctx, saved.Key))

	_, err = store.Open(ctx, saved.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStore_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "uploads")
	store, err := NewDiskStore(dir, "/uploads")
	require.NoError(t, err)

	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("x"), 0o600))

	_, err = store.Open(context.Background(), "../secret.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Delete(context.Background(), "../secret.txt"))
	_, err = os.Stat(secret)
	assert.NoError(t, err)
}

func TestDiskStore_ListSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads")
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))

	objects, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "a.txt", objects[0].Key)
	assert.False(t, objects[0].ModTime.IsZero())
}
