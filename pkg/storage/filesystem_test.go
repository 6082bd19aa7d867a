package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := store.Load("token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save("token", []byte("tok-1")))
	value, ok, err := store.Load("token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-1", string(value))

	require.NoError(t, store.Save("token", []byte("tok-2")))
	value, _, err = store.Load("token")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", string(value), "save replaces previous content")

	require.NoError(t, store.Delete("token"))
	_, ok, err = store.Load("token")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.Delete("token"), "deleting a missing key is not an error")
}

func TestRejectsPathTraversalKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "a/b", `a\b`, "..", "../escape"} {
		assert.Error(t, store.Save(key, []byte("x")), "key %q must be rejected", key)
	}
}
