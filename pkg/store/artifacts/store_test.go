package artifacts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mindburn-Labs/verigate/pkg/store/artifacts"
	"github.com/stretchr/testify/require"
)

func TestStore_PutSealVerify(t *testing.T) {
	dir := t.TempDir()
	store, err := artifacts.NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put("t-1", "diff.json", []byte(`{"a":1}`), false))
	require.NoError(t, store.Put("t-1", "links/statuses.json", []byte(`{"url":"2xx"}`), false))

	bundle, err := store.Seal("t-1")
	require.NoError(t, err)
	require.Len(t, bundle.Entries, 2)
	require.NotEmpty(t, bundle.BundleMerkleRoot)

	mismatch, err := store.Verify("t-1")
	require.NoError(t, err)
	require.Empty(t, mismatch)
}

func TestStore_Put_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	store, err := artifacts.NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put("t-1", "diff.json", []byte("a"), false))
	err = store.Put("t-1", "diff.json", []byte("b"), false)
	require.ErrorIs(t, err, artifacts.ErrOverwrite)
}

func TestStore_Verify_DetectsTamper(t *testing.T) {
	dir := t.TempDir()
	store, err := artifacts.NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put("t-1", "links/statuses.json", []byte(`{"url":"2xx"}`), false))
	_, err = store.Seal("t-1")
	require.NoError(t, err)

	path := filepath.Join(store.TaskDir("t-1"), "links/statuses.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"url":"5xx"}`), 0644))

	mismatch, err := store.Verify("t-1")
	require.Error(t, err)
	require.Equal(t, "links/statuses.json", mismatch)
}
