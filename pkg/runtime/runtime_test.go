package runtime_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mindburn-Labs/verigate/pkg/runtime"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, adapterDir, name string, manifestJSON string) {
	t.Helper()
	dir := filepath.Join(adapterDir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifestJSON), 0o644))
}

func TestBuildIndex_ResolvesCapability(t *testing.T) {
	adapterDir := t.TempDir()
	writeManifest(t, adapterDir, "code", `{
		"name": "code",
		"version": "1.0.0",
		"entry": "run.sh",
		"capabilities": ["code:diff", "code:lint"],
		"sandbox": {"timeout_s": 30, "network": false}
	}`)

	idx, err := runtime.BuildIndex(adapterDir)
	require.NoError(t, err)

	m, ok := idx.Resolve("code:diff")
	require.True(t, ok)
	require.Equal(t, "code", m.Name)
	require.Equal(t, filepath.Join(adapterDir, "code", "run.sh"), m.EntryPath())

	_, ok = idx.Resolve("link:check")
	require.False(t, ok)
}

func TestBuildIndex_DuplicateCapabilityIsError(t *testing.T) {
	adapterDir := t.TempDir()
	writeManifest(t, adapterDir, "a", `{"name":"a","entry":"a.sh","capabilities":["code:diff"],"sandbox":{"timeout_s":10}}`)
	writeManifest(t, adapterDir, "b", `{"name":"b","entry":"b.sh","capabilities":["code:diff"],"sandbox":{"timeout_s":10}}`)

	_, err := runtime.BuildIndex(adapterDir)
	require.Error(t, err)
}

func TestBuildIndex_MissingDirIsNotAnError(t *testing.T) {
	idx, err := runtime.BuildIndex(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	_, ok := idx.Resolve("code:diff")
	require.False(t, ok)
}

func TestInvoke_UnknownCapability(t *testing.T) {
	idx, err := runtime.BuildIndex(t.TempDir())
	require.NoError(t, err)

	_, err = idx.Invoke(context.Background(), "code:diff", runtime.InvokeOptions{})
	require.Error(t, err)
}
