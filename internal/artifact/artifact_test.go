package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanRemovesPresentArtifacts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range Names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("stale"), 0644))
	}

	removed, err := Clean(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, Names, removed)

	for _, name := range Names {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), "%s should be gone", name)
	}
}

func TestCleanIgnoresAbsentArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proving.key"), []byte("stale"), 0644))

	removed, err := Clean(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"proving.key"}, removed)

	// Re-cleaning an already-clean directory is a no-op.
	removed, err = Clean(dir)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestCleanLeavesUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	circuit := filepath.Join(dir, "legalage.zok")
	require.NoError(t, os.WriteFile(circuit, []byte("def main() -> (): return"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out"), []byte("stale"), 0644))

	_, err := Clean(dir)
	require.NoError(t, err)

	_, err = os.Stat(circuit)
	assert.NoError(t, err, "circuit source must survive cleaning")
}

func TestDigestsSkipAbsentAndAreStable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out"), []byte("program"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abi.json"), []byte(`{"inputs":[]}`), 0644))

	first, err := Digests(dir)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Contains(t, first, "out")
	assert.Contains(t, first, "abi.json")
	assert.NotContains(t, first, "proving.key")

	second, err := Digests(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDigestsDifferPerContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out"), []byte("a"), 0644))
	a, err := Digests(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "out"), []byte("b"), 0644))
	b, err := Digests(dir)
	require.NoError(t, err)

	assert.NotEqual(t, a["out"], b["out"])
}
