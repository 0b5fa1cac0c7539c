package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zokbuild/zokbuild/internal/config"
)

func TestRootRejectsInvalidFormat(t *testing.T) {
	clearEnv(t)

	_, _, err := execute(t, "--format", "toml", "clean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "toml"`)
}

func TestRootListsCommands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{
		"build", "clean", "history",
		"check", "compile", "setup", "export-verifier",
		"compute-witness", "generate-proof",
	} {
		assert.Contains(t, names, want)
	}
}

func TestResolveConfigFlagBeatsEnv(t *testing.T) {
	t.Setenv(config.EnvBin, "/from/env/zokrates")
	t.Setenv(config.EnvHome, "")

	opts := &RootOptions{Bin: "/from/flag/zokrates"}
	cfg, err := opts.resolveConfig()
	require.NoError(t, err)

	assert.Equal(t, "/from/flag/zokrates", cfg.Bin)
	assert.Equal(t, config.DefaultHome, cfg.Home)
}

func TestResolveConfigDefaults(t *testing.T) {
	clearEnv(t)

	opts := &RootOptions{}
	cfg, err := opts.resolveConfig()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBin, cfg.Bin)
	assert.Equal(t, config.DefaultHome, cfg.Home)
	assert.Equal(t, "legalage.zok", cfg.Circuit)
	assert.Equal(t, "log", cfg.LogFile)
}
