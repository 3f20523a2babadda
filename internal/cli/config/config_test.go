package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("state", "", "")
	fs.StringP("output", "o", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.String("generator", "", "")
	return fs
}

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "leapark.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultGenerator, cfg.Generator)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.ManifestPath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "output: markdown\nstate_path: data/state.db\nunits: []\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, filepath.Join(dir, "data", "state.db"), cfg.StatePath, "relative to manifest")

	t.Setenv("LEAPARK_OUTPUT", "json")
	cfg, err = LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat, "env overrides file")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--output", "text", "--state", "/tmp/x.db"}))
	cfg, err = LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.OutputFormat, "flag overrides env")
	assert.Equal(t, "/tmp/x.db", cfg.StatePath)
}

func TestLoadConfig_UnsetFlagsDoNotOverride(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "generator: host\n")
	flags := newFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "host", cfg.Generator)
}

func TestLoadConfig_FindsManifestUpward(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "units: []\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(root, "leapark.yaml"))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(cfg.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfig_ManifestFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	fromEnv := writeManifest(t, t.TempDir(), "output: json\n")
	t.Setenv("LEAPARK_MANIFEST", fromEnv)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, fromEnv, cfg.ManifestPath)
	assert.Equal(t, "json", cfg.OutputFormat)

	explicit := writeManifest(t, t.TempDir(), "output: text\n")
	cfg, err = LoadConfig(explicit, nil)
	require.NoError(t, err)
	assert.Equal(t, explicit, cfg.ManifestPath, "explicit path wins over env")
	assert.Equal(t, "text", cfg.OutputFormat)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	path := writeManifest(t, t.TempDir(), "output: html\n")
	_, err = LoadConfig(path, nil)
	assert.ErrorContains(t, err, "invalid output format")

	path = writeManifest(t, t.TempDir(), "generator: unit\n")
	_, err = LoadConfig(path, nil)
	assert.ErrorContains(t, err, "invalid generator")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "fallback logger")

	logger := NewLogger(os.Stderr, true)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
