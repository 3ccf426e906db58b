package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "clean", "config"})
}

func TestRoot_Version(t *testing.T) {
	stdout, _, err := executeRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "adbrec version dev")
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 3}
	assert.Equal(t, "test command exited with code 3", err.Error())
}

func TestLoadConfig_FlagsOverrideFileAndEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, ".adbrec.yaml", "output_dir: from-file\nsave_all_videos: false\n")
	t.Setenv("ADBREC_OUTPUT_DIR", "from-env")

	root := newRootCmd()
	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, run.ParseFlags([]string{"--save-all", "--timestamp=false", "--command-timeout=5s"}))

	cfg, path, err := loadConfig(run)
	require.NoError(t, err)
	assert.Contains(t, path, ".adbrec.yaml")
	assert.Equal(t, "from-env", cfg.OutputDir, "env overrides file when the flag is unset")
	assert.True(t, cfg.SaveAllVideos)
	assert.False(t, cfg.UseTimestamp())
	assert.Equal(t, "5s", cfg.ADB.CommandTimeout)
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, _, err := executeRoot(t, "config", "--config", "nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG_NOT_FOUND")
}

func TestNewLogger_InvalidFlags(t *testing.T) {
	isolate(t)

	_, _, err := executeRoot(t, "clean", "--color", "rainbow", "--adb", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid color mode")

	_, _, err = executeRoot(t, "clean", "--log-format", "xml", "--adb", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}
