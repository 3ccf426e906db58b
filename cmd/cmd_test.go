package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeRoot runs a fresh command tree with args and returns its stdout,
// stderr and error.
func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// chdir switches into dir for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// isolate gives the test its own working directory and device serial, so
// config discovery and state files never leak between tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("ANDROID_SERIAL", "test-"+filepath.Base(dir))
	for _, key := range []string{"ADB_VIDEO", "ADBREC_OUTPUT_DIR", "ADBREC_SAVE_ALL", "ADBREC_LOGS"} {
		t.Setenv(key, "")
	}
	return dir
}
