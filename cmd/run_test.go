//go:build !windows

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adbrec/adbrec/internal/driver"
	"github.com/adbrec/adbrec/internal/session"
)

// fakeADB writes a shell script standing in for adb: screenrecord sleeps
// until signalled, pull writes a small file, everything else succeeds.
// Every invocation is appended to the returned log.
func fakeADB(t *testing.T) (adbPath, logPath string) {
	t.Helper()
	dir := t.TempDir()
	adbPath = filepath.Join(dir, "adb")
	logPath = filepath.Join(dir, "calls.log")

	script := `#!/bin/sh
echo "$*" >> '` + logPath + `'
case "$1 $2" in
  "shell screenrecord") exec sleep 30 ;;
esac
if [ "$1" = "pull" ]; then echo video > "$3"; fi
exit 0
`
	require.NoError(t, os.WriteFile(adbPath, []byte(script), 0755))
	return adbPath, logPath
}

func adbCalls(t *testing.T, logPath string) string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestRun_MissingSeparator(t *testing.T) {
	isolate(t)
	_, _, err := executeRoot(t, "run", "specs/a.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing '--' separator")
}

func TestRun_MissingCommand(t *testing.T) {
	isolate(t)
	_, _, err := executeRoot(t, "run", "specs/a.js", "--")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing command after '--'")
}

func TestRun_PassingCommandDiscardsVideo(t *testing.T) {
	dir := isolate(t)
	adb, calls := fakeADB(t)

	stdout, stderr, err := executeRoot(t, "run", "--adb", adb, "--stop-grace", "1s",
		"--spec", "specs/checkout.js", "--", "sh", "-c", "echo ran")
	require.NoError(t, err)

	assert.Equal(t, "ran\n", stdout)
	assert.Contains(t, stderr, "no failing tests, video discarded")

	log := adbCalls(t, calls)
	assert.Contains(t, log, "shell screenrecord "+session.RemotePath)
	assert.Contains(t, log, "shell rm "+session.RemotePath)
	assert.NotContains(t, log, "pull")
	assert.DirExists(t, filepath.Join(dir, "videos"))
}

func TestRun_FailingCommandSavesVideo(t *testing.T) {
	dir := isolate(t)
	adb, calls := fakeADB(t)
	out := filepath.Join(dir, "out")

	_, stderr, err := executeRoot(t, "run", "--adb", adb, "--stop-grace", "1s",
		"--output-dir", out, "--timestamp=false",
		"specs/checkout.js", "--", "sh", "-c", "exit 3")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)

	want := out + "/checkout.mp4"
	assert.Contains(t, stderr, "video saved: "+want)
	assert.FileExists(t, want)

	log := adbCalls(t, calls)
	assert.Less(t, strings.Index(log, "pull"), strings.Index(log, "shell rm"), "pull happens before cleanup")
}

func TestRun_Disabled(t *testing.T) {
	isolate(t)
	adb, calls := fakeADB(t)

	_, stderr, err := executeRoot(t, "run", "--adb", adb, "--disabled", "--", "sh", "-c", "exit 0")
	require.NoError(t, err)

	assert.Contains(t, stderr, "recording disabled")
	assert.Empty(t, adbCalls(t, calls), "adb must not be invoked when disabled")
}

func TestRun_DisabledByEnv(t *testing.T) {
	isolate(t)
	adb, calls := fakeADB(t)
	t.Setenv("ADB_VIDEO", "false")

	_, stderr, err := executeRoot(t, "run", "--adb", adb, "--", "sh", "-c", "exit 0")
	require.NoError(t, err)
	assert.Contains(t, stderr, "recording disabled")
	assert.Empty(t, adbCalls(t, calls))
}

func TestRun_CommandNotFound(t *testing.T) {
	isolate(t)
	adb, calls := fakeADB(t)

	_, stderr, err := executeRoot(t, "run", "--adb", adb, "--stop-grace", "1s",
		"--", "adbrec-definitely-not-a-command")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 127, exitErr.Code)
	assert.Contains(t, stderr, "COMMAND_FAILED")
	assert.Contains(t, adbCalls(t, calls), "shell rm", "cleanup still runs")
}

func TestRun_MissingADBDoesNotFailRun(t *testing.T) {
	isolate(t)
	missing := filepath.Join(t.TempDir(), "no-adb")

	_, stderr, err := executeRoot(t, "run", "--adb", missing, "--", "sh", "-c", "exit 0")
	require.NoError(t, err, "a broken recorder must not fail the test run")
	assert.Contains(t, stderr, "video discarded")
	assert.Contains(t, stderr, "warning: cleanup")
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name string
		res  driver.Result
		want string
	}{
		{
			name: "skipped",
			res:  driver.Result{Decision: session.Decision{Kind: session.Skipped}},
			want: "adbrec: recording disabled\n",
		},
		{
			name: "discarded",
			res:  driver.Result{Decision: session.Decision{Kind: session.Discarded}},
			want: "adbrec: no failing tests, video discarded\n",
		},
		{
			name: "saved",
			res:  driver.Result{Decision: session.Decision{Kind: session.Saved, Path: "./videos/a.mp4", Retrieved: true}},
			want: "adbrec: video saved: ./videos/a.mp4\n",
		},
		{
			name: "save failed",
			res: driver.Result{Decision: session.Decision{
				Kind:  session.Saved,
				Path:  "./videos/a.mp4",
				Steps: []session.StepResult{{Step: session.StepRetrieve, Err: assert.AnError}},
			}},
			want: "adbrec: warning: video could not be saved to ./videos/a.mp4\n" +
				"adbrec: warning: retrieve: " + assert.AnError.Error() + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printSummary(&buf, &tt.res)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
