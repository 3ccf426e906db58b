//go:build !windows

package cmd

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adbrec/adbrec/internal/platform"
	"github.com/adbrec/adbrec/internal/session"
	"github.com/adbrec/adbrec/internal/state"
)

// startOrphan starts a process in its own group, standing in for a
// recorder whose adbrec parent died.
func startOrphan(t *testing.T) (*exec.Cmd, <-chan error) {
	t.Helper()
	orphan := exec.Command("sleep", "30")
	platform.NewProcessGroup().Prepare(orphan)
	require.NoError(t, orphan.Start())

	done := make(chan error, 1)
	go func() { done <- orphan.Wait() }()
	t.Cleanup(func() { _ = platform.NewProcessGroup().Kill(orphan.Process.Pid) })
	return orphan, done
}

func TestClean_NoStateFileStillRemovesTempFile(t *testing.T) {
	isolate(t)
	adb, calls := fakeADB(t)

	_, stderr, err := executeRoot(t, "clean", "--adb", adb)
	require.NoError(t, err)

	assert.Contains(t, adbCalls(t, calls), "shell rm "+session.RemotePath)
	assert.Contains(t, stderr, "removed "+session.RemotePath)
}

func TestClean_StopsOrphanedRecorder(t *testing.T) {
	dir := isolate(t)
	adb, calls := fakeADB(t)
	orphan, done := startOrphan(t)

	statePath := state.FilePath(dir)
	st := state.New(orphan.Process.Pid, "/sdcard/custom.mp4", "checkout", "./videos")
	require.NoError(t, state.Write(statePath, st))

	_, stderr, err := executeRoot(t, "clean", "--adb", adb)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("orphaned recorder was not stopped")
	}
	assert.Contains(t, stderr, "stopped orphaned recorder")
	assert.Contains(t, adbCalls(t, calls), "shell rm /sdcard/custom.mp4", "remote path comes from the state file")

	_, statErr := os.Stat(statePath)
	assert.True(t, os.IsNotExist(statErr), "state file should be deleted")
}

func TestClean_OldStateDoesNotKill(t *testing.T) {
	dir := isolate(t)
	adb, _ := fakeADB(t)
	orphan, _ := startOrphan(t)

	st := state.New(orphan.Process.Pid, session.RemotePath, "checkout", "./videos")
	st.StartedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, state.Write(state.FilePath(dir), st))

	_, stderr, err := executeRoot(t, "clean", "--adb", adb)
	require.NoError(t, err)

	assert.Contains(t, stderr, "not stopping pid")
	assert.True(t, platform.Alive(orphan.Process.Pid))
}

func TestClean_DeadRecorder(t *testing.T) {
	dir := isolate(t)
	adb, calls := fakeADB(t)

	gone := exec.Command("true")
	require.NoError(t, gone.Run())
	require.NoError(t, state.Write(state.FilePath(dir),
		state.New(gone.Process.Pid, session.RemotePath, "x", "./videos")))

	_, stderr, err := executeRoot(t, "clean", "--adb", adb)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "stopped orphaned recorder")
	assert.Contains(t, adbCalls(t, calls), "shell rm")
}

func TestClean_CorruptStateFile(t *testing.T) {
	dir := isolate(t)
	adb, _ := fakeADB(t)
	statePath := state.FilePath(dir)
	require.NoError(t, os.WriteFile(statePath, []byte("{garbage"), 0600))

	_, stderr, err := executeRoot(t, "clean", "--adb", adb)
	require.NoError(t, err)
	assert.Contains(t, stderr, "ignoring unreadable state file")

	_, statErr := os.Stat(statePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClean_Idempotent(t *testing.T) {
	isolate(t)
	adb, _ := fakeADB(t)

	_, _, err := executeRoot(t, "clean", "--adb", adb)
	require.NoError(t, err)
	_, _, err = executeRoot(t, "clean", "--adb", adb)
	require.NoError(t, err)
}
