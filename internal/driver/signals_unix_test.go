//go:build !windows

package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adbrec/adbrec/internal/platform"
)

func TestSetupSignalForwarding_StartsOwnGroup(t *testing.T) {
	child := exec.CommandContext(context.Background(), "true")
	postStart, cleanup := setupSignalForwarding(child)

	require.NotNil(t, child.SysProcAttr)
	assert.True(t, child.SysProcAttr.Setpgid)
	assert.NotNil(t, child.Cancel)

	require.NoError(t, child.Start())
	postStart()
	require.NoError(t, child.Wait())
	cleanup()
	cleanup()
}

func TestSetupSignalForwarding_CleanupKillsLeftovers(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "bg.pid")
	child := exec.CommandContext(context.Background(), "sh", "-c", `sleep 30 & echo $! > "$1"`, "sh", pidFile)
	postStart, cleanup := setupSignalForwarding(child)

	require.NoError(t, child.Start())
	postStart()
	require.NoError(t, child.Wait())

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	bg, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	require.True(t, platform.Alive(bg), "background process should outlive its parent")

	cleanup()

	assert.Eventually(t, func() bool { return !running(bg) },
		5*time.Second, 20*time.Millisecond, "leftover %d survived cleanup", bg)
}

func TestSetupSignalForwarding_RelaysSignal(t *testing.T) {
	child := exec.CommandContext(context.Background(), "sleep", "30")
	postStart, cleanup := setupSignalForwarding(child)
	defer cleanup()

	require.NoError(t, child.Start())
	postStart()
	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	// The forwarder is registered for SIGHUP, so this does not kill the test.
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))

	select {
	case err := <-done:
		assert.Equal(t, 128+int(syscall.SIGHUP), ExitCodeFromError(err))
	case <-time.After(5 * time.Second):
		_ = child.Process.Kill()
		t.Fatal("signal was not forwarded to the test command")
	}
}

func TestSetupSignalForwarding_ReplaysSignalCaughtBeforeStart(t *testing.T) {
	child := exec.CommandContext(context.Background(), "sleep", "30")
	postStart, cleanup := setupSignalForwarding(child)
	defer cleanup()

	// Caught by the forwarder while there is no child yet.
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, child.Start())
	postStart()
	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	select {
	case err := <-done:
		assert.Equal(t, 128+int(syscall.SIGHUP), ExitCodeFromError(err))
	case <-time.After(5 * time.Second):
		_ = child.Process.Kill()
		t.Fatal("signal caught before start was not replayed")
	}
}

type sentSignal struct {
	pid int
	sig syscall.Signal
}

func TestForwardSignals(t *testing.T) {
	sigCh := make(chan os.Signal)
	pidCh := make(chan int)
	done := make(chan struct{})
	sent := make(chan sentSignal, 4)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		forwardSignals(sigCh, pidCh, done, func(pid int, sig syscall.Signal) {
			sent <- sentSignal{pid, sig}
		})
	}()

	sigCh <- syscall.SIGINT
	sigCh <- syscall.SIGTERM
	assert.Empty(t, sent, "nothing is sent before the pid is known")

	pidCh <- 321
	sigCh <- syscall.SIGHUP
	close(done)
	<-finished

	require.Len(t, sent, 3)
	assert.Equal(t, sentSignal{321, syscall.SIGINT}, <-sent)
	assert.Equal(t, sentSignal{321, syscall.SIGTERM}, <-sent)
	assert.Equal(t, sentSignal{321, syscall.SIGHUP}, <-sent)
}

// running is Alive minus zombies: where /proc is available a process in
// state Z counts as stopped, since nothing may be reaping orphans.
func running(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return platform.Alive(pid)
	}
	stat := string(data)
	idx := strings.LastIndexByte(stat, ')')
	if idx < 0 || idx+2 >= len(stat) {
		return platform.Alive(pid)
	}
	return stat[idx+2] != 'Z'
}
