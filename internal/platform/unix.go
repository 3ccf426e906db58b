//go:build !windows

package platform

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// unixGroup implements ProcessGroup with POSIX process groups. The child is
// started with Setpgid so its pid doubles as the group id, and signals are
// delivered to -pid.
type unixGroup struct{}

func newProcessGroup() ProcessGroup {
	return unixGroup{}
}

// Name returns "unix".
func Name() string {
	return "unix"
}

// Prepare sets Setpgid so the child and its descendants get their own group.
func (unixGroup) Prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// Terminate sends SIGTERM to the group.
func (unixGroup) Terminate(pid int) error {
	return signalGroup(pid, unix.SIGTERM)
}

// Kill sends SIGKILL to the group.
func (unixGroup) Kill(pid int) error {
	return signalGroup(pid, unix.SIGKILL)
}

func signalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	err := unix.Kill(-pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil // group already gone
	}
	if err != nil {
		return fmt.Errorf("failed to send %v to process group %d: %w", sig, pid, err)
	}
	return nil
}

// alive uses signal 0: nil means the process exists and we may signal it,
// EPERM means it exists but belongs to someone else.
func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func groupAlive(pgid int) bool {
	if pgid <= 0 {
		return false
	}
	err := unix.Kill(-pgid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
