//go:build windows

package platform

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// stillActive is the exit code GetExitCodeProcess reports for a running
// process (STILL_ACTIVE).
const stillActive = 259

// windowsGroup implements ProcessGroup on Windows. The recorder is started
// with CREATE_NEW_PROCESS_GROUP so console Ctrl+C events aimed at adbrec do
// not reach it; stopping it terminates the process directly.
type windowsGroup struct{}

func newProcessGroup() ProcessGroup {
	return windowsGroup{}
}

// Name returns "windows".
func Name() string {
	return "windows"
}

// Prepare adds CREATE_NEW_PROCESS_GROUP to the creation flags.
func (windowsGroup) Prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

// Terminate ends the process. Windows has no SIGTERM for console
// processes outside our console group, so this is the same as Kill.
func (g windowsGroup) Terminate(pid int) error {
	return g.Kill(pid)
}

// Kill calls TerminateProcess on pid.
func (windowsGroup) Kill(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return nil // process already gone
		}
		return fmt.Errorf("OpenProcess(%d) failed: %w", pid, err)
	}
	defer func() { _ = windows.CloseHandle(h) }()

	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("TerminateProcess(%d) failed: %w", pid, err)
	}
	return nil
}

func alive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer func() { _ = windows.CloseHandle(h) }()

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}

func groupAlive(pid int) bool {
	return alive(pid)
}
