package driver

import (
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"
)

// ExitCodeFromError extracts the exit code from an exec.Cmd.Wait() error.
//
// Returns:
//   - 0 if err is nil (child exited successfully)
//   - The child's exit code if it exited normally with non-zero status
//   - 128+signum if the child was killed by a signal (POSIX convention)
//   - 1 for any other error
func ExitCodeFromError(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ws.ExitStatus()
	}

	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

// ExitCodeForStartError returns the conventional exit code for a process
// start failure: 127 for "not found", 126 for "not executable".
func ExitCodeForStartError(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return 127
	case errors.Is(err, fs.ErrPermission):
		return 126
	}

	msg := err.Error()
	if strings.Contains(msg, "not found") || strings.Contains(msg, "no such file") {
		return 127
	}
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "not executable") {
		return 126
	}
	return 1
}
