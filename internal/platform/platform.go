// Package platform isolates the OS-specific parts of running a detached
// recorder process: starting it outside the caller's process group and
// signalling the whole group later by pid. Concrete implementations are
// selected at compile time via Go build tags.
package platform

import (
	"os/exec"
	"time"
)

// DefaultKillGrace is how long KillGroup waits after the polite signal
// before escalating.
const DefaultKillGrace = 100 * time.Millisecond

// ProcessGroup manages the process group of one spawned process.
type ProcessGroup interface {
	// Prepare configures cmd to start in a new process group. It must be
	// called before cmd.Start.
	Prepare(cmd *exec.Cmd)

	// Terminate asks every process in the group led by pid to exit
	// (SIGTERM on Unix). A group that no longer exists is not an error.
	Terminate(pid int) error

	// Kill forcibly stops every process in the group led by pid.
	Kill(pid int) error
}

// NewProcessGroup returns the ProcessGroup for the current OS.
func NewProcessGroup() ProcessGroup {
	return newProcessGroup()
}

// Alive reports whether a process with the given pid is still running.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return alive(pid)
}

// KillGroup terminates the group led by pid, waits up to grace for it to
// go away, then kills any survivors. Used for recorders whose owning
// adbrec process is gone.
func KillGroup(pid int, grace time.Duration) error {
	g := NewProcessGroup()
	if err := g.Terminate(pid); err != nil {
		return err
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !groupAlive(pid) {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return g.Kill(pid)
}
