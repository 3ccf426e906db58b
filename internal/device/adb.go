package device

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
	"time"

	apperrors "github.com/adbrec/adbrec/internal/errors"
	"github.com/adbrec/adbrec/internal/platform"
)

const (
	// DefaultADBPath is the adb binary looked up on PATH.
	DefaultADBPath = "adb"

	// DefaultStopGrace is how long Stop waits for the recorder to exit after
	// SIGTERM before escalating to SIGKILL.
	DefaultStopGrace = 2 * time.Second

	// waitDelay bounds how long a blocking adb command may hold its output
	// pipes after being killed by a cancelled context.
	waitDelay = 2 * time.Second
)

// ADB drives a device through the adb command-line client.
type ADB struct {
	path      string
	stopGrace time.Duration
	executor  Executor
}

// ADBOption configures an ADB.
type ADBOption func(*ADB)

// WithPath sets the adb binary. Empty keeps the default.
func WithPath(path string) ADBOption {
	return func(a *ADB) {
		if path != "" {
			a.path = path
		}
	}
}

// WithStopGrace sets the SIGTERM→SIGKILL grace period for Stop.
func WithStopGrace(d time.Duration) ADBOption {
	return func(a *ADB) {
		if d > 0 {
			a.stopGrace = d
		}
	}
}

// WithExecutor replaces the command factory.
func WithExecutor(e Executor) ADBOption {
	return func(a *ADB) {
		if e != nil {
			a.executor = e
		}
	}
}

// NewADB returns an ADB backend.
func NewADB(opts ...ADBOption) *ADB {
	a := &ADB{
		path:      DefaultADBPath,
		stopGrace: DefaultStopGrace,
		executor:  &RealExecutor{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Path returns the adb binary in use.
func (a *ADB) Path() string {
	return a.path
}

// StartCapture runs `adb shell screenrecord <remotePath>` in its own process
// group with all stdio discarded. The process is reaped in the background;
// the caller only keeps the handle for Stop.
func (a *ADB) StartCapture(_ context.Context, remotePath string) (Handle, error) {
	args := []string{"shell", "screenrecord", remotePath}
	cmd := a.executor.Command(a.path, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	group := platform.NewProcessGroup()
	group.Prepare(cmd)

	if err := cmd.Start(); err != nil {
		return nil, apperrors.CommandFailed(a.argv(args), "", err)
	}

	r := &recorder{
		cmd:   cmd,
		group: group,
		grace: a.stopGrace,
		done:  make(chan struct{}),
	}
	go r.reap()
	return r, nil
}

// Pull runs `adb pull <remotePath> <localPath>`.
func (a *ADB) Pull(ctx context.Context, remotePath, localPath string) error {
	return a.run(ctx, "pull", remotePath, localPath)
}

// Remove runs `adb shell rm <remotePath>`.
func (a *ADB) Remove(ctx context.Context, remotePath string) error {
	return a.run(ctx, "shell", "rm", remotePath)
}

func (a *ADB) run(ctx context.Context, args ...string) error {
	cmd := a.executor.CommandContext(ctx, a.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		return apperrors.CommandFailed(a.argv(args), stderr.String(), err)
	}
	return nil
}

func (a *ADB) argv(args []string) []string {
	return append([]string{a.path}, args...)
}

// recorder is the Handle for a detached screenrecord process.
type recorder struct {
	cmd   *exec.Cmd
	group platform.ProcessGroup
	grace time.Duration
	done  chan struct{}

	stopOnce sync.Once
	stopErr  error
}

func (r *recorder) reap() {
	_ = r.cmd.Wait() // exit status of a signalled recorder is expected to be non-zero
	close(r.done)
}

// PID returns the recorder's pid, which is also its process group id.
func (r *recorder) PID() int {
	if r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// Stop terminates the recorder's group. A recorder that already exited is
// not an error.
func (r *recorder) Stop() error {
	r.stopOnce.Do(func() {
		r.stopErr = r.stop()
	})
	return r.stopErr
}

func (r *recorder) stop() error {
	select {
	case <-r.done:
		return nil
	default:
	}

	pid := r.PID()
	if err := r.group.Terminate(pid); err != nil {
		return err
	}

	timer := time.NewTimer(r.grace)
	defer timer.Stop()
	select {
	case <-r.done:
		return nil
	case <-timer.C:
	}

	// Escalate for survivors.
	if err := r.group.Kill(pid); err != nil {
		return err
	}

	select {
	case <-r.done:
	case <-time.After(r.grace):
	}
	return nil
}
