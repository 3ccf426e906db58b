package device

import (
	"context"
	"os/exec"
)

// Executor builds the adb invocations. Tests swap it to record argv or to
// point adb at a stand-in script.
type Executor interface {
	// Command returns an unstarted adb command, used for the long-running
	// screenrecord process.
	Command(name string, args ...string) *exec.Cmd

	// CommandContext returns an adb command killed when ctx ends, used for
	// pull and rm.
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor runs adb through os/exec.
type RealExecutor struct{}

func (e *RealExecutor) Command(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...) //nolint:gosec // adb path comes from configuration
}

func (e *RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...) //nolint:gosec // adb path comes from configuration
}
