//go:build !windows

package driver

import (
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adbrec/adbrec/internal/platform"
)

// forwardedSignals are relayed from adbrec to the test command's group.
var forwardedSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// setupSignalForwarding starts child in its own process group and relays
// SIGINT, SIGTERM and SIGHUP to that group, so an interrupted run still
// returns to the caller and the recording is finished. Context
// cancellation terminates the group as well.
//
// postStart must be called once child.Start has succeeded; it hands the
// pid to the forwarder, which replays any signal caught before then.
// cleanup stops forwarding and terminates whatever is left of the group
// (SIGTERM, short grace, SIGKILL).
func setupSignalForwarding(child *exec.Cmd) (postStart func(), cleanup func()) {
	group := platform.NewProcessGroup()
	group.Prepare(child)
	child.Cancel = func() error {
		return group.Terminate(child.Process.Pid)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, forwardedSignals...)

	pidCh := make(chan int, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		forwardSignals(sigCh, pidCh, done, func(pid int, sig syscall.Signal) {
			_ = syscall.Kill(-pid, sig) // ESRCH if group already gone
		})
	}()

	var startOnce, cleanOnce sync.Once
	postStart = func() {
		startOnce.Do(func() { pidCh <- child.Process.Pid })
	}
	cleanup = func() {
		cleanOnce.Do(func() {
			signal.Stop(sigCh)
			close(done)
			wg.Wait()

			if child.Process == nil {
				return
			}
			_ = platform.KillGroup(child.Process.Pid, platform.DefaultKillGrace)
		})
	}
	return postStart, cleanup
}

// forwardSignals relays signals from sigCh to the group once its pid
// arrives on pidCh. Signals received earlier are held and sent, in order,
// as soon as the pid is known. It returns when done is closed.
func forwardSignals(sigCh <-chan os.Signal, pidCh <-chan int, done <-chan struct{}, send func(pid int, sig syscall.Signal)) {
	var (
		pid     int
		pending []syscall.Signal
	)
	for {
		select {
		case <-done:
			return
		case p := <-pidCh:
			pid = p
			for _, sig := range pending {
				send(pid, sig)
			}
			pending = nil
		case sig := <-sigCh:
			sysSig, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			if pid == 0 {
				pending = append(pending, sysSig)
				continue
			}
			send(pid, sysSig)
		}
	}
}
