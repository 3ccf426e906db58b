//go:build windows

package driver

import (
	"os"
	"os/exec"
	"os/signal"
	"sync"
)

// setupSignalForwarding catches os.Interrupt and kills the test command.
// The child shares adbrec's console, so it also sees Ctrl+C itself; the
// kill covers commands that ignore it. Windows has no SIGTERM, so Kill is
// the only lever.
//
// postStart must be called once child.Start has succeeded. An interrupt
// caught before then kills the command as soon as it is handed over.
func setupSignalForwarding(child *exec.Cmd) (postStart func(), cleanup func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	procCh := make(chan *os.Process, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var (
			proc        *os.Process
			interrupted bool
		)
		for {
			select {
			case <-done:
				return
			case proc = <-procCh:
				if interrupted {
					_ = proc.Kill()
				}
			case <-sigCh:
				if proc == nil {
					interrupted = true
					continue
				}
				_ = proc.Kill()
			}
		}
	}()

	var startOnce, cleanOnce sync.Once
	postStart = func() {
		startOnce.Do(func() { procCh <- child.Process })
	}
	cleanup = func() {
		cleanOnce.Do(func() {
			signal.Stop(sigCh)
			close(done)
			wg.Wait()
		})
	}
	return postStart, cleanup
}
