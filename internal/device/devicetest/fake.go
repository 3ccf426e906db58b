// Package devicetest provides test doubles for the device package.
package devicetest

import (
	"context"
	"strconv"
	"strings"

	"github.com/adbrec/adbrec/internal/device"
)

// FakeDevice is a configurable test double implementing device.Device.
// Test authors set the function fields to control behavior per test case.
// Handles returned by the default StartCapture log their Stop calls into
// the same Calls slice, so the relative order of stop, pull and remove can
// be asserted.
type FakeDevice struct {
	// StartCaptureFunc overrides StartCapture. If nil, returns a FakeHandle.
	StartCaptureFunc func(ctx context.Context, remotePath string) (device.Handle, error)

	// PullFunc overrides Pull. If nil, Pull succeeds without touching disk.
	PullFunc func(ctx context.Context, remotePath, localPath string) error

	// RemoveFunc overrides Remove. If nil, Remove succeeds.
	RemoveFunc func(ctx context.Context, remotePath string) error

	// StopErr is returned by the default handle's Stop.
	StopErr error

	// PIDValue is the pid reported by the default handle. Default: 4242.
	PIDValue int

	// Calls tracks method invocations for assertion.
	Calls []Call
}

// Call records a single method invocation on FakeDevice or one of its handles.
type Call struct {
	Method string
	Args   []string
}

// NewFakeDevice returns a FakeDevice with sensible defaults.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{PIDValue: 4242}
}

// StartCapture records the call and returns a FakeHandle or delegates to
// StartCaptureFunc.
func (f *FakeDevice) StartCapture(ctx context.Context, remotePath string) (device.Handle, error) {
	f.Calls = append(f.Calls, Call{Method: "StartCapture", Args: []string{remotePath}})
	if f.StartCaptureFunc != nil {
		return f.StartCaptureFunc(ctx, remotePath)
	}
	return &FakeHandle{dev: f, pid: f.PIDValue, err: f.StopErr}, nil
}

// Pull records the call or delegates to PullFunc.
func (f *FakeDevice) Pull(ctx context.Context, remotePath, localPath string) error {
	f.Calls = append(f.Calls, Call{Method: "Pull", Args: []string{remotePath, localPath}})
	if f.PullFunc != nil {
		return f.PullFunc(ctx, remotePath, localPath)
	}
	return nil
}

// Remove records the call or delegates to RemoveFunc.
func (f *FakeDevice) Remove(ctx context.Context, remotePath string) error {
	f.Calls = append(f.Calls, Call{Method: "Remove", Args: []string{remotePath}})
	if f.RemoveFunc != nil {
		return f.RemoveFunc(ctx, remotePath)
	}
	return nil
}

// CallCount returns the number of times a method was called.
func (f *FakeDevice) CallCount(method string) int {
	count := 0
	for _, c := range f.Calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// CalledWith returns true if the method was called with the given args (substring match).
func (f *FakeDevice) CalledWith(method string, args ...string) bool {
	for _, c := range f.Calls {
		if c.Method != method {
			continue
		}
		if len(args) > len(c.Args) {
			continue
		}
		match := true
		for i, a := range args {
			if !strings.Contains(c.Args[i], a) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Methods returns the invoked method names in call order.
func (f *FakeDevice) Methods() []string {
	methods := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		methods[i] = c.Method
	}
	return methods
}

// IndexOf returns the position of the first call to method, or -1.
func (f *FakeDevice) IndexOf(method string) int {
	for i, c := range f.Calls {
		if c.Method == method {
			return i
		}
	}
	return -1
}

// FakeHandle is the device.Handle returned by FakeDevice.StartCapture.
type FakeHandle struct {
	dev *FakeDevice
	pid int
	err error
}

// NewFakeHandle returns a handle that logs its Stop calls into dev.
func NewFakeHandle(dev *FakeDevice, pid int, stopErr error) *FakeHandle {
	return &FakeHandle{dev: dev, pid: pid, err: stopErr}
}

// PID returns the configured pid.
func (h *FakeHandle) PID() int {
	return h.pid
}

// Stop records the call and returns the configured error.
func (h *FakeHandle) Stop() error {
	if h.dev != nil {
		h.dev.Calls = append(h.dev.Calls, Call{Method: "Stop", Args: []string{strconv.Itoa(h.pid)}})
	}
	return h.err
}

// Verify compile-time interface compliance.
var (
	_ device.Device = (*FakeDevice)(nil)
	_ device.Handle = (*FakeHandle)(nil)
)
