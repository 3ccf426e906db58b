// Package device defines the command channel to the device whose screen is
// being recorded. The recording session depends only on the Device and
// Handle interfaces; ADB is the production backend and devicetest provides
// a call-recording fake.
package device

import "context"

// Device is the remote command channel a recording session drives.
type Device interface {
	// StartCapture begins an asynchronous screen capture into remotePath and
	// returns as soon as the recorder is running. The recorder is not bound
	// to ctx; it lives until Handle.Stop.
	StartCapture(ctx context.Context, remotePath string) (Handle, error)

	// Pull copies remotePath on the device to localPath, blocking until the
	// transfer completes or fails.
	Pull(ctx context.Context, remotePath, localPath string) error

	// Remove deletes remotePath on the device.
	Remove(ctx context.Context, remotePath string) error
}

// Handle is a running recorder started by StartCapture.
type Handle interface {
	// PID returns the local process id of the recorder, or 0 if unknown.
	PID() int

	// Stop terminates the recorder and everything it spawned. It is safe to
	// call more than once; only the first call signals.
	Stop() error
}
