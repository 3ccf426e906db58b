// Package session implements the recording-session state machine: it starts
// a detached screen recorder on the device, remembers whether any test
// failed, and on Finish stops the recorder, keeps or discards the video, and
// always removes the device's temporary file.
//
// A Session is driven from a single goroutine and is never reused after
// Finish. None of the recorder or device failures it meets are returned to
// the caller; each is logged and recorded in the Decision so a broken
// capture setup can never fail a test run.
package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adbrec/adbrec/internal/device"
	apperrors "github.com/adbrec/adbrec/internal/errors"
	"github.com/adbrec/adbrec/internal/logging"
)

const (
	// RemoteDir is the device directory holding the in-progress capture.
	RemoteDir = "/sdcard"

	// TempFilename is the fixed name of the in-progress capture.
	TempFilename = "adbrec-screen-record.mp4"

	// RemotePath is where the recorder writes on the device.
	RemotePath = RemoteDir + "/" + TempFilename

	// DefaultOutputDir receives saved videos when none is configured.
	DefaultOutputDir = "./videos"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the immutable configuration snapshot a Session runs with.
type Config struct {
	// OutputDir receives saved videos.
	OutputDir string

	// SaveAllVideos keeps the video even when every test passed.
	SaveAllVideos bool

	// Disabled turns the session into a no-op.
	Disabled bool

	// UseTimestamp prefixes saved filenames with the save time.
	UseTimestamp bool

	// VerboseLogs enables the session's own stderr logger. It has no effect
	// when a logger is supplied with WithLogger.
	VerboseLogs bool

	// CommandTimeout bounds each pull and remove. Zero means no limit.
	CommandTimeout time.Duration
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		OutputDir:    DefaultOutputDir,
		UseTimestamp: true,
	}
}

// FileSystem is the local filesystem surface a Session needs.
type FileSystem interface {
	Exists(path string) bool
	MkdirAll(path string) error
}

// OSFileSystem implements FileSystem on the real filesystem.
type OSFileSystem struct{}

// Exists reports whether path exists.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MkdirAll creates path and any missing parents.
func (OSFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Session is one recording of one test run.
type Session struct {
	cfg    Config
	device device.Device
	fs     FileSystem
	log    logrus.FieldLogger
	now    func() time.Time

	state          State
	hasFailedTests bool
	specLabel      string
	handle         device.Handle
	pid            int
	startErr       error
	decision       Decision
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostic logger. Without it the session logs to
// stderr when Config.VerboseLogs is set and discards everything otherwise.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFileSystem replaces the local filesystem.
func WithFileSystem(fs FileSystem) Option {
	return func(s *Session) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithClock sets the time source used for timestamped filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an idle Session. Unless disabled, it makes sure the output
// directory exists; failing to create it is only logged.
func New(cfg Config, dev device.Device, opts ...Option) *Session {
	s := &Session{
		cfg:       cfg,
		device:    dev,
		fs:        OSFileSystem{},
		now:       time.Now,
		state:     StateIdle,
		specLabel: UnknownLabel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.New(logging.Options{Component: "session", Verbose: cfg.VerboseLogs})
	}

	if s.cfg.Disabled {
		s.log.Info("Video recorder is disabled")
		return s
	}

	if err := s.ensureOutputDir(); err != nil {
		s.log.WithError(err).Warn("Failed to create output directory")
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// HasFailedTests reports whether MarkFailure was called.
func (s *Session) HasFailedTests() bool {
	return s.hasFailedTests
}

// SpecLabel returns the label used in the video filename.
func (s *Session) SpecLabel() string {
	return s.specLabel
}

// PID returns the recorder's local pid, or 0 when no recorder was started.
// It keeps reporting the pid after Finish so callers can log it.
func (s *Session) PID() int {
	return s.pid
}

// StartErr returns the spawn failure from Start, if any.
func (s *Session) StartErr() error {
	return s.startErr
}

// Config returns the configuration snapshot.
func (s *Session) Config() Config {
	return s.cfg
}

// Start begins recording for the spec at specPath. It never fails: if the
// recorder cannot be spawned the session still moves to recording, just
// without a live recorder, and Finish skips the stop step.
func (s *Session) Start(ctx context.Context, specPath string) {
	if s.cfg.Disabled {
		s.log.Debug("Skipping video recording - recorder is disabled")
		return
	}
	if s.state != StateIdle {
		s.log.WithField("state", s.state).Warn("Start ignored: session already started")
		return
	}

	s.specLabel = LabelFromSpec(specPath)
	s.log.WithField("spec", s.specLabel).Info("Starting screen record...")

	h, err := s.device.StartCapture(ctx, RemotePath)
	if err != nil {
		s.startErr = apperrors.Wrap(err, apperrors.ErrCodeSpawnFailed, "failed to start screen record")
		s.log.WithError(err).Error("Failed to start screen record process")
	} else {
		s.handle = h
		s.pid = h.PID()
		s.log.WithField("pid", s.pid).Debug("Screen record process started")
	}

	s.state = StateRecording
}

// MarkFailure records that a test failed. Calling it more than once has
// the same effect as calling it once.
func (s *Session) MarkFailure() {
	if s.cfg.Disabled {
		return
	}
	if s.state == StateStopped {
		s.log.Debug("MarkFailure ignored: session already finished")
		return
	}
	if !s.hasFailedTests {
		s.log.Debug("Test failure observed; video will be kept")
	}
	s.hasFailedTests = true
}

// Finish ends the session: it stops the recorder, saves the video when a
// test failed or SaveAllVideos is set, and always removes the device's
// temporary file. Every step runs regardless of earlier failures. Calling
// Finish again returns the first Decision without side effects.
func (s *Session) Finish(ctx context.Context) Decision {
	if s.state == StateStopped {
		s.log.Warn("Finish called on a finished session")
		return s.decision
	}
	if s.cfg.Disabled {
		s.log.Debug("Skipping video handling - recorder is disabled")
		s.state = StateStopped
		s.decision = Decision{Kind: Skipped}
		return s.decision
	}

	shouldSave := s.cfg.SaveAllVideos || s.hasFailedTests
	var dest string
	if shouldSave {
		dest = JoinOutput(s.cfg.OutputDir, Filename(s.specLabel, s.cfg.UseTimestamp, s.now()))
	}

	d := Decision{Kind: Discarded}
	d.Steps = append(d.Steps, s.stopRecorder())

	if shouldSave {
		d.Kind = Saved
		d.Path = dest
		steps := s.saveVideo(ctx, dest)
		d.Steps = append(d.Steps, steps...)
		last := steps[len(steps)-1]
		d.Retrieved = last.Step == StepRetrieve && last.Err == nil
	} else {
		s.log.Info("Video discarded")
	}

	d.Steps = append(d.Steps, s.cleanupTempFile(ctx))

	s.state = StateStopped
	s.decision = d
	return d
}

func (s *Session) stopRecorder() StepResult {
	if s.handle == nil {
		s.log.Debug("No screen record process to stop")
		return StepResult{Step: StepStop, Skipped: true}
	}

	h := s.handle
	s.handle = nil

	s.log.Info("Stopping screen record...")
	if err := h.Stop(); err != nil {
		err = apperrors.Wrap(err, apperrors.ErrCodeKillFailed, "failed to stop screen record").
			WithDetail("pid", h.PID())
		s.log.WithError(err).Error("Failed to kill screen record process")
		return StepResult{Step: StepStop, Err: err}
	}
	return StepResult{Step: StepStop}
}

// saveVideo returns the mkdir step (only when the directory had to be
// created) followed by the retrieve step, unless mkdir failed.
func (s *Session) saveVideo(ctx context.Context, dest string) []StepResult {
	var steps []StepResult

	if !s.fs.Exists(s.cfg.OutputDir) {
		err := s.ensureOutputDir()
		steps = append(steps, StepResult{Step: StepMkdir, Err: err})
		if err != nil {
			s.log.WithError(err).Error("Failed to create output directory")
			return steps
		}
	}

	ctx, cancel := s.commandContext(ctx)
	defer cancel()

	if err := s.device.Pull(ctx, RemotePath, dest); err != nil {
		err = apperrors.Wrap(err, apperrors.ErrCodeRetrieveFailed, "failed to pull video").
			WithDetail("path", dest)
		s.log.WithError(err).Error("Failed to pull video")
		return append(steps, StepResult{Step: StepRetrieve, Err: err})
	}

	s.log.WithField("path", dest).Info("Video saved")
	return append(steps, StepResult{Step: StepRetrieve})
}

func (s *Session) cleanupTempFile(ctx context.Context) StepResult {
	ctx, cancel := s.commandContext(ctx)
	defer cancel()

	if err := s.device.Remove(ctx, RemotePath); err != nil {
		err = apperrors.Wrap(err, apperrors.ErrCodeCleanupFailed, "failed to remove temporary recording").
			WithDetail("remotePath", RemotePath)
		s.log.WithError(err).Warn("Failed to cleanup temp file")
		return StepResult{Step: StepCleanup, Err: err}
	}
	return StepResult{Step: StepCleanup}
}

// ensureOutputDir creates the output directory when it is missing.
func (s *Session) ensureOutputDir() error {
	dir := s.cfg.OutputDir
	if dir == "" || s.fs.Exists(dir) {
		return nil
	}

	s.log.WithField("dir", dir).Info("Creating output directory")
	if err := s.fs.MkdirAll(dir); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDirCreateFailed, "failed to create output directory").
			WithDetail("dir", dir)
	}
	return nil
}

func (s *Session) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CommandTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.CommandTimeout)
	}
	return context.WithCancel(ctx)
}
