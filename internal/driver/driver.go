// Package driver runs a test command under a recording session: it starts
// the recorder, runs the command, turns every observed test failure into a
// session failure notification, and finishes the session exactly once no
// matter how the command ended.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/adbrec/adbrec/internal/errors"
	"github.com/adbrec/adbrec/internal/logging"
	"github.com/adbrec/adbrec/internal/session"
	"github.com/adbrec/adbrec/internal/state"
)

// childWaitDelay bounds how long Wait keeps copying output after the test
// command exits or is cancelled.
const childWaitDelay = 5 * time.Second

// Options configures Run.
type Options struct {
	// Command is the test command and its arguments.
	Command []string

	// Specs lists the spec files under test. The first names the video.
	Specs []string

	// JUnitPath is a JUnit XML report read after the command exits.
	JUnitPath string

	// GoTestJSON parses the command's stdout as `go test -json` events.
	GoTestJSON bool

	// StatePath is where the session state file is written while the
	// recorder runs. Empty disables it.
	StatePath string

	// Env is the command's base environment. Defaults to os.Environ().
	Env []string

	// Dir is the command's working directory.
	Dir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Log logrus.FieldLogger
}

// Result describes a completed run.
type Result struct {
	SessionID string
	ExitCode  int
	Decision  session.Decision
	Failures  []Failure
}

// Failed reports whether any test failure was observed.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Run drives one test run against sess. The returned error is non-nil only
// when the command could not be started or its output could not be read;
// a Result is returned in every case, and sess is always finished.
func Run(ctx context.Context, sess *session.Session, opts Options) (*Result, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("missing test command")
	}

	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	stdout := writerOr(opts.Stdout, os.Stdout)
	stderr := writerOr(opts.Stderr, os.Stderr)
	env := opts.Env
	if env == nil {
		env = os.Environ()
	}

	res := &Result{SessionID: uuid.NewString()}
	log = log.WithField("session", res.SessionID)

	fail := func(f Failure) {
		res.Failures = append(res.Failures, f)
		log.WithField("test", f.Name).Debug("Test failed")
		sess.MarkFailure()
	}

	var spec string
	if len(opts.Specs) > 0 {
		spec = opts.Specs[0]
	}

	sess.Start(ctx, spec)
	stopState := writeState(sess, opts.StatePath, res.SessionID, log)

	// finish runs exactly once, after the command and its reports are done.
	// It ignores cancellation of ctx so an interrupted run still saves and
	// cleans up.
	finish := func() {
		res.Decision = sess.Finish(context.WithoutCancel(ctx))
		stopState()
	}

	child := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...) //nolint:gosec // user-specified command
	child.Env = BuildChildEnv(env, res.SessionID, spec, sess.Config().OutputDir)
	child.Dir = opts.Dir
	child.Stdin = opts.Stdin
	child.Stderr = stderr
	child.WaitDelay = childWaitDelay

	var pipe io.ReadCloser
	if opts.GoTestJSON {
		p, err := child.StdoutPipe()
		if err != nil {
			finish()
			return res, fmt.Errorf("failed to open test output: %w", err)
		}
		pipe = p
	} else {
		child.Stdout = stdout
	}

	postStart, cleanupSignals := setupSignalForwarding(child)

	log.WithField("command", opts.Command).Debug("Starting test command")
	if err := child.Start(); err != nil {
		cleanupSignals()
		res.ExitCode = ExitCodeForStartError(err)
		fail(Failure{Source: SourceExit, Name: "exit " + strconv.Itoa(res.ExitCode)})
		finish()
		return res, apperrors.CommandFailed(opts.Command, "", err)
	}
	postStart()

	var scanErr error
	if pipe != nil {
		scanErr = newGoTestScanner(stdout, fail).Scan(pipe)
		if scanErr != nil {
			// Keep the command from blocking on a full pipe.
			_, _ = io.Copy(io.Discard, pipe)
		}
	}

	waitErr := child.Wait()
	cleanupSignals()

	res.ExitCode = ExitCodeFromError(waitErr)
	log.WithField("exitCode", res.ExitCode).Debug("Test command exited")

	if opts.JUnitPath != "" {
		readJUnit(opts.JUnitPath, fail, log)
	}
	if res.ExitCode != 0 && !res.Failed() {
		fail(Failure{Source: SourceExit, Name: "exit " + strconv.Itoa(res.ExitCode)})
	}

	finish()

	if scanErr != nil {
		return res, fmt.Errorf("failed to read test output: %w", scanErr)
	}
	return res, nil
}

// readJUnit reports failures from the JUnit file at path. A missing or
// malformed report is only logged; the exit code still counts.
func readJUnit(path string, fail func(Failure), log logrus.FieldLogger) {
	failures, err := ParseJUnitFile(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("Could not read JUnit report")
		return
	}
	for _, f := range failures {
		fail(f)
	}
}

// writeState records the live recorder in the state file and returns a
// function that removes it again.
func writeState(sess *session.Session, path, sessionID string, log logrus.FieldLogger) func() {
	if path == "" || sess.PID() == 0 {
		return func() {}
	}

	st := state.New(sess.PID(), session.RemotePath, sess.SpecLabel(), sess.Config().OutputDir)
	st.SessionID = sessionID
	if err := state.Write(path, st); err != nil {
		log.WithError(err).Warn("Failed to write session state")
		return func() {}
	}

	return func() {
		if err := state.Delete(path); err != nil {
			log.WithError(err).Warn("Failed to delete session state")
		}
	}
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
