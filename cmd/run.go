package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adbrec/adbrec/internal/device"
	"github.com/adbrec/adbrec/internal/driver"
	"github.com/adbrec/adbrec/internal/session"
	"github.com/adbrec/adbrec/internal/state"
)

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run [flags] [spec...] -- <command> [args...]",
		Short: "Run a test command while recording the device screen",
		Long: `Run a test command while recording the device screen.

The first spec names the video. Specs may be given before '--' or with
--spec. A test counts as failed when the command exits non-zero, when a
--junit report lists a failure or error, or when --go-test-json sees a
failing test. The video is kept when any test failed or --save-all is set.

Exit codes:
  0     Test command exited 0
  N     Test command's exit code
  126   Test command found but not executable
  127   Test command not found
  128+N Test command killed by signal N (e.g., 130 = SIGINT)

Examples:
  adbrec run --spec specs/checkout.js -- npx wdio run wdio.conf.ts
  adbrec run specs/login.js -- ./run-e2e.sh specs/login.js
  adbrec run --junit report.xml --save-all -- mvn verify`,
		RunE: runRun,
	}

	f := c.Flags()
	f.StringArray("spec", nil, "Spec file under test (repeatable; the first names the video)")
	f.String("output-dir", session.DefaultOutputDir, "Directory for saved videos")
	f.Bool("save-all", false, "Keep the video even when every test passed")
	f.Bool("disabled", false, "Run the command without recording")
	f.Bool("timestamp", true, "Prefix saved filenames with a UTC timestamp")
	f.String("junit", "", "JUnit XML report to read failures from after the command exits")
	f.Bool("go-test-json", false, "Parse the command's stdout as 'go test -json' output")
	f.String("adb", device.DefaultADBPath, "Path to the adb binary")
	f.Duration("stop-grace", device.DefaultStopGrace, "How long the recorder gets to finalise the video after SIGTERM")
	f.Duration("command-timeout", 0, "Timeout for pulling and removing the video (0 = none)")
	f.Bool("no-state", false, "Do not write the session state file used by 'adbrec clean'")
	return c
}

func runRun(c *cobra.Command, args []string) error {
	dashIdx := c.ArgsLenAtDash()
	if dashIdx < 0 {
		return fmt.Errorf("missing '--' separator: usage: adbrec run [spec...] -- <command> [args...]")
	}
	command := args[dashIdx:]
	if len(command) == 0 {
		return fmt.Errorf("missing command after '--': usage: adbrec run [spec...] -- <command> [args...]")
	}

	specs, _ := c.Flags().GetStringArray("spec")
	specs = append(specs, args[:dashIdx]...)

	cfg, cfgPath, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		log.WithField("path", cfgPath).Debug("Loaded configuration")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}

	junit, _ := c.Flags().GetString("junit")
	goTestJSON, _ := c.Flags().GetBool("go-test-json")
	noState, _ := c.Flags().GetBool("no-state")

	opts := driver.Options{
		Command:    command,
		Specs:      specs,
		JUnitPath:  junit,
		GoTestJSON: goTestJSON,
		Stdin:      os.Stdin,
		Stdout:     c.OutOrStdout(),
		Stderr:     c.ErrOrStderr(),
		Log:        log,
	}
	if !noState {
		opts.StatePath = state.FilePath(cwd)
	}

	// Interrupts are forwarded to the test command by the driver, so the
	// run still reaches Finish when the user presses Ctrl+C.
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dev := device.NewADB(cfg.DeviceOptions()...)
	sess := session.New(cfg.Session(), dev, session.WithLogger(log))

	res, err := driver.Run(ctx, sess, opts)
	if res != nil {
		printSummary(c.ErrOrStderr(), res)
	}
	if err != nil {
		if res != nil && res.ExitCode != 0 {
			fmt.Fprintf(c.ErrOrStderr(), "adbrec: %v\n", err)
			return &ExitError{Code: res.ExitCode}
		}
		return err
	}
	if res.ExitCode != 0 {
		return &ExitError{Code: res.ExitCode}
	}
	return nil
}

// printSummary writes the one-line outcome of the recording.
func printSummary(w io.Writer, res *driver.Result) {
	d := res.Decision
	switch d.Kind {
	case session.Skipped:
		fmt.Fprintln(w, "adbrec: recording disabled")
	case session.Discarded:
		fmt.Fprintln(w, "adbrec: no failing tests, video discarded")
	case session.Saved:
		if d.Retrieved {
			fmt.Fprintf(w, "adbrec: video saved: %s\n", d.Path)
		} else {
			fmt.Fprintf(w, "adbrec: warning: video could not be saved to %s\n", d.Path)
		}
	}
	for _, step := range d.Failed() {
		fmt.Fprintf(w, "adbrec: warning: %s: %v\n", step.Step, step.Err)
	}
}
