// Package cmd implements the adbrec Cobra command tree.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adbrec/adbrec/internal/config"
	"github.com/adbrec/adbrec/internal/logging"
)

// Version, Commit, and Date are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = newRootCmd()

// ExitError reports the wrapped test command's non-zero exit code. main
// exits with Code without printing anything further.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("test command exited with code %d", e.Code)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "adbrec",
		Short: "Record the Android screen while tests run",
		Long: `adbrec - Android screen recording for test runs

Starts 'adb shell screenrecord' before a test command, watches for failing
tests, and keeps the video only when something failed (or when asked to
keep every video). The device's temporary file is always removed.

Configuration is read from .adbrec.yaml (searched upward from the working
directory), then ADB_VIDEO / ADBREC_* environment variables, then flags.

Examples:
  # Record while running a test suite
  adbrec run --spec specs/checkout.js -- npx wdio run wdio.conf.ts

  # Use go test's JSON stream to detect failing tests
  adbrec run --go-test-json --spec e2e/login_test.go -- go test -json ./e2e/...

  # Stop a recorder left behind by a killed run
  adbrec clean

  # Show the effective configuration
  adbrec config`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(fmt.Sprintf("adbrec version {{.Version}} (commit: %s, built: %s)\n", Commit, Date))

	pf := root.PersistentFlags()
	pf.String("config", "", "Configuration file (default: nearest .adbrec.yaml)")
	pf.Bool("logs", false, "Enable diagnostic logging to stderr")
	pf.String("color", "auto", "Colour log output: auto, always, never")
	pf.String("log-format", "text", "Log format: text or json")

	root.AddCommand(newRunCmd(), newCleanCmd(), newConfigCmd())
	return root
}

// loadConfig resolves the configuration for c: file, environment, then any
// flags the user set explicitly.
func loadConfig(c *cobra.Command) (*config.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to determine working directory: %w", err)
	}

	explicit, _ := c.Flags().GetString("config")
	cfg, path, err := config.Resolve(explicit, cwd, os.LookupEnv)
	if err != nil {
		return nil, "", err
	}

	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}

// applyFlags overlays explicitly set flags onto cfg. Flags a command does
// not define are skipped.
func applyFlags(c *cobra.Command, cfg *config.Config) {
	flags := c.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
	if changed("save-all") {
		cfg.SaveAllVideos, _ = flags.GetBool("save-all")
	}
	if changed("disabled") {
		cfg.Disabled, _ = flags.GetBool("disabled")
	}
	if changed("timestamp") {
		ts, _ := flags.GetBool("timestamp")
		cfg.SetTimestamp(ts)
	}
	if changed("logs") {
		cfg.Logs, _ = flags.GetBool("logs")
	}
	if changed("adb") {
		cfg.ADB.Path, _ = flags.GetString("adb")
	}
	if changed("stop-grace") {
		d, _ := flags.GetDuration("stop-grace")
		cfg.ADB.StopGrace = d.String()
	}
	if changed("command-timeout") {
		d, _ := flags.GetDuration("command-timeout")
		cfg.ADB.CommandTimeout = formatDuration(d)
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// newLogger builds the diagnostic logger for c, honouring cfg.Logs.
func newLogger(c *cobra.Command, cfg *config.Config) (*logrus.Entry, error) {
	colorFlag, _ := c.Flags().GetString("color")
	color, err := logging.ParseColorMode(colorFlag)
	if err != nil {
		return nil, err
	}

	format, _ := c.Flags().GetString("log-format")
	switch format {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: valid values are text, json", format)
	}

	return logging.New(logging.Options{
		Verbose: cfg.Logs,
		Output:  c.ErrOrStderr(),
		Color:   color,
		JSON:    format == "json",
	}), nil
}
