package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adbrec/adbrec/internal/device"
	"github.com/adbrec/adbrec/internal/platform"
	"github.com/adbrec/adbrec/internal/session"
	"github.com/adbrec/adbrec/internal/state"
)

// defaultMaxAge bounds how old a state file may be before its pid is no
// longer trusted to still belong to the recorder.
const defaultMaxAge = 24 * time.Hour

func newCleanCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "clean",
		Short: "Stop an orphaned recorder and remove the device's temporary video",
		Long: `Clean up after a run that was killed before it could finish.

Reads the session state file for the current directory and device
(ANDROID_SERIAL). If the recorder recorded there is still running, its
process group is stopped. The temporary video on the device is removed and
the state file deleted. Without a state file the temporary video is still
removed.

Examples:
  adbrec clean
  ANDROID_SERIAL=emulator-5554 adbrec clean`,
		Args: cobra.NoArgs,
		RunE: runClean,
	}

	f := c.Flags()
	f.String("adb", device.DefaultADBPath, "Path to the adb binary")
	f.Duration("max-age", defaultMaxAge, "Only stop recorders from state files younger than this")
	return c
}

func runClean(c *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(c, cfg)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}
	maxAge, _ := c.Flags().GetDuration("max-age")
	out := c.ErrOrStderr()

	statePath := state.FilePath(cwd)
	remote := session.RemotePath

	st, readErr := state.Read(statePath)
	switch {
	case readErr == nil:
		remote = st.RemotePath
		log = log.WithField("session", st.SessionID)
		switch {
		case st.Age() > maxAge:
			fmt.Fprintf(out, "adbrec: state file is %s old, not stopping pid %d\n", st.Age().Round(time.Second), st.PID)
		case platform.Alive(st.PID):
			if err := platform.KillGroup(st.PID, cfg.ADB.StopGraceDuration()); err != nil {
				fmt.Fprintf(out, "adbrec: warning: failed to stop recorder pid %d: %v\n", st.PID, err)
			} else {
				fmt.Fprintf(out, "adbrec: stopped orphaned recorder pid %d\n", st.PID)
			}
		default:
			log.WithField("pid", st.PID).Debug("Recorder already gone")
		}
	case os.IsNotExist(readErr):
		log.Debug("No session state file")
	default:
		fmt.Fprintf(out, "adbrec: warning: ignoring unreadable state file: %v\n", readErr)
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := cfg.ADB.CommandTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dev := device.NewADB(cfg.DeviceOptions()...)
	if err := dev.Remove(ctx, remote); err != nil {
		fmt.Fprintf(out, "adbrec: warning: failed to remove %s: %v\n", remote, err)
	} else {
		fmt.Fprintf(out, "adbrec: removed %s\n", remote)
	}

	if err := state.Delete(statePath); err != nil {
		return fmt.Errorf("failed to reset state: %w", err)
	}
	return nil
}
