// Package config resolves adbrec's reporter configuration from built-in
// defaults, an optional YAML file, and environment overrides.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adbrec/adbrec/internal/device"
	"github.com/adbrec/adbrec/internal/session"
)

// Environment variables that override file values.
const (
	// EnvVideo toggles recording as a whole; a false value disables it.
	EnvVideo     = "ADB_VIDEO"
	EnvOutputDir = "ADBREC_OUTPUT_DIR"
	EnvSaveAll   = "ADBREC_SAVE_ALL"
	EnvLogs      = "ADBREC_LOGS"
)

// Config is the reporter configuration as written in .adbrec.yaml.
type Config struct {
	OutputDir     string `yaml:"output_dir"`
	SaveAllVideos bool   `yaml:"save_all_videos"`
	Disabled      bool   `yaml:"disabled"`
	Timestamp     *bool  `yaml:"timestamp,omitempty"`
	Logs          bool   `yaml:"logs"`
	ADB           ADB    `yaml:"adb"`
}

// ADB configures the adb command channel.
type ADB struct {
	Path           string `yaml:"path"`
	StopGrace      string `yaml:"stop_grace,omitempty"`
	CommandTimeout string `yaml:"command_timeout,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	ts := true
	return &Config{
		OutputDir: session.DefaultOutputDir,
		Timestamp: &ts,
		ADB: ADB{
			Path:      device.DefaultADBPath,
			StopGrace: device.DefaultStopGrace.String(),
		},
	}
}

// UseTimestamp reports whether saved filenames carry a timestamp. It
// defaults to true when unset.
func (c *Config) UseTimestamp() bool {
	return c.Timestamp == nil || *c.Timestamp
}

// SetTimestamp sets the timestamp toggle.
func (c *Config) SetTimestamp(v bool) {
	c.Timestamp = &v
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output_dir must be non-empty")
	}
	if err := c.ADB.Validate(); err != nil {
		return fmt.Errorf("adb: %w", err)
	}
	return nil
}

// Validate checks that the adb section is valid.
func (a *ADB) Validate() error {
	if strings.TrimSpace(a.Path) == "" {
		return errors.New("path must be non-empty")
	}
	if _, err := parseDuration(a.StopGrace); err != nil {
		return fmt.Errorf("stop_grace: %w", err)
	}
	if _, err := parseDuration(a.CommandTimeout); err != nil {
		return fmt.Errorf("command_timeout: %w", err)
	}
	return nil
}

// StopGraceDuration returns the configured stop grace, or the device
// default when unset.
func (a *ADB) StopGraceDuration() time.Duration {
	d, err := parseDuration(a.StopGrace)
	if err != nil || d == 0 {
		return device.DefaultStopGrace
	}
	return d
}

// CommandTimeoutDuration returns the configured pull/remove timeout.
// Zero means no limit.
func (a *ADB) CommandTimeoutDuration() time.Duration {
	d, _ := parseDuration(a.CommandTimeout)
	return d
}

// Session returns the snapshot handed to session.New.
func (c *Config) Session() session.Config {
	return session.Config{
		OutputDir:      c.OutputDir,
		SaveAllVideos:  c.SaveAllVideos,
		Disabled:       c.Disabled,
		UseTimestamp:   c.UseTimestamp(),
		VerboseLogs:    c.Logs,
		CommandTimeout: c.ADB.CommandTimeoutDuration(),
	}
}

// DeviceOptions returns the adb backend options for this configuration.
func (c *Config) DeviceOptions() []device.ADBOption {
	return []device.ADBOption{
		device.WithPath(c.ADB.Path),
		device.WithStopGrace(c.ADB.StopGraceDuration()),
	}
}

// ApplyEnv overlays environment overrides using lookup (os.LookupEnv in
// production). Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookupNonEmpty(lookup, EnvVideo); ok {
		on, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVideo, err)
		}
		c.Disabled = !on
	}
	if v, ok := lookupNonEmpty(lookup, EnvOutputDir); ok {
		c.OutputDir = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvSaveAll); ok {
		on, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSaveAll, err)
		}
		c.SaveAllVideos = on
	}
	if v, ok := lookupNonEmpty(lookup, EnvLogs); ok {
		on, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogs, err)
		}
		c.Logs = on
	}
	return nil
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// parseBool accepts strconv.ParseBool values plus on/off and yes/no.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes", "y":
		return true, nil
	case "off", "no", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return b, nil
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative: %s", s)
	}
	return d, nil
}
