package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "github.com/adbrec/adbrec/internal/errors"
)

// FileNames are the configuration file names searched for, in order.
var FileNames = []string{".adbrec.yaml", "adbrec.yaml"}

// Load parses a configuration from r on top of the defaults, with strict
// field validation. Unknown fields in the YAML cause an error. An empty
// document yields the defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "failed to parse configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "invalid configuration")
	}

	return cfg, nil
}

// LoadFile loads a configuration from the given file path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec // File path comes from user input, expected behavior
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ConfigNotFound(path)
		}
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := Load(f)
	if err != nil {
		if coded, ok := err.(*apperrors.Error); ok {
			return nil, coded.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// Find searches dir and its parents for a configuration file and returns
// the first match. It returns a CONFIG_NOT_FOUND error when none exists.
func Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(abs, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", apperrors.ConfigNotFound(filepath.Join(dir, FileNames[0]))
		}
		abs = parent
	}
}

// Resolve returns the effective configuration and the file it came from.
// An explicit path must exist; otherwise the nearest file above dir is
// used, falling back to the defaults when there is none. Environment
// overrides from lookup are applied last.
func Resolve(explicit, dir string, lookup func(string) (string, bool)) (*Config, string, error) {
	path := explicit
	if path == "" {
		found, err := Find(dir)
		if err != nil && !apperrors.Is(err, apperrors.ErrCodeConfigNotFound) {
			return nil, "", err
		}
		path = found
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return nil, "", apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "invalid environment override")
		}
		if err := cfg.Validate(); err != nil {
			return nil, "", apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "invalid configuration")
		}
	}

	return cfg, path, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
