// Package state persists a small record of the running recording session so
// that a later `adbrec clean` can find and stop a recorder whose owning
// process died before it could finish.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/adbrec/adbrec/internal/errors"
)

// SerialEnvVar selects the target device for adb; it is folded into the
// state file name so runs against different devices do not collide.
const SerialEnvVar = "ANDROID_SERIAL"

// State describes one live recording session.
type State struct {
	SessionID  string    `json:"session_id"`
	PID        int       `json:"pid"`
	RemotePath string    `json:"remote_path"`
	SpecLabel  string    `json:"spec_label"`
	OutputDir  string    `json:"output_dir"`
	StartedAt  time.Time `json:"started_at"`
}

// New creates a state record with a fresh session id.
func New(pid int, remotePath, specLabel, outputDir string) *State {
	return &State{
		SessionID:  uuid.NewString(),
		PID:        pid,
		RemotePath: remotePath,
		SpecLabel:  specLabel,
		OutputDir:  outputDir,
		StartedAt:  time.Now().UTC(),
	}
}

// Age returns how long ago the session started.
func (s *State) Age() time.Duration {
	return time.Since(s.StartedAt)
}

// FilePath returns the state file path for the working directory dir and
// the device selected by ANDROID_SERIAL.
func FilePath(dir string) string {
	return FilePathForDevice(dir, os.Getenv(SerialEnvVar))
}

// FilePathForDevice returns the state file path for dir and an explicit
// device serial. The file lives in the system temp directory under a hash
// of both values.
func FilePathForDevice(dir, serial string) string {
	key := dir
	if serial != "" {
		key = dir + "\x00" + serial
	}
	hash := sha256.Sum256([]byte(key))
	hashStr := hex.EncodeToString(hash[:])[:16]
	return filepath.Join(os.TempDir(), fmt.Sprintf("adbrec-%s.state", hashStr))
}

// Read loads the state from path.
// Returns an error satisfying os.IsNotExist if the file doesn't exist.
func Read(path string) (*State, error) {
	data, err := os.ReadFile(path) //nolint:gosec // State file path is derived, not user input
	if err != nil {
		return nil, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStateInvalid, "failed to parse state file").
			WithDetail("path", path)
	}
	if st.RemotePath == "" {
		return nil, apperrors.New(apperrors.ErrCodeStateInvalid, "state file has no remote_path").
			WithDetail("path", path)
	}

	return &st, nil
}

// Write persists st to path.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func Write(path string, st *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// Delete removes the state file at path.
// Does not return an error if the file doesn't exist.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}
