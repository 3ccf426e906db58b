// Package errors provides the coded error type used across adbrec.
// Recording failures are classified by code so they can be logged,
// recorded in a session decision, and matched in tests without string
// comparisons.
package errors

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// ErrorCode identifies a failure class.
type ErrorCode string

const (
	// Recording session failures
	ErrCodeSpawnFailed     ErrorCode = "SPAWN_FAILED"
	ErrCodeKillFailed      ErrorCode = "KILL_FAILED"
	ErrCodeDirCreateFailed ErrorCode = "DIR_CREATE_FAILED"
	ErrCodeRetrieveFailed  ErrorCode = "RETRIEVE_FAILED"
	ErrCodeCleanupFailed   ErrorCode = "CLEANUP_FAILED"

	// Device command failures
	ErrCodeCommandFailed ErrorCode = "COMMAND_FAILED"

	// Configuration and state errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"
	ErrCodeStateInvalid   ErrorCode = "STATE_INVALID"
)

// Error is a structured error with a code and optional details.
type Error struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to indented JSON.
func (e *Error) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new Error.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a code.
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether err, or any error it wraps, carries code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	coded, ok := err.(*Error)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	if coded.Code == code {
		return true
	}
	return Is(coded.Cause, code)
}

// GetCode extracts the outermost error code from err.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	coded, ok := err.(*Error)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return coded.Code
}

// CommandFailed creates a device command failure error. The exit code and
// any captured stderr are attached as details.
func CommandFailed(argv []string, stderr string, err error) *Error {
	cmd := strings.Join(argv, " ")
	coded := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	if exitErr, ok := err.(*exec.ExitError); ok {
		coded = coded.WithDetail("exitCode", exitErr.ExitCode())
	}
	if s := strings.TrimSpace(stderr); s != "" {
		coded = coded.WithDetail("stderr", s)
	}

	return coded
}

// ConfigNotFound creates a configuration not found error.
func ConfigNotFound(path string) *Error {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error.
func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}
