// Package errors provides centralized error definitions and error handling
// utilities for scansplit. It defines semantic error types for the failure
// modes of a scan run, error constructors with context wrapping, and
// classification helpers.
//
// The taxonomy is small and deliberate:
//
//   - NotFoundError: the scan target is missing or not a directory. Fatal,
//     reported before any scanning begins.
//   - ConfigError: the configuration is unusable (e.g. non-positive size
//     limit, missing API token). Fatal, reported before any scanning begins.
//   - ScanError: a Synopsys Detect invocation failed. The run continues to
//     the next group; the overall exit status is non-zero.
//   - HubError: a Black Duck REST call failed. Carries the HTTP status code
//     so callers can distinguish transient server trouble from bad requests.
//
// Per-entry filesystem failures during sizing are not errors at all; they
// are recorded as sizer.SkipRecord values and surfaced as warnings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience so callers can import
// only this package for error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for common conditions.
var (
	// ErrTargetNotFound indicates the target directory does not exist.
	ErrTargetNotFound = New("target directory not found")
	// ErrNotADirectory indicates the target path exists but is not a directory.
	ErrNotADirectory = New("target path is not a directory")
	// ErrInvalidSizeLimit indicates a non-positive scan size limit.
	ErrInvalidSizeLimit = New("scan size limit must be positive")
	// ErrTokenMissing indicates no API token was provided by flag, file, or config.
	ErrTokenMissing = New("hub API token not provided")
	// ErrScanTimeout indicates scan processing did not complete within the
	// configured number of checks.
	ErrScanTimeout = New("timed out waiting for scan processing")
)

// NotFoundError indicates the scan target is missing or unusable.
type NotFoundError struct {
	Path string // The target path that was requested
	Err  error  // Underlying cause (ErrTargetNotFound, ErrNotADirectory, or an os error)
}

// NewNotFoundError creates a NotFoundError for the given path.
func NewNotFoundError(path string, err error) *NotFoundError {
	return &NotFoundError{Path: path, Err: err}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("target %s: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ConfigError indicates an unusable configuration value.
type ConfigError struct {
	Field string // Config field path, e.g. "scan.max_scan_size_bytes"
	Value any    // The offending value
	Err   error  // Underlying cause
}

// NewConfigError creates a ConfigError for the given field and value.
func NewConfigError(field string, value any, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Err: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v (got: %v)", e.Field, e.Err, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ScanError indicates a failed Detect invocation for one scan unit.
type ScanError struct {
	CodeLocation string // The code location name used for the scan
	LogPath      string // Path to the captured detect log, if written
	Err          error  // Underlying cause (exit error, context cancellation)
}

// NewScanError creates a ScanError for the given code location.
func NewScanError(codeLocation, logPath string, err error) *ScanError {
	return &ScanError{CodeLocation: codeLocation, LogPath: logPath, Err: err}
}

func (e *ScanError) Error() string {
	if e.LogPath != "" {
		return fmt.Sprintf("scan %s failed: %v (see %s)", e.CodeLocation, e.Err, e.LogPath)
	}
	return fmt.Sprintf("scan %s failed: %v", e.CodeLocation, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// HubError indicates a failed Black Duck REST operation.
type HubError struct {
	Op         string // The operation, e.g. "authenticate", "unmap code location"
	StatusCode int    // HTTP status code, 0 if the request never completed
	Err        error  // Underlying cause
}

// NewHubError creates a HubError for the given operation.
func NewHubError(op string, statusCode int, err error) *HubError {
	return &HubError{Op: op, StatusCode: statusCode, Err: err}
}

func (e *HubError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("hub %s: %v (status %d)", e.Op, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("hub %s: %v", e.Op, e.Err)
}

func (e *HubError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError or wraps one of the
// target-path sentinels.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return As(err, &nf) || Is(err, ErrTargetNotFound) || Is(err, ErrNotADirectory)
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return As(err, &ce)
}

// IsFatal reports whether err should abort the run before any scanning.
// Target-path and configuration failures are fatal; scan and hub failures
// are reported per group.
func IsFatal(err error) bool {
	return IsNotFound(err) || IsConfig(err)
}

// IsRetryable reports whether err represents a transient condition that may
// succeed on retry. Hub errors with 5xx or 429 status codes and requests
// that never completed are considered retryable.
func IsRetryable(err error) bool {
	var he *HubError
	if !As(err, &he) {
		return false
	}
	if he.StatusCode == 0 {
		return true
	}
	return he.StatusCode >= http.StatusInternalServerError ||
		he.StatusCode == http.StatusTooManyRequests
}
