package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "scan.max_scan_size_bytes")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Scan.MaxScanSizeBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "scan.max_scan_size_bytes",
			Value:   c.Scan.MaxScanSizeBytes,
			Message: "must be greater than zero",
		})
	}

	if c.Detect.JarPath == "" {
		errs = append(errs, ValidationError{
			Field:   "detect.jar_path",
			Value:   c.Detect.JarPath,
			Message: "must not be empty",
		})
	}

	if c.Hub.TimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "hub.timeout_seconds",
			Value:   c.Hub.TimeoutSeconds,
			Message: "must be greater than zero",
		})
	}

	if c.Wait.MaxChecks <= 0 {
		errs = append(errs, ValidationError{
			Field:   "wait.max_checks",
			Value:   c.Wait.MaxChecks,
			Message: "must be greater than zero",
		})
	}

	if c.Wait.CheckDelaySeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "wait.check_delay_seconds",
			Value:   c.Wait.CheckDelaySeconds,
			Message: "must be greater than zero",
		})
	}

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errs
}
