package errs

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Exit statuses used by the CLI.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ErrInterrupted is returned when the boot is cancelled by a signal.
var ErrInterrupted = errors.New("boot interrupted")

// FieldError represents a field-level validation error.
//
// Example:
//
//	{ "field": "measurement_unit", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// FieldErrors is a list of field errors that satisfies error.
type FieldErrors []FieldError

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, fe := range f {
		parts = append(parts, fe.Field+" "+fe.Error)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConfigError wraps a configuration problem found before the boot starts.
type ConfigError struct {
	Err error
}

func NewConfigError(err error) *ConfigError {
	return &ConfigError{Err: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// StageError is a fatal failure of one boot stage.
//
// Stage is the stage name as it appears in logs (e.g. "migrate").
type StageError struct {
	Stage string
	Err   error
}

func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the name of the failed stage, or "" when err is not a
// StageError.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// ExitCode maps an error to a process exit status.
//
// A failed external command propagates its own exit status, the way a
// `set -e` shell script would. Config errors exit with ExitConfig, and
// everything else with ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return ExitFailure
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}

	return ExitFailure
}
