package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per failure class. Typed errors below match them via errors.Is.
var (
	ErrNotFound          = errors.New("data not found")
	ErrDataLoad          = errors.New("data load failed")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrEngineUnavailable = errors.New("prediction engine unavailable")
	ErrRemoteWrite       = errors.New("remote write failed")
	ErrRemoteTimeout     = errors.New("remote call timed out")
	ErrConfiguration     = errors.New("invalid configuration")
)

// DataLoadError reports a missing, unreadable or malformed input file
type DataLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DataLoadError) Error() string {
	msg := fmt.Sprintf("load %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataLoadError) Unwrap() error { return e.Err }

func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }

// SchemaMismatchError reports drift between a dataset and the configured column contract
type SchemaMismatchError struct {
	Dataset    string
	Missing    []string
	Unexpected []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns ["+strings.Join(e.Missing, ", ")+"]")
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns ["+strings.Join(e.Unexpected, ", ")+"]")
	}
	return fmt.Sprintf("schema mismatch in %s: %s", e.Dataset, strings.Join(parts, "; "))
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// EngineUnavailableError reports a model artifact that could not be loaded
type EngineUnavailableError struct {
	Version string
	Err     error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("model %q unavailable: %v", e.Version, e.Err)
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

func (e *EngineUnavailableError) Is(target error) bool { return target == ErrEngineUnavailable }

// RemoteWriteError reports a batch the store rejected. Message is the
// store's own description of the failure.
type RemoteWriteError struct {
	Table   string
	Status  int
	Message string
	Err     error
}

func (e *RemoteWriteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("insert into %s rejected (status %d): %s", e.Table, e.Status, e.Message)
	}
	return fmt.Sprintf("insert into %s rejected: %s", e.Table, e.Message)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

func (e *RemoteWriteError) Is(target error) bool { return target == ErrRemoteWrite }

// RemoteTimeoutError reports a remote call that exceeded its bound
type RemoteTimeoutError struct {
	Op      string
	Timeout string
	Err     error
}

func (e *RemoteTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

func (e *RemoteTimeoutError) Unwrap() error { return e.Err }

func (e *RemoteTimeoutError) Is(target error) bool { return target == ErrRemoteTimeout }

// ConfigurationError reports missing or malformed settings at startup
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Process exit codes per failure class
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitDataLoad      = 3
	ExitSchema        = 4
	ExitEngine        = 5
	ExitRemoteWrite   = 6
	ExitRemoteTimeout = 7
)

// ExitCode maps an error to the process exit code for its class
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, ErrDataLoad):
		return ExitDataLoad
	case errors.Is(err, ErrSchemaMismatch):
		return ExitSchema
	case errors.Is(err, ErrEngineUnavailable):
		return ExitEngine
	case errors.Is(err, ErrRemoteTimeout):
		return ExitRemoteTimeout
	case errors.Is(err, ErrRemoteWrite):
		return ExitRemoteWrite
	default:
		return ExitFailure
	}
}
