package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// LogNotFound indicates the log path does not exist
	LogNotFound ErrorCode = "LOG_NOT_FOUND"
	// LogUnreadable indicates the log exists but could not be read or decoded
	LogUnreadable ErrorCode = "LOG_UNREADABLE"
	// BaselineInvalid indicates a baseline file failed to load or validate
	BaselineInvalid ErrorCode = "BASELINE_INVALID"
	// ConfigInvalid indicates a bad configuration value
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// HistoryUnavailable indicates the run history database could not be used
	HistoryUnavailable ErrorCode = "HISTORY_UNAVAILABLE"
	// RemoteFailed indicates the remote SAS run could not complete
	RemoteFailed ErrorCode = "REMOTE_FAILED"
	// ChecksInvalid indicates a hardening check file is malformed
	ChecksInvalid ErrorCode = "CHECKS_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Description string        `json:"description,omitempty"`
}

// TriageError carries a stable code alongside the message and cause.
type TriageError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewTriageError creates a new TriageError with the fixes registered for code.
func NewTriageError(code ErrorCode, message string, cause error) *TriageError {
	return &TriageError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *TriageError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TriageError) Unwrap() error {
	return e.cause
}

// CodeOf returns the code of the first TriageError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var te *TriageError
	if errors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	LogNotFound: {
		{
			Type:        RunCommand,
			Command:     "sastriage remote run --script <program.sas>",
			Description: "Produce a fresh log by running the program",
		},
	},
	BaselineInvalid: {
		{
			Type:        RunCommand,
			Command:     "sastriage baseline show",
			Description: "Print the built-in baseline as a starting point",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditFile,
			Path:        ".sastriage/config.json",
			Description: "Fix or remove the offending setting",
		},
	},
	HistoryUnavailable: {
		{
			Type:        RunCommand,
			Command:     "sastriage analyze --no-history <log>",
			Description: "Analyze without recording the run",
		},
	},
	ChecksInvalid: {
		{
			Type:        RunCommand,
			Command:     "sastriage check-hardening --print-default",
			Description: "Compare against the embedded check set",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
