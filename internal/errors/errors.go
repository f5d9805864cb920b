package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode is a stable identifier for a failure mode of a sweep.
type ErrorCode string

const (
	// CheckoutFailure indicates a version control operation failed
	CheckoutFailure ErrorCode = "CHECKOUT_FAILURE"
	// DiscoveryFailure indicates plugin metadata could not be read
	DiscoveryFailure ErrorCode = "DISCOVERY_FAILURE"
	// ExtractionFailure indicates an entry file could not be parsed or resolved
	ExtractionFailure ErrorCode = "EXTRACTION_FAILURE"
	// IndexWriteFailure indicates the document store rejected a write
	IndexWriteFailure ErrorCode = "INDEX_WRITE_FAILURE"
	// LockHeld indicates another sweep owns the checkout directory
	LockHeld ErrorCode = "LOCK_HELD"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ReferenceIndexMissing indicates the configured SCIP index does not exist
	ReferenceIndexMissing ErrorCode = "REFERENCE_INDEX_MISSING"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	RunCommand FixActionType = "run-command"
	EditConfig FixActionType = "edit-config"
)

// FixAction is a suggested remedy attached to an error.
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Error carries a code, a human message and the underlying cause.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an Error with the default fixes registered for code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	CheckoutFailure: {
		{
			Type:        EditConfig,
			Key:         "repo.localDir",
			Description: "Point LOCAL_REPO_DIR at a writable directory or remove a corrupt checkout",
		},
	},
	LockHeld: {
		{
			Type:        RunCommand,
			Command:     "pluginrefs lock release",
			Description: "Release a stale lock left by a crashed sweep",
		},
	},
	ReferenceIndexMissing: {
		{
			Type:        RunCommand,
			Command:     "scip-typescript index",
			Description: "Generate the SCIP index or set extraction.referenceBackend=treesitter",
		},
	},
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "pluginrefs config show",
			Description: "Inspect the effective configuration",
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
