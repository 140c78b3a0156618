package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeGenerationFailed = "GENERATION_FAILED"
	CodePersistFailed    = "PERSIST_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeAPIKeyMissing    = "API_KEY_MISSING"
)

// WarrenError is a structured error with a code and actionable suggestion.
type WarrenError struct {
	Code       string // machine-readable code (e.g. AUTH_FAILED)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *WarrenError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *WarrenError) Unwrap() error {
	return e.Err
}

// New creates a WarrenError with the given code and message.
func New(code, message string) *WarrenError {
	return &WarrenError{Code: code, Message: message}
}

// Wrap creates a WarrenError wrapping an existing error.
func Wrap(code, message string, err error) *WarrenError {
	return &WarrenError{Code: code, Message: message, Err: err}
}

// WithSuggestion returns a copy with the suggestion set.
func (e *WarrenError) WithSuggestion(suggestion string) *WarrenError {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *WarrenError) Is(target error) bool {
	var we *WarrenError
	if errors.As(target, &we) {
		return e.Code == we.Code
	}
	return false
}

// AsCode extracts the WarrenError code from an error, or "" if not a WarrenError.
func AsCode(err error) string {
	var we *WarrenError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// Suggestion extracts the suggestion from an error, or "" if not a WarrenError.
func Suggestion(err error) string {
	var we *WarrenError
	if errors.As(err, &we) {
		return we.Suggestion
	}
	return ""
}
