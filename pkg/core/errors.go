// Package core holds the error taxonomy shared by the analysis, mentor and
// live-session clients.
package core

import (
	"errors"
	"fmt"
)

// Error represents a failure surfaced to the UI layer.
type Error struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	Code          string    `json:"code,omitempty"`
	ProviderError any       `json:"provider_error,omitempty"`
	RetryAfter    *int      `json:"retry_after,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrInvalidInput means the caller supplied neither text nor an image.
	ErrInvalidInput ErrorType = "invalid_input"
	// ErrMissingCredential means no API key could be resolved.
	ErrMissingCredential ErrorType = "missing_credential"
	// ErrAnalysisRequest means the structured analysis call failed upstream.
	ErrAnalysisRequest ErrorType = "analysis_request_error"
	// ErrAnalysisParse means the upstream reply was unparseable or off-schema.
	ErrAnalysisParse ErrorType = "analysis_parse_error"
	// ErrAskRequest means the follow-up call failed (overload excluded).
	ErrAskRequest ErrorType = "ask_request_error"
	// ErrMicrophoneUnavailable means audio capture could not be acquired.
	ErrMicrophoneUnavailable ErrorType = "microphone_unavailable"
	// ErrLiveSession means the live voice session failed.
	ErrLiveSession ErrorType = "live_session_error"

	// Transport-level categories reported by the hosted-model client.
	ErrAuthentication ErrorType = "authentication_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrOverloaded     ErrorType = "overloaded_error"
	ErrAPI            ErrorType = "api_error"
)

// NewInvalidInputError creates an invalid input error.
func NewInvalidInputError(message string) *Error {
	return &Error{
		Type:    ErrInvalidInput,
		Message: message,
	}
}

// NewMissingCredentialError creates a missing credential error.
func NewMissingCredentialError(message string) *Error {
	return &Error{
		Type:    ErrMissingCredential,
		Message: message,
	}
}

// NewAnalysisRequestError creates an analysis request error.
func NewAnalysisRequestError(message string) *Error {
	return &Error{
		Type:    ErrAnalysisRequest,
		Message: message,
	}
}

// NewAnalysisParseError creates an analysis parse error wrapping the cause.
func NewAnalysisParseError(message string, cause error) *Error {
	e := &Error{
		Type:    ErrAnalysisParse,
		Message: message,
	}
	if cause != nil {
		e.ProviderError = cause
	}
	return e
}

// NewAskRequestError creates a follow-up request error.
func NewAskRequestError(message string) *Error {
	return &Error{
		Type:    ErrAskRequest,
		Message: message,
	}
}

// NewMicrophoneUnavailableError creates a microphone unavailable error.
func NewMicrophoneUnavailableError(message string, cause error) *Error {
	e := &Error{
		Type:    ErrMicrophoneUnavailable,
		Message: message,
	}
	if cause != nil {
		e.ProviderError = cause
	}
	return e
}

// NewLiveSessionError creates a live session error.
func NewLiveSessionError(message string) *Error {
	return &Error{
		Type:    ErrLiveSession,
		Message: message,
	}
}

// NewOverloadedError creates an overloaded error.
func NewOverloadedError(message string) *Error {
	return &Error{
		Type:    ErrOverloaded,
		Message: message,
	}
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit, ErrOverloaded, ErrAPI:
		return true
	default:
		return false
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	if ue, ok := e.ProviderError.(error); ok {
		return ue
	}
	return nil
}

// IsType reports whether err is a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}
