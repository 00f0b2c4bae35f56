package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation   = "E100"
	CodeStorage      = "E200"
	CodeExternalAPI  = "E300"
	CodeState        = "E400"
	CodeRateLimit    = "E500"
	CodeTransport    = "E600"
	CodeConstruction = "E700"
	CodeNotSupported = "E800"
)

// DefaultUserMessage is shown when an error carries no user-facing text.
const DefaultUserMessage = "Something went wrong. Please try again later."

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	RetryAfter  int // seconds, rate limit errors only
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError reports user input that failed a format check.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeStorage,
		Message:     fmt.Sprintf("storage error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("external API error: %s", apiName),
		UserMessage: "Service is temporarily unavailable.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "This action is not available right now.",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
		RetryAfter:  retryAfter,
	}
}

// NewTransportError wraps a failed chat transport call. Transport calls are
// never retried automatically.
func NewTransportError(op string, cause error) *AppError {
	return &AppError{
		Code:        CodeTransport,
		Message:     fmt.Sprintf("transport %s failed", op),
		UserMessage: "Could not update the chat. Please try again.",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewConstructionError marks a programmer error while composing a keyboard.
func NewConstructionError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeConstruction,
		Message:     fmt.Sprintf("keyboard construction failed: %s", underlyingMsg),
		UserMessage: DefaultUserMessage,
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}

func NewNotSupportedError(feature string) *AppError {
	return &AppError{
		Code:        CodeNotSupported,
		Message:     fmt.Sprintf("%s is not supported", feature),
		UserMessage: fmt.Sprintf("%s is not yet supported.", feature),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// CodeOf returns the AppError code carried by err, or "" if none.
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ""
}

// As extracts the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}
