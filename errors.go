package comicflow

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrInvalidInput is returned when audience input has an unrecognized shape.
var ErrInvalidInput = errors.New("invalid audience input")

// ErrorCategory classifies errors by how they should be handled.
type ErrorCategory string

const (
	// ErrorTransient indicates the error is temporary and the operation can be retried.
	// Examples: rate limits, server overload, output that did not match the schema.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent indicates the error is not recoverable through retry.
	// Examples: invalid API key, model not found.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput indicates the caller provided invalid input that must be corrected.
	ErrorUserInput ErrorCategory = "user_input"
)

// CategorizedError is an error that provides information about how it should be handled.
type CategorizedError interface {
	error
	Category() ErrorCategory
	StatusCode() int           // HTTP status code if applicable, 0 otherwise
	RetryAfter() time.Duration // suggested retry delay from server, 0 if not available
}

// Error is a categorized error with metadata for error handling decisions.
type Error struct {
	Msg        string
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Category returns the error category.
func (e *Error) Category() ErrorCategory { return e.Cat }

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int { return e.Code }

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration { return e.RetryDelay }

// NewTransientError creates a transient error that can be retried.
func NewTransientError(msg string, statusCode int, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorTransient, Code: statusCode, Cause: cause}
}

// NewTransientErrorWithRetry creates a transient error with a suggested retry delay.
func NewTransientErrorWithRetry(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	e := NewTransientError(msg, statusCode, cause)
	e.RetryDelay = retryAfter
	return e
}

// NewPermanentError creates a permanent error that should not be retried.
func NewPermanentError(msg string, statusCode int, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorPermanent, Code: statusCode, Cause: cause}
}

// NewUserInputError creates an error indicating invalid caller input.
func NewUserInputError(msg string, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorUserInput, Cause: cause}
}

// NewStatusError categorizes an API failure by its HTTP status code.
// A positive retryAfter always yields a transient error.
func NewStatusError(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	if retryAfter > 0 {
		return NewTransientErrorWithRetry(msg, statusCode, retryAfter, cause)
	}
	return &Error{Msg: msg, Cat: CategoryFromStatus(statusCode), Code: statusCode, Cause: cause}
}

// ParseRetryAfter reads a Retry-After header value given either as seconds
// or as an HTTP date. It returns 0 when the value is absent or unusable.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}

// CategoryFromStatus maps an HTTP status code to an error category.
func CategoryFromStatus(code int) ErrorCategory {
	switch {
	case code == 429:
		return ErrorTransient
	case code >= 500 && code < 600:
		return ErrorTransient
	case code == 400 || code == 404 || code == 422:
		return ErrorUserInput
	default:
		return ErrorPermanent
	}
}

// CategoryOf returns the category of err, or "" if err is not categorized.
func CategoryOf(err error) ErrorCategory {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category()
	}
	return ""
}

// IsTransient returns true if the error or any wrapped error is categorized as transient.
func IsTransient(err error) bool { return CategoryOf(err) == ErrorTransient }

// IsPermanent returns true if the error or any wrapped error is categorized as permanent.
func IsPermanent(err error) bool { return CategoryOf(err) == ErrorPermanent }

// IsUserInput returns true if the error or any wrapped error is a user input error.
func IsUserInput(err error) bool { return CategoryOf(err) == ErrorUserInput }

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay from a categorized error, or 0.
func RetryAfterOf(err error) time.Duration {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}

// OutputError is returned when a model response does not conform to the
// requested schema. It is transient: asking again usually fixes it.
type OutputError struct {
	Schema  string // schema name
	Content string // raw model output
	Err     error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("output does not match schema %q: %v", e.Schema, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// Category implements CategorizedError.
func (e *OutputError) Category() ErrorCategory { return ErrorTransient }

// StatusCode implements CategorizedError.
func (e *OutputError) StatusCode() int { return 0 }

// RetryAfter implements CategorizedError.
func (e *OutputError) RetryAfter() time.Duration { return 0 }
