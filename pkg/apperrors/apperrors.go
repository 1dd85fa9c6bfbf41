package apperrors

import (
	"errors"
	"net/http"
)

// Standard error types
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")
	ErrInternal     = errors.New("internal server error")
)

// AppError is a structured application error carrying the HTTP status and the
// machine-readable code token surfaced in the error envelope.
type AppError struct {
	Err        error
	StatusCode int
	Code       string
	Message    string
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given parameters
func New(err error, statusCode int, code, message string) *AppError {
	return &AppError{
		Err:        err,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(code, message string) *AppError {
	return New(ErrNotFound, http.StatusNotFound, code, message)
}

// NewValidation creates a validation error (missing/malformed input)
func NewValidation(code, message string) *AppError {
	return New(ErrInvalidInput, http.StatusBadRequest, code, message)
}

// NewGuard creates a conflict/guard error (blocked delete, illegal transition,
// duplicate email). Surfaced as 400 with a descriptive code.
func NewGuard(code, message string) *AppError {
	return New(ErrConflict, http.StatusBadRequest, code, message)
}

// NewInternal creates an internal server error
func NewInternal(message string) *AppError {
	return New(ErrInternal, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// As extracts an AppError from an error chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
