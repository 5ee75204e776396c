package errors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the dispatch error taxonomy
var (
	ErrScopeResolution   = errors.New("tenant scope could not be resolved")
	ErrNotFound          = errors.New("resource not found")
	ErrScopeViolation    = errors.New("resource outside caller scope")
	ErrInvalidState      = errors.New("operation not permitted in current state")
	ErrDriverUnavailable = errors.New("driver unavailable")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInternal          = errors.New("internal server error")
	ErrTemporaryFailure  = errors.New("temporary failure")
	ErrTimeout           = errors.New("timeout")
)

// AppError represents a structured application error with context
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Retryable  bool
	Context    map[string]interface{}
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

// WithContext adds additional context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(err error, message string, statusCode int, retryable bool) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Context:    make(map[string]interface{}),
	}
}

// StatusCode returns the HTTP status for an error, defaulting to 500 for
// anything outside the taxonomy.
func StatusCode(err error) int {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	return errors.Is(err, ErrTemporaryFailure) || errors.Is(err, ErrTimeout)
}

// NewScopeResolutionError creates an error for a caller whose tenant scope
// cannot be determined.
func NewScopeResolutionError(message string) *AppError {
	return NewAppError(ErrScopeResolution, message, http.StatusBadRequest, false)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, http.StatusNotFound, false)
}

// NewScopeViolationError creates an error for a resource that exists but is
// outside the caller's company/shop boundary.
func NewScopeViolationError(message string) *AppError {
	return NewAppError(ErrScopeViolation, message, http.StatusForbidden, false)
}

// NewInvalidStateError creates an error for an operation rejected by the
// current order/trip status.
func NewInvalidStateError(message string) *AppError {
	return NewAppError(ErrInvalidState, message, http.StatusBadRequest, false)
}

// NewDriverUnavailableError creates an error for an inactive or already
// engaged driver.
func NewDriverUnavailableError(message string) *AppError {
	return NewAppError(ErrDriverUnavailable, message, http.StatusBadRequest, false)
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, message, http.StatusForbidden, false)
}

// NewInvalidSignatureError creates an error for a QR payload whose signature
// does not verify. Callers must not mutate state on this error.
func NewInvalidSignatureError(message string) *AppError {
	return NewAppError(ErrInvalidSignature, message, http.StatusBadRequest, false)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, false)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrInternal, message, http.StatusInternalServerError, true)
}

// NewTemporaryError creates a temporary error
func NewTemporaryError(message string) *AppError {
	return NewAppError(ErrTemporaryFailure, message, http.StatusServiceUnavailable, true)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string) *AppError {
	return NewAppError(ErrTimeout, message, http.StatusGatewayTimeout, true)
}
