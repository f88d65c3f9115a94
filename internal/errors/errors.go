package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ===========================================================================
// Application errors
// Sentinels are matched with errors.Is and mapped to HTTP status codes
// ===========================================================================

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicateEntry  = errors.New("duplicate entry")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal server error")
	ErrExternal        = errors.New("external service error")
	ErrTimeout         = errors.New("timeout")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidToken    = errors.New("invalid token")
	ErrPaymentRequired = errors.New("payment required")

	// ErrSignatureMismatch webhook signature or callback hash did not verify
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// ===========================================================================
// AppError
// ===========================================================================

// AppError carries a user facing message next to the sentinel it wraps
type AppError struct {
	Err        error
	Message    string
	Code       string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError from a sentinel error
func New(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: StatusCode(err),
		Code:       ErrorCode(err),
	}
}

// Newf is New with a formatted message
func Newf(err error, format string, args ...interface{}) *AppError {
	return New(err, fmt.Sprintf(format, args...))
}

// Wrap keeps the chain intact with %w
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// ===========================================================================
// ExternalError
// Failure returned by a third-party HTTP API (Graph, Iyzico, PayTR, Resend, n8n)
// ===========================================================================

type ExternalError struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *ExternalError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: status %d", e.Service, e.StatusCode)
	}
}

// Unwrap lets errors.Is(err, ErrExternal) match every external failure
func (e *ExternalError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExternal, e.Err}
	}
	return []error{ErrExternal}
}

// Temporary reports whether retrying the same call may succeed.
// Transport errors, 429 and 5xx are temporary, other 4xx are not.
func (e *ExternalError) Temporary() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewExternal builds an ExternalError from a response status and body
func NewExternal(service string, status int, body []byte) *ExternalError {
	b := string(body)
	if len(b) > 512 {
		b = b[:512]
	}
	return &ExternalError{Service: service, StatusCode: status, Body: b}
}

// ExternalTransport wraps a transport level failure (dial, timeout, TLS)
func ExternalTransport(service string, err error) *ExternalError {
	return &ExternalError{Service: service, Err: err}
}

// ===========================================================================
// Mapping
// ===========================================================================

// StatusCode returns the HTTP status for err
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrSignatureMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the API error code for err
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrDuplicateEntry):
		return "DUPLICATE_ENTRY"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrTokenExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrInvalidToken):
		return "INVALID_TOKEN"
	case errors.Is(err, ErrPaymentRequired):
		return "PAYMENT_REQUIRED"
	case errors.Is(err, ErrSignatureMismatch):
		return "INVALID_SIGNATURE"
	case errors.Is(err, ErrExternal):
		return "EXTERNAL_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Is helper for errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As helper for errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
