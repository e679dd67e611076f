// Package apperror defines the error kinds shared by every layer. Only the
// HTTP handlers translate them into status codes.
//
// SENTINEL ERRORS + A WRAPPER TYPE:
// Each kind is a sentinel (ErrNotFound, ErrValidation, ...). Constructors
// return *AppError, which carries a client-safe Message and Unwraps to the
// sentinel, so callers check the kind with the standard library:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
//
// and the handler pulls the message out with errors.As. Adding context with
// fmt.Errorf("...: %w", err) on the way up keeps both working.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrExchange means the auth provider refused to turn a code or refresh
	// token into a session. Fatal to the login, surfaced as 400.
	ErrExchange = errors.New("exchange failed")

	// ErrInvalidToken means a bearer token is missing, expired, revoked or
	// otherwise rejected by the auth provider. Surfaced as 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUpstream means a call to the code-hosting API failed.
	ErrUpstream = errors.New("upstream error")
)

// AppError is an error whose Message may be shown to API clients.
type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Exchange normalizes any auth provider failure during code exchange or
// refresh into a single error kind. The provider's own error shape only
// survives as part of the cause string.
func Exchange(cause string) *AppError {
	return &AppError{
		Err:     ErrExchange,
		Message: "Code exchange failed: " + cause,
	}
}

// InvalidToken returns an AppError for a rejected bearer token.
func InvalidToken(cause string) *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: "Token validation failed: " + cause,
	}
}

// Upstream returns an AppError for a failed code-hosting API call.
func Upstream(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, err),
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}
