// Package apperror defines the error classes of the login flow.
//
// Every failure the callback can end in is one of these sentinels, wrapped in
// an AppError that carries the text the client should see. The handler layer
// maps sentinels to status codes with errors.Is; nothing below the handler
// knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrExchange           = errors.New("token exchange failed")
	ErrNotCollaborator    = errors.New("not a repository collaborator")
	ErrUpstream           = errors.New("upstream provider failure")
	ErrPersistence        = errors.New("session persistence failed")
	ErrPartialPersistence = errors.New("session partially persisted")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
)

type AppError struct {
	Err     error  // sentinel class
	Message string // text returned to the client
	Cause   error  // optional underlying error, never shown to the client
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Exchange reports an OAuth error returned by the provider's token endpoint.
// The message format is part of the public contract of /auth/callback.
func Exchange(code, description, uri string) *AppError {
	return &AppError{
		Err:     ErrExchange,
		Message: fmt.Sprintf("Authentication error %s: %s\r\n%s", code, description, uri),
	}
}

func NotCollaborator() *AppError {
	return &AppError{
		Err:     ErrNotCollaborator,
		Message: "Not a repository collaborator",
	}
}

// Upstream wraps a transport or decoding failure talking to the provider.
func Upstream(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: "Upstream provider unavailable",
		Cause:   fmt.Errorf("%s: %w", op, cause),
	}
}

// Persistence reports that neither session write landed.
func Persistence(cause error) *AppError {
	return &AppError{
		Err:     ErrPersistence,
		Message: "Session store unavailable",
		Cause:   cause,
	}
}

// PartialPersistence reports that exactly one of the two session writes
// failed. The caller must not guess which state the store is in.
func PartialPersistence(cause error) *AppError {
	return &AppError{
		Err:     ErrPartialPersistence,
		Message: "Session partially persisted",
		Cause:   cause,
	}
}

func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "Not signed in",
	}
}

// NotFound takes no key: store keys embed session IDs, which stay out of
// error text and logs.
func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: resource + " not found",
	}
}
