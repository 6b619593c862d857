package handler

// RESPONSE HELPERS:
// Every response of the login flow is plain text. The bodies of the error
// exits are a public contract ("Not a repository collaborator" must match
// byte for byte), so they are written directly instead of through
// http.Error, which appends a newline.

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/uploader-auth/internal/apperror"
)

// writeText sends a plain-text body with the given status code.
//
// Headers and status must be set BEFORE the body; once Write is called the
// headers are on the wire and later changes are ignored.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("failed to write response body", slog.String("error", err.Error()))
	}
}

// statusFor maps an error class to its HTTP status.
//
//	ErrExchange            → 500  provider rejected the code
//	ErrNotCollaborator     → 404  identity valid, access missing
//	ErrUpstream            → 502  GitHub unreachable or answering garbage
//	ErrPersistence         → 503  session store down
//	ErrPartialPersistence  → 500  one of two writes landed
//	ErrUnauthenticated     → 401
//	ErrNotFound            → 404
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrExchange):
		return http.StatusInternalServerError
	case errors.Is(err, apperror.ErrNotCollaborator):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, apperror.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperror.ErrPartialPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to a status code and sends its client text.
//
// Only AppError.Message reaches the client. Causes (transport errors, store
// errors) can contain hostnames or keys and are logged by the service layer
// instead. Errors that are not an *AppError get a generic body.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		writeText(w, statusFor(err), appErr.Message)
		return
	}

	writeText(w, http.StatusInternalServerError, "Internal Server Error")
}
