package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/uploader-auth/internal/auth"
)

// HandleUploader is the protected resource. It must be mounted behind
// auth.RequireSession, which puts the login in the request context.
//
// HTTP: GET /uploader
func HandleUploader(w http.ResponseWriter, r *http.Request) {
	login, ok := auth.LoginFromContext(r.Context())
	if !ok {
		// Only reachable when the route is mounted without RequireSession.
		writeText(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	writeText(w, http.StatusOK, fmt.Sprintf("Signed in as %s\n", login))
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleHealth answers 200 "ok" when the session store responds, 503 otherwise.
//
// HTTP: GET /healthz
func HandleHealth(store Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.Warn("health check failed", slog.String("error", err.Error()))
			writeText(w, http.StatusServiceUnavailable, "session store unreachable")
			return
		}
		writeText(w, http.StatusOK, "ok")
	}
}
