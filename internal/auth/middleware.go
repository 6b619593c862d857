package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/uploader-auth/internal/apperror"
	"github.com/sakif/uploader-auth/internal/model"
)

// contextKey is unexported so only this package can set or read the login
// stored in a request context.
type contextKey string

const loginKey contextKey = "login"

// SessionResolver maps a session ID to the GitHub login it was issued for.
// service.AuthService implements it.
type SessionResolver interface {
	SessionLogin(ctx context.Context, sessionID string) (string, error)
}

// RequireSession guards routes that need a signed-in collaborator.
//
// It reads the "_session" cookie, resolves it through the session store and
// stores the login in the request context. Without a cookie, or with an
// unknown or expired session, the request stops with 401.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireSession(sessions SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(model.SessionCookie)
			if err != nil || cookie.Value == "" {
				http.Error(w, apperror.Unauthenticated().Message, http.StatusUnauthorized)
				return
			}

			login, err := sessions.SessionLogin(r.Context(), cookie.Value)
			switch {
			case err == nil:
			case errors.Is(err, apperror.ErrNotFound):
				http.Error(w, apperror.Unauthenticated().Message, http.StatusUnauthorized)
				return
			default:
				logger.Error("session lookup failed", slog.String("error", err.Error()))
				http.Error(w, "Session store unavailable", http.StatusServiceUnavailable)
				return
			}

			ctx := context.WithValue(r.Context(), loginKey, login)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoginFromContext returns the GitHub login RequireSession stored, or
// ("", false) outside a protected route.
func LoginFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(loginKey).(string)
	return login, ok && login != ""
}
