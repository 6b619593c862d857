package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/uploader-auth/internal/model"
)

// LoginURLBuilder builds the provider authorization URL.
// *auth.GitHubProvider implements it.
type LoginURLBuilder interface {
	AuthURL() string
}

// LoginService is the part of *service.AuthService the handlers call.
type LoginService interface {
	CompleteLogin(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// UploaderPath is where a successful login lands.
const UploaderPath = "/uploader"

// AuthHandler serves the GitHub login flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin    → redirect the browser to GitHub's authorization page
//   - HandleCallback → run the callback, set the session cookie, redirect to /uploader
//   - HandleLogout   → drop the session and its cookie
//
// Everything between "code received" and "session persisted" lives in the
// service; this type only translates results into HTTP.
type AuthHandler struct {
	github       LoginURLBuilder
	logins       LoginService
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie sets the Secure flag on
// the session cookie; turn it on whenever the service is reached over HTTPS.
func NewAuthHandler(github LoginURLBuilder, logins LoginService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		github:       github,
		logins:       logins,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// HandleLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/login → 302 Location: https://github.com/login/oauth/authorize?client_id=…&redirect_uri=…&scope=…
//
// Stateless: nothing is stored and no cookie is set.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.github.AuthURL(), http.StatusFound)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/callback?code=xxx
//
// RESPONSES:
//   - success          → Set-Cookie: _session=<uuid>; Path=/ and 302 to /uploader
//   - exchange error   → 500 "Authentication error <error>: <description>\r\n<error_uri>"
//   - not collaborator → 404 "Not a repository collaborator"
//   - GitHub down      → 502, session store down → 503, half-written session → 500
//
// A missing code is not special-cased: the empty string goes to GitHub,
// which rejects it as an exchange error.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	session, err := h.logins.CompleteLogin(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	// A browser-session cookie: no MaxAge, so it dies with the browser while
	// the server-side record lives for model.SessionTTL.
	// HttpOnly keeps the ID away from page scripts.
	http.SetCookie(w, &http.Cookie{
		Name:     model.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, UploaderPath, http.StatusFound)
}

// HandleLogout deletes the session record and expires the cookie.
//
// HTTP: POST /auth/logout → 303 to /auth/login
//
// POST, not GET: logging out changes state, and browsers prefetch GETs.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(model.SessionCookie); err == nil {
		if err := h.logins.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout failed", slog.String("error", err.Error()))
			writeText(w, http.StatusServiceUnavailable, "Session store unavailable")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     model.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}
