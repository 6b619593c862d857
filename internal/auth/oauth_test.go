package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newTestProvider points a GitHubProvider at one httptest server standing in
// for both github.com and api.github.com.
func newTestProvider(t *testing.T, h http.Handler) *GitHubProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewGitHubProvider(ProviderConfig{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		CallbackURL:  "https://uploader.example.com/auth/callback",
		Scope:        "read:user",
		OAuthURL:     srv.URL,
		APIURL:       srv.URL,
		UserAgent:    "uploader-auth-test",
		Timeout:      2 * time.Second,
		HTTPClient:   srv.Client(),
	})
}

// writeForm answers like GitHub's token endpoint: a flat query-string body.
func writeForm(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	w.Write([]byte(body))
}

// =========================================================================
// AuthURL
// =========================================================================

func TestAuthURL(t *testing.T) {
	p := NewGitHubProvider(ProviderConfig{
		ClientID:    "client-123",
		CallbackURL: "https://uploader.example.com/auth/callback",
		Scope:       "read:org,repo",
	})

	u, err := url.Parse(p.AuthURL())
	require.NoError(t, err)

	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "/login/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "https://uploader.example.com/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "read:org,repo", q.Get("scope"))
	assert.False(t, q.Has("state"), "no state parameter is sent")
}

func TestAuthURL_IsStable(t *testing.T) {
	p := NewGitHubProvider(ProviderConfig{ClientID: "c", CallbackURL: "https://x/cb", Scope: "read:user"})
	assert.Equal(t, p.AuthURL(), p.AuthURL())
}

// =========================================================================
// Exchange
// =========================================================================

func TestExchange_Success(t *testing.T) {
	calls := 0
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login/oauth/access_token", r.URL.Path)
		assert.NoError(t, r.ParseForm())

		assert.Equal(t, "client-123", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret-456", r.PostForm.Get("client_secret"))
		assert.Equal(t, "abc123", r.PostForm.Get("code"))
		assert.Equal(t, "https://uploader.example.com/auth/callback", r.PostForm.Get("redirect_uri"))

		writeForm(w, "access_token=tok1&token_type=bearer&scope=read%3Auser")
	}))

	token, err := p.Exchange(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "tok1", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, 1, calls)
}

func TestExchange_ProviderError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ExchangeError
	}{
		{
			name: "description key",
			body: "error=access_denied&description=User+denied+access&error_uri=https://example.com/err",
			want: ExchangeError{Code: "access_denied", Description: "User denied access", URI: "https://example.com/err"},
		},
		{
			name: "error_description key",
			body: "error=bad_verification_code&error_description=The+code+passed+is+incorrect+or+expired.&error_uri=https%3A%2F%2Fdocs.github.com%2Fapps",
			want: ExchangeError{Code: "bad_verification_code", Description: "The code passed is incorrect or expired.", URI: "https://docs.github.com/apps"},
		},
		{
			name: "error only",
			body: "error=incorrect_client_credentials",
			want: ExchangeError{Code: "incorrect_client_credentials"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				writeForm(w, tt.body)
			}))

			_, err := p.Exchange(context.Background(), "abc123")

			var exErr *ExchangeError
			require.True(t, errors.As(err, &exErr), "want *ExchangeError, got %v", err)
			assert.Equal(t, tt.want, *exErr)
			assert.Equal(t, 1, calls, "a failed exchange must not be retried")
		})
	}
}

func TestExchange_EmptyCodeIsForwarded(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.True(t, r.PostForm.Has("code"))
		assert.Empty(t, r.PostForm.Get("code"))
		writeForm(w, "error=bad_verification_code&error_description=The+code+passed+is+incorrect+or+expired.")
	}))

	_, err := p.Exchange(context.Background(), "")
	var exErr *ExchangeError
	assert.True(t, errors.As(err, &exErr))
}

func TestExchange_TransportFailure(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>unicorn</html>"))
	}))

	_, err := p.Exchange(context.Background(), "abc123")
	require.Error(t, err)

	var exErr *ExchangeError
	assert.False(t, errors.As(err, &exErr), "a 502 page is not an OAuth error")
}

func TestExchange_MissingAccessToken(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeForm(w, "token_type=bearer")
	}))

	_, err := p.Exchange(context.Background(), "abc123")
	assert.Error(t, err)
}

func TestExchange_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	p := NewGitHubProvider(ProviderConfig{
		ClientID:   "c",
		OAuthURL:   srv.URL,
		Timeout:    50 * time.Millisecond,
		HTTPClient: srv.Client(),
	})

	start := time.Now()
	_, err := p.Exchange(context.Background(), "abc123")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

// =========================================================================
// User
// =========================================================================

func TestUser(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		assert.Equal(t, "uploader-auth-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"login":"alice","id":42,"url":"https://api.github.com/users/alice","repos_url":"https://api.github.com/users/alice/repos","name":"Alice"}`))
	}))

	identity, err := p.User(context.Background(), &oauth2.Token{AccessToken: "tok1", TokenType: "bearer"})
	require.NoError(t, err)

	assert.Equal(t, "alice", identity.Login)
	assert.Equal(t, int64(42), identity.ID)
	assert.Equal(t, "https://api.github.com/users/alice", identity.URL)
	assert.Equal(t, "https://api.github.com/users/alice/repos", identity.ReposURL)
}

func TestUser_MalformedBody(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"login":`))
	}))

	_, err := p.User(context.Background(), &oauth2.Token{AccessToken: "tok1"})
	assert.Error(t, err)
}

func TestUser_Unauthorized(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := p.User(context.Background(), &oauth2.Token{AccessToken: "revoked"})
	assert.Error(t, err)
}

// =========================================================================
// IsCollaborator
// =========================================================================

func TestIsCollaborator(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"204 is a collaborator", http.StatusNoContent, true},
		{"404 is not", http.StatusNotFound, false},
		{"403 is not", http.StatusForbidden, false},
		{"401 is not", http.StatusUnauthorized, false},
		{"200 is not", http.StatusOK, false},
		{"500 is not", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/acme/uploads/collaborators/alice", r.URL.Path)
				assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
				assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
				w.WriteHeader(tt.status)
			}))

			got, err := p.IsCollaborator(context.Background(), &oauth2.Token{AccessToken: "tok1"}, "acme/uploads", "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsCollaborator_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing is listening any more

	p := NewGitHubProvider(ProviderConfig{APIURL: srv.URL, Timeout: time.Second})

	_, err := p.IsCollaborator(context.Background(), &oauth2.Token{AccessToken: "tok1"}, "acme/uploads", "alice")
	assert.Error(t, err)
}
