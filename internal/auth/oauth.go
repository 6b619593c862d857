package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ProviderConfig holds everything the GitHub client needs. It is built once
// in server.New from config.Config; nothing here reads the environment.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scope        string // single scope string, sent as-is, e.g. "read:user"

	// OAuthURL and APIURL default to github.com and api.github.com.
	// Tests point them at httptest servers.
	OAuthURL string
	APIURL   string

	UserAgent string
	Timeout   time.Duration // per upstream call; zero means DefaultTimeout

	// HTTPClient is used for every outbound call. nil means http.DefaultClient.
	HTTPClient *http.Client
}

// DefaultTimeout bounds each call to GitHub when ProviderConfig.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// GitHubProvider talks to GitHub for the login flow: it builds the
// authorization URL, trades codes for tokens, and reads the user and
// collaborator endpoints with the resulting token.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the browser to GitHub with our client_id and scope.
//  2. The user approves on GitHub.
//  3. GitHub redirects back to our callback with a short-lived "code".
//  4. We exchange the code for an access token, server to server, using
//     our client secret. The token never reaches the browser.
//  5. We call the GitHub API with the token.
type GitHubProvider struct {
	config    *oauth2.Config
	apiURL    string
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

// NewGitHubProvider creates a GitHubProvider.
//
// The token endpoint is called with AuthStyleInParams: client_id and
// client_secret travel in the form body next to code and redirect_uri,
// which is what GitHub documents. It also stops x/oauth2 from probing with
// basic auth first and sending a second request when the first one fails.
func NewGitHubProvider(cfg ProviderConfig) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.OAuthURL != "" {
		base := strings.TrimRight(cfg.OAuthURL, "/")
		endpoint.AuthURL = base + "/login/oauth/authorize"
		endpoint.TokenURL = base + "/login/oauth/access_token"
		endpoint.DeviceAuthURL = base + "/login/device/code"
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiURL := "https://api.github.com"
	if cfg.APIURL != "" {
		apiURL = strings.TrimRight(cfg.APIURL, "/")
	}

	var scopes []string
	if cfg.Scope != "" {
		scopes = []string{cfg.Scope}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "uploader-auth"
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		apiURL:    apiURL,
		userAgent: userAgent,
		timeout:   timeout,
		client:    client,
	}
}

// AuthURL returns the GitHub authorization URL carrying client_id,
// redirect_uri and scope.
//
// No state parameter is attached: anti-forgery protection for the callback
// is an open requirement (see DESIGN.md).
func (p *GitHubProvider) AuthURL() string {
	return p.config.AuthCodeURL("")
}

// ExchangeError is an OAuth error reported by the token endpoint.
//
// GitHub answers the token request with a form-encoded parameter set and,
// for errors, status 200. The "error" key is the only failure signal.
type ExchangeError struct {
	Code        string
	Description string
	URI         string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("auth: token endpoint returned %s: %s", e.Code, e.Description)
}

// Exchange trades an authorization code for an access token.
//
// Returns *ExchangeError when the provider reports an OAuth error, and a
// wrapped transport or decoding error for anything else.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.ErrorCode != "" {
			return nil, exchangeError(rerr)
		}
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	return token, nil
}

// exchangeError lifts the provider's error fields out of a RetrieveError.
//
// x/oauth2 reads error, error_description and error_uri. Some deployments
// send the description under plain "description", so the raw body is
// re-read as a parameter set to recover it.
func exchangeError(rerr *oauth2.RetrieveError) *ExchangeError {
	e := &ExchangeError{
		Code:        rerr.ErrorCode,
		Description: rerr.ErrorDescription,
		URI:         rerr.ErrorURI,
	}

	if e.Description == "" || e.URI == "" {
		if vals, err := url.ParseQuery(string(rerr.Body)); err == nil {
			if e.Description == "" {
				e.Description = vals.Get("description")
			}
			if e.URI == "" {
				e.URI = vals.Get("error_uri")
			}
		}
	}

	return e
}

// callContext bounds one upstream call and hands our HTTP client to x/oauth2.
func (p *GitHubProvider) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	return context.WithTimeout(ctx, p.timeout)
}
