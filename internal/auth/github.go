package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/sakif/uploader-auth/internal/model"
)

// GitHub REST API headers sent on every API call.
// https://docs.github.com/en/rest/about-the-rest-api/api-versions
const (
	acceptHeader = "application/vnd.github+json"
	apiVersion   = "2022-11-28"
)

// User returns the profile of the account that owns token.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
func (p *GitHubProvider) User(ctx context.Context, token *oauth2.Token) (*model.Identity, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	resp, err := p.get(ctx, token, p.apiURL+"/user")
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var identity model.Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	return &identity, nil
}

// IsCollaborator reports whether login is a collaborator on repo ("owner/name").
//
// GitHub answers 204 for collaborators. Every other status counts as "no":
// 404 (not a collaborator, or the repo is invisible to the token) and 403
// (token lacks access) are deliberately not told apart, so the response never
// reveals whether the repository exists.
//
// GitHub API docs: https://docs.github.com/en/rest/collaborators/collaborators#check-if-a-user-is-a-repository-collaborator
func (p *GitHubProvider) IsCollaborator(ctx context.Context, token *oauth2.Token, repo, login string) (bool, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	endpoint := fmt.Sprintf("%s/repos/%s/collaborators/%s", p.apiURL, repo, url.PathEscape(login))

	resp, err := p.get(ctx, token, endpoint)
	if err != nil {
		return false, fmt.Errorf("auth: calling GitHub collaborators API: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection goes back to the pool.
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusNoContent, nil
}

// get issues an authenticated GET against the GitHub API.
//
// oauth2.NewClient wraps the context's HTTP client with a transport that adds
// "Authorization: Bearer <token>" to every request.
func (p *GitHubProvider) get(ctx context.Context, token *oauth2.Token, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", p.userAgent)

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return client.Do(req)
}
