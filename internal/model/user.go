// Package model defines the data structures shared across the login flow.
package model

// Identity is the part of GitHub's GET /user response the login flow reads.
//
// It is fetched fresh on every callback and never stored. Only Login leaves
// the callback: it becomes the value of the session record and part of the
// token cache key.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type Identity struct {
	Login    string `json:"login"`     // GitHub username, e.g. "octocat"
	ID       int64  `json:"id"`        // stable numeric account ID
	URL      string `json:"url"`       // API URL of the account
	ReposURL string `json:"repos_url"` // API URL of the account's repositories
}
