package model

import (
	"fmt"
	"time"
)

// SessionTTL is the lifetime of every entry the login flow writes:
// both the session record and the cached GitHub token.
const SessionTTL = 30 * 24 * time.Hour

// SessionCookie is the name of the cookie carrying the session ID.
const SessionCookie = "_session"

// KEY LAYOUT:
// The session store is a flat key/value namespace shared with other tools,
// so every key carries a kind prefix and a schema version:
//
//	github-token/1/<login>     → access token
//	session/1/<session-id>     → login
//
// Bumping the version lets a future format coexist with live sessions.

// TokenKey returns the store key of the cached access token for login.
func TokenKey(login string) string {
	return fmt.Sprintf("github-token/1/%s", login)
}

// SessionKey returns the store key of the session record for id.
func SessionKey(id string) string {
	return fmt.Sprintf("session/1/%s", id)
}

// Session is a signed-in browser: the opaque ID handed out in the cookie and
// the GitHub login it maps to.
type Session struct {
	ID    string
	Login string
}
