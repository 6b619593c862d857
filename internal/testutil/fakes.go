// fakes.go
//
// Shared fakes for the GitHub client and the session store. Imported by test
// files across packages so the service and handler tests drive the same
// doubles.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/uploader-auth/internal/apperror"
	"github.com/sakif/uploader-auth/internal/model"
)

// FakeGitHub implements service.GitHub.
//
// Set the *Err fields to inject failures. Collaborators lists the logins for
// which IsCollaborator answers true. Calls records every method called, in
// order, so tests can assert what was (not) reached.
type FakeGitHub struct {
	Token    *oauth2.Token
	Identity *model.Identity

	Collaborators map[string]bool

	ExchangeErr     error
	UserErr         error
	CollaboratorErr error

	mu        sync.Mutex
	Calls     []string
	Codes     []string
	CheckedIn []string // repo of every IsCollaborator call
}

func (f *FakeGitHub) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

func (f *FakeGitHub) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.record("exchange")
	f.mu.Lock()
	f.Codes = append(f.Codes, code)
	f.mu.Unlock()
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	return f.Token, nil
}

func (f *FakeGitHub) User(_ context.Context, _ *oauth2.Token) (*model.Identity, error) {
	f.record("user")
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	return f.Identity, nil
}

func (f *FakeGitHub) IsCollaborator(_ context.Context, _ *oauth2.Token, repo, login string) (bool, error) {
	f.record("collaborator")
	f.mu.Lock()
	f.CheckedIn = append(f.CheckedIn, repo)
	f.mu.Unlock()
	if f.CollaboratorErr != nil {
		return false, f.CollaboratorErr
	}
	return f.Collaborators[login], nil
}

// Put is one recorded SessionStore write.
type Put struct {
	Key   string
	Value string
	TTL   time.Duration
}

// MemoryStore implements repository.SessionStore with a map.
//
// Entries never expire on their own; tests read Puts to check TTLs.
// FailPrefixes makes Put fail for every key starting with one of them.
type MemoryStore struct {
	FailPrefixes []string
	GetErr       error
	DeleteErr    error
	PingErr      error

	mu      sync.Mutex
	Entries map[string]string
	Puts    []Put
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Entries: make(map[string]string)}
}

func (m *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.FailPrefixes {
		if strings.HasPrefix(key, p) {
			return &storeError{key: key}
		}
	}
	if m.Entries == nil {
		m.Entries = make(map[string]string)
	}
	m.Entries[key] = value
	m.Puts = append(m.Puts, Put{Key: key, Value: value, TTL: ttl})
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Entries[key]
	if !ok {
		return "", apperror.NotFound("entry")
	}
	return v, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Entries, key)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return m.PingErr }

func (m *MemoryStore) Close() error { return nil }

// PutCount returns the number of successful writes so far.
func (m *MemoryStore) PutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Puts)
}

type storeError struct{ key string }

func (e *storeError) Error() string { return "injected store failure for " + e.key }
