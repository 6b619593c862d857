// Package service implements the login flow.
//
// AuthService sits between the HTTP handlers and everything with a failure
// mode of its own:
//
//	AuthHandler (HTTP) → AuthService → GitHub (token, user, collaborator)
//	                                 ↘ SessionStore (token cache, sessions)
//
// It is the only caller of the GitHub client and the only writer to the
// session store. It never touches http.ResponseWriter: every outcome is a
// return value, and the handler turns it into a status code.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/uploader-auth/internal/apperror"
	"github.com/sakif/uploader-auth/internal/auth"
	"github.com/sakif/uploader-auth/internal/metrics"
	"github.com/sakif/uploader-auth/internal/model"
	"github.com/sakif/uploader-auth/internal/repository"
)

// GitHub is the part of *auth.GitHubProvider the login flow calls.
// Tests substitute a fake.
type GitHub interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	User(ctx context.Context, token *oauth2.Token) (*model.Identity, error)
	IsCollaborator(ctx context.Context, token *oauth2.Token, repo, login string) (bool, error)
}

// LoginObserver is told the outcome of every callback. *metrics.Metrics
// implements it.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveLogin(string) {}

// AuthService runs the OAuth callback and answers session lookups.
//
// DEPENDENCIES (injected via NewAuthService):
//   - github    GitHub                   → token exchange, identity, collaborator check
//   - store     repository.SessionStore  → token cache and session records
//   - repo      string                   → "owner/name" the caller must collaborate on
//   - observer  LoginObserver            → callback outcome metrics (may be nil)
//   - logger    *slog.Logger
type AuthService struct {
	github   GitHub
	store    repository.SessionStore
	repo     string
	observer LoginObserver
	logger   *slog.Logger

	// newSessionID is swapped in tests that need a failing generator.
	newSessionID func() (string, error)
}

// NewAuthService creates an AuthService. Call this in server.New when wiring
// the dependency graph.
func NewAuthService(
	github GitHub,
	store repository.SessionStore,
	repo string,
	observer LoginObserver,
	logger *slog.Logger,
) *AuthService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &AuthService{
		github:       github,
		store:        store,
		repo:         repo,
		observer:     observer,
		logger:       logger,
		newSessionID: newSessionID,
	}
}

// newSessionID returns a random (version 4) UUID. uuid.NewRandom reads
// crypto/rand, so IDs are unguessable as well as unique.
func newSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CompleteLogin runs the callback for one authorization code.
//
// FLOW (each step needs the previous step's output, so nothing overlaps):
//  1. Exchange the code for an access token.
//  2. Resolve the token's GitHub login.
//  3. Check the login is a collaborator on the configured repository.
//  4. Write the token cache entry and the new session record, concurrently.
//
// On success it returns the new session; the caller sets the cookie.
//
// ERRORS (all *apperror.AppError):
//   - ErrExchange           the provider rejected the code
//   - ErrUpstream           GitHub unreachable, timed out or answered garbage
//   - ErrNotCollaborator    valid identity, no access; nothing is written
//   - ErrPersistence        neither store write landed
//   - ErrPartialPersistence exactly one store write landed
//
// Nothing is retried.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*model.Session, error) {
	token, err := s.github.Exchange(ctx, code)
	if err != nil {
		var exErr *auth.ExchangeError
		if errors.As(err, &exErr) {
			s.observer.ObserveLogin(metrics.OutcomeExchangeFailed)
			s.logger.Info("token exchange rejected",
				slog.String("error", exErr.Code),
				slog.String("description", exErr.Description),
			)
			return nil, apperror.Exchange(exErr.Code, exErr.Description, exErr.URI)
		}
		return nil, s.upstream("exchanging code", err)
	}

	identity, err := s.github.User(ctx, token)
	if err != nil {
		return nil, s.upstream("resolving identity", err)
	}

	ok, err := s.github.IsCollaborator(ctx, token, s.repo, identity.Login)
	if err != nil {
		return nil, s.upstream("checking collaborator", err)
	}
	if !ok {
		s.observer.ObserveLogin(metrics.OutcomeNotCollaborator)
		s.logger.Info("login refused: not a collaborator",
			slog.String("login", identity.Login),
			slog.String("repo", s.repo),
		)
		return nil, apperror.NotCollaborator()
	}

	id, err := s.newSessionID()
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating session id: %w", err)
	}

	session := &model.Session{ID: id, Login: identity.Login}
	if err := s.persist(ctx, session, token.AccessToken); err != nil {
		return nil, err
	}

	s.observer.ObserveLogin(metrics.OutcomeSuccess)
	s.logger.Info("user signed in",
		slog.String("login", identity.Login),
		slog.Int64("githubID", identity.ID),
	)

	return session, nil
}

// persist writes the token cache entry and the session record.
//
// The two writes are independent, so they run concurrently and both are
// always attempted. There is no rollback: when only one lands, the result is
// reported as a partial failure and no cookie is handed out.
func (s *AuthService) persist(ctx context.Context, session *model.Session, accessToken string) error {
	var (
		g                    errgroup.Group
		tokenErr, sessionErr error
	)

	g.Go(func() error {
		tokenErr = s.store.Put(ctx, model.TokenKey(session.Login), accessToken, model.SessionTTL)
		return tokenErr
	})
	g.Go(func() error {
		sessionErr = s.store.Put(ctx, model.SessionKey(session.ID), session.Login, model.SessionTTL)
		return sessionErr
	})

	if g.Wait() == nil {
		return nil
	}

	switch {
	case tokenErr != nil && sessionErr != nil:
		s.observer.ObserveLogin(metrics.OutcomePersistenceFailure)
		s.logger.Error("session persistence failed",
			slog.String("login", session.Login),
			slog.String("token_error", tokenErr.Error()),
			slog.String("session_error", sessionErr.Error()),
		)
		return apperror.Persistence(errors.Join(tokenErr, sessionErr))

	case tokenErr != nil:
		s.observer.ObserveLogin(metrics.OutcomePartialPersistence)
		s.logger.Error("session persisted without token cache entry",
			slog.String("login", session.Login),
			slog.String("error", tokenErr.Error()),
		)
		return apperror.PartialPersistence(fmt.Errorf("writing token cache entry: %w", tokenErr))

	default:
		s.observer.ObserveLogin(metrics.OutcomePartialPersistence)
		s.logger.Error("token cached without session record",
			slog.String("login", session.Login),
			slog.String("error", sessionErr.Error()),
		)
		return apperror.PartialPersistence(fmt.Errorf("writing session record: %w", sessionErr))
	}
}

func (s *AuthService) upstream(op string, err error) error {
	s.observer.ObserveLogin(metrics.OutcomeUpstreamFailure)
	s.logger.Error("GitHub call failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.Upstream(op, err)
}

// SessionLogin returns the login a live session was issued for.
// Unknown, expired and empty IDs all return apperror.ErrNotFound.
func (s *AuthService) SessionLogin(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", apperror.NotFound("session")
	}

	login, err := s.store.Get(ctx, model.SessionKey(sessionID))
	if err != nil {
		return "", fmt.Errorf("service/auth: looking up session: %w", err)
	}
	return login, nil
}

// Logout deletes the session record. The cached GitHub token is keyed by
// login, not by session, and stays.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, model.SessionKey(sessionID)); err != nil {
		return fmt.Errorf("service/auth: deleting session: %w", err)
	}
	return nil
}
