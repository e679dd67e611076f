// Package service: the GitHub sign-in flow.
//
// AuthService sits between the auth routes and the identity provider:
//
//	AuthHandler (HTTP) → AuthService (sign-in rules) → IdentityProvider (Supabase Auth)
//	                                                 ↘ Enricher → GitHub, ProfileRepository
//
// KEY RESPONSIBILITIES:
//   - Turn a one-time OAuth code into a session (CompleteLogin)
//   - Refresh the user's profile from GitHub right after sign-in
//   - Relay refresh, logout and "who am I" to the provider
//
// NOTE ON TOKENS:
// This service never signs, parses or stores a token. Supabase issues them,
// and every protected request asks Supabase whether the token is still good
// (see auth.RequireAuth). Expiry and revocation are the provider's call.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/auth"
	"github.com/sakif/devdate/internal/metrics"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/repository"
)

// AuthService runs the GitHub sign-in flow against the identity provider.
//
// DEPENDENCIES (injected via NewAuthService):
//   - provider  auth.IdentityProvider         → code exchange, refresh, logout
//   - profiles  repository.ProfileRepository  → profile row for /auth/me
//   - enricher  *Enricher                     → post-login GitHub refresh
//   - logger    *slog.Logger                  → structured logging
type AuthService struct {
	provider auth.IdentityProvider
	profiles repository.ProfileRepository
	enricher *Enricher
	logger   *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// server.New calls this when wiring the dependency graph.
func NewAuthService(
	provider auth.IdentityProvider,
	profiles repository.ProfileRepository,
	enricher *Enricher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		provider: provider,
		profiles: profiles,
		enricher: enricher,
		logger:   logger,
	}
}

// LoginResult is the session handed back to the client after a login or
// refresh, together with the user it belongs to.
type LoginResult struct {
	Session *model.Session
	User    *model.AuthUser
}

// MeResult is the identity summary returned by /auth/me.
type MeResult struct {
	ID             string  `json:"id"`
	Email          *string `json:"email"`
	GitHubUsername string  `json:"github_username"`
	AvatarURL      *string `json:"avatar_url"`
}

// AuthorizationURL returns the provider URL that starts GitHub sign-in.
func (s *AuthService) AuthorizationURL(redirectTo string) string {
	return s.provider.AuthorizationURL(redirectTo)
}

// CompleteLogin exchanges the one-time code for a session and then refreshes
// the user's profile from GitHub.
//
// THE TWO STEPS:
//  1. ExchangeCode at the provider. On failure the login is rejected with an
//     apperror.ErrExchange (HTTP 400) and nothing else happens: no enrichment,
//     no profile write.
//  2. Enrich the profile with the user's GitHub username. The error comes back
//     as a plain value and is dropped right here, after being counted and
//     logged at debug. A panic inside the enricher is also turned into that
//     error value (see Enricher.Enrich).
//
// TERMINAL STATES:
// The caller sees exactly two outcomes: Authenticated (session returned) or
// Rejected (exchange error). A GitHub outage cannot block sign-in.
func (s *AuthService) CompleteLogin(ctx context.Context, code, codeVerifier string) (*LoginResult, error) {
	session, user, err := s.provider.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	s.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.String("token_fp", auth.Fingerprint(session.AccessToken)),
	)

	if username := user.GitHubUsername(); username != "" {
		// Best effort: the session is returned whatever happens here.
		_, enrichErr := s.enricher.Enrich(ctx, user.ID, username)
		metrics.ObserveEnrichment(metrics.TriggerLogin, enrichErr)
		if enrichErr != nil {
			s.logger.Debug("login enrichment skipped",
				slog.String("userID", user.ID),
				slog.String("error", enrichErr.Error()),
			)
		}
	}

	return &LoginResult{Session: session, User: user}, nil
}

// Refresh trades a refresh token for a new session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	session, user, err := s.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: session, User: user}, nil
}

// Me describes the authenticated user.
//
// DATA SOURCES:
//   - Profile row exists → github_username and avatar_url come from the row,
//     even when the row's avatar is null
//   - No row yet (the sign-up trigger has not run) → both come from the
//     provider metadata, with "unknown" standing in for a missing username
//
// Any other store error is returned as is.
func (s *AuthService) Me(ctx context.Context, user *model.AuthUser) (*MeResult, error) {
	view := user.View()
	me := &MeResult{
		ID:             view.ID,
		Email:          view.Email,
		GitHubUsername: view.GitHubUsername,
		AvatarURL:      view.AvatarURL,
	}
	if me.GitHubUsername == "" {
		me.GitHubUsername = model.UnknownUsername
	}

	profile, err := s.profiles.GetByID(ctx, user.ID)
	switch {
	case err == nil:
		me.GitHubUsername = profile.GitHubUsername
		me.AvatarURL = profile.AvatarURL
	case errors.Is(err, apperror.ErrNotFound):
		// No row yet: the metadata view stands in for it.
	default:
		return nil, err
	}

	return me, nil
}

// Logout asks the provider to revoke the session. It always succeeds from the
// caller's point of view.
func (s *AuthService) Logout(ctx context.Context, token string) {
	s.provider.RevokeSession(ctx, token)
}
