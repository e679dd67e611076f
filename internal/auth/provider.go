// Package auth is the boundary to the external identity provider.
//
// The provider (Supabase Auth in production) owns every session: it exchanges
// OAuth codes, validates bearer tokens (including expiry and revocation) and
// revokes sessions. Nothing here verifies a production token locally.
//
// Provider failures are normalized at this boundary into the apperror
// taxonomy: apperror.ErrExchange for code exchange and refresh,
// apperror.ErrInvalidToken for token validation.
package auth

import (
	"context"

	"github.com/sakif/devdate/internal/model"
)

// TokenVerifier validates a bearer token with the identity provider.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (*model.AuthUser, error)
}

// IdentityProvider is the full contract of the external identity provider.
type IdentityProvider interface {
	TokenVerifier

	// AuthorizationURL returns the provider-hosted GitHub sign-in URL. Pure
	// string construction; redirectTo is not validated and may be empty.
	AuthorizationURL(redirectTo string) string

	// ExchangeCode trades an OAuth redirect code for a session.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*model.Session, *model.AuthUser, error)

	// RefreshSession trades a refresh token for a new session.
	RefreshSession(ctx context.Context, refreshToken string) (*model.Session, *model.AuthUser, error)

	// RevokeSession signs the token's session out. Best-effort: failures are
	// swallowed because the client discards its tokens regardless.
	RevokeSession(ctx context.Context, token string)
}
