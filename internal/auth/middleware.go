package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue accepts any key. With a plain string key such as
// "authUser", any package that knows the string could read or shadow the
// value. A package-private type means only this package can create a key of
// type contextKey, so only UserFromContext and TokenFromContext can read them.
type contextKey string

const (
	userKey  contextKey = "authUser"
	tokenKey contextKey = "bearerToken"
)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the bearer token from the Authorization header, asks the identity
// provider to validate it, and stores the AuthUser and the raw token in the
// request context. If the token is missing or rejected it writes 401 and
// stops the chain: the wrapped handler, and so the service layer, never runs.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler that
// wraps it:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... after the handler ...
//	    })
//	}
//
// RequireAuth takes its dependencies first and returns that shape, so it
// plugs straight into chi: r.Use(auth.RequireAuth(provider, logger)).
//
// REMOTE VALIDATION:
// Nothing is verified locally. Every request costs one call to the provider,
// which is the authority on signature, expiry and revocation. The token
// itself is never logged; Fingerprint gives a stable, non-reversible handle.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				unauthorized(w, "Missing authorization token")
				return
			}

			user, err := verifier.ValidateToken(r.Context(), token)
			if err != nil {
				logger.Debug("bearer token rejected",
					slog.String("token_fp", Fingerprint(token)),
					slog.String("error", err.Error()),
				)
				msg := "Invalid or expired token"
				var appErr *apperror.AppError
				if errors.As(err, &appErr) {
					msg = appErr.Message
				}
				unauthorized(w, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, token)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is case-insensitive; an empty token counts as missing.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserFromContext returns the authenticated user set by RequireAuth.
func UserFromContext(ctx context.Context) (*model.AuthUser, bool) {
	u, ok := ctx.Value(userKey).(*model.AuthUser)
	return u, ok && u != nil
}

// TokenFromContext returns the bearer token validated by RequireAuth.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}

// WithUser returns a context carrying user and token, as RequireAuth would.
func WithUser(ctx context.Context, user *model.AuthUser, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}

// unauthorized writes the standard error body. It cannot use handler.writeError
// (handler imports auth), so the shape is repeated here.
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
