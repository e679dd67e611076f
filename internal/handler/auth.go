package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/devdate/internal/auth"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/service"
)

// AuthFlow is the part of service.AuthService the auth routes use.
type AuthFlow interface {
	AuthorizationURL(redirectTo string) string
	CompleteLogin(ctx context.Context, code, codeVerifier string) (*service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.LoginResult, error)
	Me(ctx context.Context, user *model.AuthUser) (*service.MeResult, error)
	Logout(ctx context.Context, token string)
}

// AuthHandler serves /auth: the GitHub sign-in handshake and session
// management. The identity provider owns the sessions; these routes only
// relay them.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (JSON body, bearer token from the context)
//  2. Call the AuthFlow
//  3. Write the JSON response or hand the error to writeError
//
// No sign-in rules live here.
//
// DEPENDENCY CHAIN:
//
//	AuthHandler → AuthFlow (service.AuthService) → IdentityProvider + Enricher
type AuthHandler struct {
	flow   AuthFlow
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler with the given flow and logger.
func NewAuthHandler(flow AuthFlow, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{flow: flow, logger: logger}
}

// AuthURLResponse carries the provider URL the client opens to sign in.
type AuthURLResponse struct {
	URL string `json:"url"`
}

// CallbackRequest is the body of POST /auth/callback.
type CallbackRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is returned after a successful login or refresh.
type SessionResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenType    string             `json:"token_type"`
	ExpiresIn    int                `json:"expires_in"`
	User         model.AuthUserView `json:"user"`
}

func sessionResponse(res *service.LoginResult) SessionResponse {
	return SessionResponse{
		AccessToken:  res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
		TokenType:    res.Session.TokenType,
		ExpiresIn:    res.Session.ExpiresIn,
		User:         res.User.View(),
	}
}

// HandleGitHubURL returns the URL that starts GitHub sign-in.
//
// HTTP: POST /api/v1/auth/github?redirect_to=<url>
func (h *AuthHandler) HandleGitHubURL(w http.ResponseWriter, r *http.Request) {
	redirectTo := r.URL.Query().Get("redirect_to")
	writeJSON(w, http.StatusOK, AuthURLResponse{URL: h.flow.AuthorizationURL(redirectTo)})
}

// HandleCallback exchanges the code from the OAuth redirect for a session.
//
// HTTP: POST /api/v1/auth/callback
// REQUEST BODY: {"code": "...", "code_verifier": "..."}
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.flow.CompleteLogin(r.Context(), req.Code, req.CodeVerifier)
	if err != nil {
		h.logger.Info("login rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(res))
}

// HandleRefresh trades a refresh token for a new session.
//
// HTTP: POST /api/v1/auth/refresh
// REQUEST BODY: {"refresh_token": "..."}
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.flow.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(res))
}

// HandleMe returns the authenticated user's identity summary.
//
// HTTP: GET /api/v1/auth/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, errNoUser)
		return
	}

	me, err := h.flow.Me(r.Context(), user)
	if err != nil {
		h.logger.Error("HandleMe: loading profile", slog.String("userID", user.ID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, me)
}

// HandleLogout revokes the caller's session at the provider. Revocation is
// best effort; the client discards its tokens either way.
//
// HTTP: POST /api/v1/auth/logout
// Auth: required
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.TokenFromContext(r.Context()); ok {
		h.flow.Logout(r.Context(), token)
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}
