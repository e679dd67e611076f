package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/auth"
	"github.com/sakif/devdate/internal/handler"
	"github.com/sakif/devdate/internal/logger"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/service"
)

// MockAuthFlow records calls and returns canned results.
type MockAuthFlow struct {
	CapturedRedirect string
	CapturedCode     string
	CapturedVerifier string
	CapturedRefresh  string
	CapturedLogout   string

	ReturnLogin *service.LoginResult
	ReturnMe    *service.MeResult
	ReturnErr   error
}

func (m *MockAuthFlow) AuthorizationURL(redirectTo string) string {
	m.CapturedRedirect = redirectTo
	return "https://proj.supabase.co/auth/v1/authorize?provider=github&redirect_to=" + redirectTo
}

func (m *MockAuthFlow) CompleteLogin(_ context.Context, code, verifier string) (*service.LoginResult, error) {
	m.CapturedCode, m.CapturedVerifier = code, verifier
	return m.ReturnLogin, m.ReturnErr
}

func (m *MockAuthFlow) Refresh(_ context.Context, token string) (*service.LoginResult, error) {
	m.CapturedRefresh = token
	return m.ReturnLogin, m.ReturnErr
}

func (m *MockAuthFlow) Me(_ context.Context, _ *model.AuthUser) (*service.MeResult, error) {
	return m.ReturnMe, m.ReturnErr
}

func (m *MockAuthFlow) Logout(_ context.Context, token string) {
	m.CapturedLogout = token
}

func sampleLogin() *service.LoginResult {
	return &service.LoginResult{
		Session: &model.Session{AccessToken: "at", RefreshToken: "rt", TokenType: "bearer", ExpiresIn: 3600},
		User: &model.AuthUser{
			ID:       "u-1",
			Email:    "ada@example.com",
			Metadata: map[string]any{"user_name": "ada", "full_name": "Ada Lovelace"},
		},
	}
}

func withUser(r *http.Request, user *model.AuthUser, token string) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), user, token))
}

func TestAuthHandler_GitHubURL(t *testing.T) {
	flow := &MockAuthFlow{}
	h := handler.NewAuthHandler(flow, logger.Discard())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/github", nil)
	rr := httptest.NewRecorder()
	h.HandleGitHubURL(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "", flow.CapturedRedirect)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "https://proj.supabase.co/auth/v1/authorize?provider=github&redirect_to=", body["url"])
}

func TestAuthHandler_Callback(t *testing.T) {
	t.Run("valid code", func(t *testing.T) {
		flow := &MockAuthFlow{ReturnLogin: sampleLogin()}
		h := handler.NewAuthHandler(flow, logger.Discard())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback",
			bytes.NewBufferString(`{"code":"abc123","code_verifier":"v"}`))
		rr := httptest.NewRecorder()
		h.HandleCallback(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "abc123", flow.CapturedCode)
		assert.Equal(t, "v", flow.CapturedVerifier)

		var body handler.SessionResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "at", body.AccessToken)
		assert.Equal(t, "rt", body.RefreshToken)
		assert.Equal(t, "bearer", body.TokenType)
		assert.Equal(t, 3600, body.ExpiresIn)
		assert.Equal(t, "ada", body.User.GitHubUsername)
		require.NotNil(t, body.User.DisplayName)
		assert.Equal(t, "Ada Lovelace", *body.User.DisplayName)
	})

	t.Run("rejected code", func(t *testing.T) {
		flow := &MockAuthFlow{ReturnErr: apperror.Exchange("invalid flow state, no valid flow state found")}
		h := handler.NewAuthHandler(flow, logger.Discard())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", bytes.NewBufferString(`{"code":"bad"}`))
		rr := httptest.NewRecorder()
		h.HandleCallback(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var body handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "exchange_failed", body.Error)
		assert.Contains(t, body.Message, "Code exchange failed")
	})

	t.Run("malformed body", func(t *testing.T) {
		flow := &MockAuthFlow{}
		h := handler.NewAuthHandler(flow, logger.Discard())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", bytes.NewBufferString(`{"code":`))
		rr := httptest.NewRecorder()
		h.HandleCallback(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, flow.CapturedCode)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	flow := &MockAuthFlow{ReturnLogin: sampleLogin()}
	h := handler.NewAuthHandler(flow, logger.Discard())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewBufferString(`{"refresh_token":"rt-0"}`))
	rr := httptest.NewRecorder()
	h.HandleRefresh(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "rt-0", flow.CapturedRefresh)
}

func TestAuthHandler_Me(t *testing.T) {
	flow := &MockAuthFlow{ReturnMe: &service.MeResult{ID: "u-1", GitHubUsername: "unknown"}}
	h := handler.NewAuthHandler(flow, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = withUser(req, &model.AuthUser{ID: "u-1"}, "tok")
	rr := httptest.NewRecorder()
	h.HandleMe(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"u-1","email":null,"github_username":"unknown","avatar_url":null}`, rr.Body.String())
}

func TestAuthHandler_MeWithoutUser(t *testing.T) {
	h := handler.NewAuthHandler(&MockAuthFlow{}, logger.Discard())

	rr := httptest.NewRecorder()
	h.HandleMe(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
}

func TestAuthHandler_Logout(t *testing.T) {
	flow := &MockAuthFlow{}
	h := handler.NewAuthHandler(flow, logger.Discard())

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), &model.AuthUser{ID: "u-1"}, "tok-123")
	rr := httptest.NewRecorder()
	h.HandleLogout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "tok-123", flow.CapturedLogout)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, rr.Body.String())
}
