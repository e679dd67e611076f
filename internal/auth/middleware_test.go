package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devdate/internal/logger"
)

func TestRequireAuth(t *testing.T) {
	p := NewMemoryProvider("")
	u := p.AddUser("ada@example.com", map[string]any{"user_name": "ada"})
	session, err := p.IssueSession(u.ID)
	require.NoError(t, err)

	reached := false
	protected := RequireAuth(p, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, u.ID, user.ID)
		token, ok := TokenFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, session.AccessToken, token)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantReach  bool
	}{
		{name: "valid token", header: "Bearer " + session.AccessToken, wantStatus: http.StatusNoContent, wantReach: true},
		{name: "lowercase scheme", header: "bearer " + session.AccessToken, wantStatus: http.StatusNoContent, wantReach: true},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			protected.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantReach, reached)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
				var body map[string]string
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
				assert.Equal(t, "unauthorized", body["error"])
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	p := NewMemoryProvider("")
	u := p.AddUser("", nil)
	session, err := p.IssueSession(u.ID)
	require.NoError(t, err)
	p.RevokeSession(t.Context(), session.AccessToken)

	reached := false
	h := RequireAuth(p, logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, reached)
	assert.Contains(t, rr.Body.String(), "revoked")
}
