package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/model"
)

// compile-time check that *SupabaseProvider implements IdentityProvider
var _ IdentityProvider = (*SupabaseProvider)(nil)

// SupabaseOptions configures a SupabaseProvider.
type SupabaseOptions struct {
	URL        string
	AnonKey    string
	ServiceKey string        // optional; used for session revocation
	Timeout    time.Duration // per call
}

// SupabaseProvider talks to the Supabase Auth (GoTrue) REST API.
//
// ENDPOINTS USED:
//
//	GET  /auth/v1/authorize?provider=github      → AuthorizationURL (browser)
//	POST /auth/v1/token?grant_type=pkce          → ExchangeCode
//	POST /auth/v1/token?grant_type=refresh_token → RefreshSession
//	GET  /auth/v1/user                           → ValidateToken
//	POST /auth/v1/logout?scope=global            → RevokeSession
//
// KEYS:
// Every call carries the project's anon key in the "apikey" header. Calls made
// on behalf of a user also send the user's access token as the bearer; the
// others send the key itself. Logout prefers the service key when one is set.
type SupabaseProvider struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSupabaseProvider creates a provider for the project at opts.URL.
func NewSupabaseProvider(opts SupabaseOptions, logger *slog.Logger) *SupabaseProvider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SupabaseProvider{
		baseURL:    strings.TrimRight(opts.URL, "/"),
		anonKey:    opts.AnonKey,
		serviceKey: opts.ServiceKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "supabase_auth")),
	}
}

// tokenResponse is the GoTrue /token response.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	User         *userResponse `json:"user"`
}

// userResponse is the subset of the GoTrue user object we read.
type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u *userResponse) toModel() *model.AuthUser {
	return &model.AuthUser{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

// AuthorizationURL returns {url}/auth/v1/authorize?provider=github&redirect_to=...
func (p *SupabaseProvider) AuthorizationURL(redirectTo string) string {
	return buildAuthorizationURL(p.baseURL, redirectTo)
}

func buildAuthorizationURL(baseURL, redirectTo string) string {
	q := url.Values{
		"provider":    {"github"},
		"redirect_to": {redirectTo},
	}
	return baseURL + "/auth/v1/authorize?" + q.Encode()
}

// ExchangeCode completes the PKCE flow started by AuthorizationURL.
//
// PKCE IN ONE PARAGRAPH:
// The browser keeps a random code_verifier and sends only its hash when it
// starts the flow. GitHub redirects back with a one-time code, and the
// provider only trades that code for a session when the matching verifier is
// presented. A stolen code alone is useless.
func (p *SupabaseProvider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*model.Session, *model.AuthUser, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil, apperror.Exchange("auth code is required")
	}

	body := map[string]string{"auth_code": code, "code_verifier": codeVerifier}
	return p.grant(ctx, "pkce", body)
}

// RefreshSession issues a new session for a refresh token.
func (p *SupabaseProvider) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, *model.AuthUser, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, nil, apperror.Exchange("refresh token is required")
	}

	body := map[string]string{"refresh_token": refreshToken}
	return p.grant(ctx, "refresh_token", body)
}

func (p *SupabaseProvider) grant(ctx context.Context, grantType string, body any) (*model.Session, *model.AuthUser, error) {
	var resp tokenResponse
	err := p.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grantType}},
		apiKey: p.anonKey,
		body:   body,
	}, &resp)
	if err != nil {
		return nil, nil, apperror.Exchange(causeOf(err))
	}

	if resp.AccessToken == "" || resp.User == nil || resp.User.ID == "" {
		return nil, nil, apperror.Exchange("no session returned")
	}

	session := &model.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    model.TokenTypeBearer,
		ExpiresIn:    resp.ExpiresIn,
	}
	return session, resp.User.toModel(), nil
}

// ValidateToken asks the provider who owns token. The provider rejects
// expired and revoked sessions.
func (p *SupabaseProvider) ValidateToken(ctx context.Context, token string) (*model.AuthUser, error) {
	if token == "" {
		return nil, apperror.InvalidToken("missing token")
	}

	var user userResponse
	err := p.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		apiKey: p.anonKey,
		bearer: token,
	}, &user)
	if err != nil {
		return nil, apperror.InvalidToken(causeOf(err))
	}
	if user.ID == "" {
		return nil, apperror.InvalidToken("no user returned")
	}

	return user.toModel(), nil
}

// RevokeSession signs out every session of the token's user.
func (p *SupabaseProvider) RevokeSession(ctx context.Context, token string) {
	if token == "" {
		return
	}

	apiKey := p.serviceKey
	if apiKey == "" {
		apiKey = p.anonKey
	}

	err := p.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		query:  url.Values{"scope": {"global"}},
		apiKey: apiKey,
		bearer: token,
	}, nil)
	if err != nil {
		p.logger.Debug("session revocation failed",
			slog.String("token_fp", Fingerprint(token)),
			slog.String("error", err.Error()),
		)
	}
}

// request describes one call to the provider. An empty bearer means the API
// key is sent as the bearer too.
type request struct {
	method string
	path   string
	query  url.Values
	apiKey string
	bearer string
	body   any
}

// providerError is a non-2xx answer from the provider.
type providerError struct {
	Status  int
	Message string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// do performs a request and decodes a 2xx JSON body into out (if non-nil).
//
// ERROR HANDLING:
// Transport errors come back as is. A non-2xx answer becomes *providerError
// carrying the provider's own message. The public methods then fold both
// into one apperror kind (Exchange or InvalidToken) through causeOf.
func (p *SupabaseProvider) do(ctx context.Context, r request, out any) error {
	endpoint := p.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", r.apiKey)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	bearer := r.bearer
	if bearer == "" {
		bearer = r.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &providerError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorMessage pulls the human-readable text out of the provider's error
// bodies, which come in several shapes depending on the endpoint.
func errorMessage(status int, raw []byte) string {
	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		for _, s := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if s != "" {
				return s
			}
		}
	}
	return http.StatusText(status)
}

// causeOf renders an error as the cause string of an apperror. Timeouts get a
// fixed wording so callers do not see transport internals.
func causeOf(err error) string {
	var pe *providerError
	if errors.As(err, &pe) {
		return pe.Message
	}
	if isTimeout(err) {
		return "auth provider timed out"
	}
	return err.Error()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
