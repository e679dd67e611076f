package auth

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/model"
)

// compile-time check that *MemoryProvider implements IdentityProvider
var _ IdentityProvider = (*MemoryProvider)(nil)

// MemoryProvider is an in-process IdentityProvider for tests and local runs
// without a Supabase project. It signs its own access tokens with a random
// secret, hands out one-time auth codes and tracks revocation, mirroring the
// provider-side behaviour the rest of the service relies on.
type MemoryProvider struct {
	baseURL string
	tokens  *TokenService
	ttl     time.Duration

	mu      sync.Mutex
	users   map[string]*model.AuthUser // by ID
	codes   map[string]string          // auth code → user ID
	refresh map[string]string          // refresh token → user ID
	revoked map[string]bool            // access tokens
}

// NewMemoryProvider creates an empty provider. baseURL only affects AuthorizationURL.
func NewMemoryProvider(baseURL string) *MemoryProvider {
	// Two xids give a 40-character secret, unique per provider.
	tokens, err := NewTokenService(xid.New().String() + xid.New().String())
	if err != nil {
		panic(err) // unreachable: the secret is always long enough
	}
	return &MemoryProvider{
		baseURL: baseURL,
		tokens:  tokens,
		ttl:     time.Hour,
		users:   make(map[string]*model.AuthUser),
		codes:   make(map[string]string),
		refresh: make(map[string]string),
		revoked: make(map[string]bool),
	}
}

// AddUser registers a user with a fresh UUID subject.
func (p *MemoryProvider) AddUser(email string, metadata map[string]any) *model.AuthUser {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := &model.AuthUser{ID: uuid.NewString(), Email: email, Metadata: metadata}
	p.users[u.ID] = u
	return u
}

// IssueCode returns a one-time auth code for userID, as the provider would
// after a successful GitHub consent.
func (p *MemoryProvider) IssueCode(userID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	code := xid.New().String()
	p.codes[code] = userID
	return code
}

// IssueSession mints a session for userID directly.
func (p *MemoryProvider) IssueSession(userID string) (*model.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, _, err := p.mintLocked(userID)
	return s, err
}

// Revoked reports whether token was revoked through RevokeSession.
func (p *MemoryProvider) Revoked(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked[token]
}

func (p *MemoryProvider) AuthorizationURL(redirectTo string) string {
	return buildAuthorizationURL(p.baseURL, redirectTo)
}

func (p *MemoryProvider) ExchangeCode(_ context.Context, code, _ string) (*model.Session, *model.AuthUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.codes[code]
	if !ok {
		return nil, nil, apperror.Exchange("invalid flow state, no valid flow state found")
	}
	delete(p.codes, code)

	return p.mintLocked(userID)
}

func (p *MemoryProvider) RefreshSession(_ context.Context, refreshToken string) (*model.Session, *model.AuthUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.refresh[refreshToken]
	if !ok {
		return nil, nil, apperror.Exchange("Invalid Refresh Token: Refresh Token Not Found")
	}
	delete(p.refresh, refreshToken)

	return p.mintLocked(userID)
}

func (p *MemoryProvider) ValidateToken(_ context.Context, token string) (*model.AuthUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token == "" {
		return nil, apperror.InvalidToken("missing token")
	}
	if p.revoked[token] {
		return nil, apperror.InvalidToken("session has been revoked")
	}

	userID, err := p.tokens.Validate(token)
	if err != nil {
		return nil, apperror.InvalidToken(err.Error())
	}
	u, ok := p.users[userID]
	if !ok {
		return nil, apperror.InvalidToken("user not found")
	}
	return cloneUser(u), nil
}

func (p *MemoryProvider) RevokeSession(_ context.Context, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[token] = true
}

func (p *MemoryProvider) mintLocked(userID string) (*model.Session, *model.AuthUser, error) {
	u, ok := p.users[userID]
	if !ok {
		return nil, nil, apperror.Exchange("user not found")
	}

	access, err := p.tokens.GenerateWithDuration(userID, p.ttl)
	if err != nil {
		return nil, nil, apperror.Exchange(err.Error())
	}
	refresh := xid.New().String()
	p.refresh[refresh] = userID

	session := &model.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    model.TokenTypeBearer,
		ExpiresIn:    int(p.ttl.Seconds()),
	}
	return session, cloneUser(u), nil
}

func cloneUser(u *model.AuthUser) *model.AuthUser {
	c := *u
	c.Metadata = maps.Clone(u.Metadata)
	return &c
}
