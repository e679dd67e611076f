package model

// TokenTypeBearer is the only token type the auth provider issues.
const TokenTypeBearer = "bearer"

// Session is a token pair issued by the auth provider after a successful code
// exchange or refresh. Sessions are never mutated: a refresh produces a new one.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}
