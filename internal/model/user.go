// Package model defines the data structures used throughout the application.
package model

// AuthUser is the identity the auth provider returns for a valid session.
//
// It is never persisted or cached by this service: every authenticated request
// validates the bearer token against the provider and gets a fresh AuthUser.
//
// Metadata is the provider's raw user_metadata object. For GitHub sign-ins it
// carries keys such as "user_name", "full_name" and "avatar_url".
type AuthUser struct {
	ID       string         `json:"id"`
	Email    string         `json:"email,omitempty"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// GitHubUsername returns the GitHub login stored in the metadata, or "" if absent.
func (u *AuthUser) GitHubUsername() string {
	if v := u.metaString("user_name"); v != "" {
		return v
	}
	return u.metaString("preferred_username")
}

// DisplayName returns the user's full name from the metadata, or "" if absent.
func (u *AuthUser) DisplayName() string {
	if v := u.metaString("full_name"); v != "" {
		return v
	}
	return u.metaString("name")
}

// AvatarURL returns the avatar URL from the metadata, or "" if absent.
func (u *AuthUser) AvatarURL() string {
	return u.metaString("avatar_url")
}

func (u *AuthUser) metaString(key string) string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	s, _ := u.Metadata[key].(string)
	return s
}

// AuthUserView is the user summary returned alongside a session.
type AuthUserView struct {
	ID             string  `json:"id"`
	Email          *string `json:"email"`
	GitHubUsername string  `json:"github_username"`
	DisplayName    *string `json:"display_name"`
	AvatarURL      *string `json:"avatar_url"`
}

// View builds the session user summary. A missing GitHub login is reported as "unknown".
func (u *AuthUser) View() AuthUserView {
	username := u.GitHubUsername()
	if username == "" {
		username = UnknownUsername
	}
	return AuthUserView{
		ID:             u.ID,
		Email:          optional(u.Email),
		GitHubUsername: username,
		DisplayName:    optional(u.DisplayName()),
		AvatarURL:      optional(u.AvatarURL()),
	}
}

// UnknownUsername is used wherever a GitHub login is required but the provider did not supply one.
const UnknownUsername = "unknown"

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
