package model

import "testing"

func TestAuthUserMetadata(t *testing.T) {
	tests := []struct {
		name         string
		meta         map[string]any
		wantUsername string
		wantName     string
		wantAvatar   string
	}{
		{
			name: "github sign-in",
			meta: map[string]any{
				"user_name":  "octocat",
				"full_name":  "The Octocat",
				"avatar_url": "https://avatars.example/octocat.png",
			},
			wantUsername: "octocat",
			wantName:     "The Octocat",
			wantAvatar:   "https://avatars.example/octocat.png",
		},
		{
			name:         "fallback keys",
			meta:         map[string]any{"preferred_username": "ada", "name": "Ada"},
			wantUsername: "ada",
			wantName:     "Ada",
		},
		{
			name:         "non-string values are ignored",
			meta:         map[string]any{"user_name": 42, "avatar_url": nil},
			wantUsername: "",
		},
		{name: "nil metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &AuthUser{ID: "u-1", Metadata: tt.meta}
			if got := u.GitHubUsername(); got != tt.wantUsername {
				t.Errorf("GitHubUsername() = %q, want %q", got, tt.wantUsername)
			}
			if got := u.DisplayName(); got != tt.wantName {
				t.Errorf("DisplayName() = %q, want %q", got, tt.wantName)
			}
			if got := u.AvatarURL(); got != tt.wantAvatar {
				t.Errorf("AvatarURL() = %q, want %q", got, tt.wantAvatar)
			}
		})
	}
}

func TestAuthUserView(t *testing.T) {
	u := &AuthUser{ID: "u-1"}
	v := u.View()

	if v.GitHubUsername != UnknownUsername {
		t.Errorf("GitHubUsername = %q, want %q", v.GitHubUsername, UnknownUsername)
	}
	if v.Email != nil || v.DisplayName != nil || v.AvatarURL != nil {
		t.Errorf("View() = %+v, want nil optional fields", v)
	}

	u = &AuthUser{ID: "u-2", Email: "ada@example.com", Metadata: map[string]any{"user_name": "ada"}}
	v = u.View()
	if v.GitHubUsername != "ada" {
		t.Errorf("GitHubUsername = %q, want %q", v.GitHubUsername, "ada")
	}
	if v.Email == nil || *v.Email != "ada@example.com" {
		t.Errorf("Email = %v, want ada@example.com", v.Email)
	}
}
