package model

import "time"

// DefaultRank is the rank label of a freshly created profile.
const DefaultRank = "Intern"

// Profile is the persisted developer profile, keyed by the auth user's ID.
//
// Rows are created by a database trigger on first sign-up, not by this service.
// ID never changes and GitHubUsername is unique across all profiles.
//
// Optional columns are pointers so that JSON null round-trips as null.
type Profile struct {
	ID             string              `json:"id"`
	GitHubUsername string              `json:"github_username"`
	DisplayName    *string             `json:"display_name"`
	Bio            *string             `json:"bio"`
	AvatarURL      *string             `json:"avatar_url"`
	TechStack      []string            `json:"tech_stack"`
	GitHubRepos    []RepositorySummary `json:"github_repos"`
	LocationLat    *float64            `json:"location_lat"`
	LocationLng    *float64            `json:"location_lng"`
	XP             int                 `json:"xp"`
	Rank           string              `json:"rank"`
	CreatedAt      *time.Time          `json:"created_at"`
	UpdatedAt      *time.Time          `json:"updated_at"`
}

// Normalize fills the defaults the API always exposes: empty lists instead of
// null and the default rank when the store returned none.
func (p *Profile) Normalize() *Profile {
	if p.TechStack == nil {
		p.TechStack = []string{}
	}
	if p.GitHubRepos == nil {
		p.GitHubRepos = []RepositorySummary{}
	}
	if p.Rank == "" {
		p.Rank = DefaultRank
	}
	return p
}

// RepositorySummary is one entry of the repository snapshot taken during
// enrichment. The whole list is replaced on every enrichment.
type RepositorySummary struct {
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
	Stars       int     `json:"stars"`
	URL         string  `json:"url"`
	UpdatedAt   string  `json:"updated_at"` // last push, RFC 3339
}

// ProfileUpdate carries the owner-editable profile fields.
//
// A nil field means "no value" and is dropped before the write, so clearing a
// field is indistinguishable from omitting it.
type ProfileUpdate struct {
	DisplayName *string   `json:"display_name" validate:"omitempty,max=100"`
	Bio         *string   `json:"bio" validate:"omitempty,max=500"`
	TechStack   *[]string `json:"tech_stack" validate:"omitempty,max=50,dive,min=1,max=50"`
	LocationLat *float64  `json:"location_lat" validate:"omitempty,gte=-90,lte=90"`
	LocationLng *float64  `json:"location_lng" validate:"omitempty,gte=-180,lte=180"`
}

// Fields returns the non-nil fields keyed by column name.
func (u ProfileUpdate) Fields() map[string]any {
	fields := make(map[string]any)
	if u.DisplayName != nil {
		fields["display_name"] = *u.DisplayName
	}
	if u.Bio != nil {
		fields["bio"] = *u.Bio
	}
	if u.TechStack != nil {
		fields["tech_stack"] = *u.TechStack
	}
	if u.LocationLat != nil {
		fields["location_lat"] = *u.LocationLat
	}
	if u.LocationLng != nil {
		fields["location_lng"] = *u.LocationLng
	}
	return fields
}

// IsEmpty reports whether no field carries a value.
func (u ProfileUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Enrichment is the pair of columns rewritten wholesale by GitHub enrichment.
type Enrichment struct {
	TechStack   []string            `json:"tech_stack"`
	GitHubRepos []RepositorySummary `json:"github_repos"`
}
