// Package repository defines the persistence port of the service.
//
// WHY AN INTERFACE?
// The service layer depends on ProfileRepository, not on a database. Two
// implementations satisfy it:
//   - repository/supabase → PostgREST over HTTP (production)
//   - repository/sqlite   → embedded SQLite (local runs, tests)
//
// and the service tests use an in-memory fake. Swapping stores is a config
// change (store.driver), not a code change.
package repository

import (
	"context"

	"github.com/sakif/devdate/internal/model"
)

// DiscoverOptions filters the public profile listing.
type DiscoverOptions struct {
	// Tech keeps only profiles whose tech stack contains this exact entry.
	// Empty means no filter.
	Tech  string
	Limit int
}

// ProfileRepository is the persistence port for developer profiles.
//
// Profile rows are created outside the service (by the store itself when a
// user first signs up), so there is no Create here.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)

	// Update writes the given columns and returns the updated row. fields is
	// keyed by column name and must not be empty.
	Update(ctx context.Context, id string, fields map[string]any) (*model.Profile, error)

	// SetEnrichment overwrites tech_stack and github_repos in one write.
	SetEnrichment(ctx context.Context, id string, e model.Enrichment) (*model.Profile, error)

	Discover(ctx context.Context, opts DiscoverOptions) ([]model.Profile, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// updatableColumns are the columns Update accepts.
var updatableColumns = map[string]bool{
	"display_name": true,
	"bio":          true,
	"tech_stack":   true,
	"location_lat": true,
	"location_lng": true,
	"github_repos": true,
}

// IsUpdatable reports whether column may be written through Update.
func IsUpdatable(column string) bool {
	return updatableColumns[column]
}
