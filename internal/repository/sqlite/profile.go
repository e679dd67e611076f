package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/repository"
)

// compile-time check that *DB implements repository.ProfileRepository
var _ repository.ProfileRepository = (*DB)(nil)

const profileColumns = `id, github_username, display_name, bio, avatar_url, tech_stack,
	github_repos, location_lat, location_lng, xp, "rank", created_at, updated_at`

// Insert adds a profile row. In the hosted store rows come from a sign-up
// trigger; locally they are seeded through here.
func (db *DB) Insert(ctx context.Context, p *model.Profile) error {
	p.Normalize()

	tech, err := json.Marshal(p.TechStack)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tech_stack: %w", err)
	}
	repos, err := json.Marshal(p.GitHubRepos)
	if err != nil {
		return fmt.Errorf("sqlite: encoding github_repos: %w", err)
	}

	now := time.Now().UTC()
	p.CreatedAt = &now
	p.UpdatedAt = &now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.GitHubUsername,
		p.DisplayName,
		p.Bio,
		p.AvatarURL,
		string(tech),
		string(repos),
		p.LocationLat,
		p.LocationLng,
		p.XP,
		p.Rank,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("profile", p.ID)
		}
		return fmt.Errorf("sqlite: inserting profile %s: %w", p.ID, err)
	}
	return nil
}

// GetByID retrieves a profile by its auth user ID.
//
// QueryRowContext returns at most one row. Errors are deferred until Scan,
// and a missing row shows up there as sql.ErrNoRows, translated here into
// apperror.ErrNotFound so the handler answers 404.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return p, nil
}

// GetByUsername retrieves a profile by GitHub username (exact match).
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE github_username = ?`, username)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("profile", username)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting profile @%s: %w", username, err)
	}
	return p, nil
}

// Update writes the given columns and bumps updated_at.
//
// SQL INJECTION:
// Column names cannot be bound as parameters, so they are concatenated into
// the statement. That is safe only because every name is first checked
// against repository.IsUpdatable; values always go through "?" placeholders.
func (db *DB) Update(ctx context.Context, id string, fields map[string]any) (*model.Profile, error) {
	if len(fields) == 0 {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	// Sorted so the statement text is stable for a given set of columns.
	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !repository.IsUpdatable(col) {
			return nil, apperror.ValidationFailed(col, fmt.Sprintf("column %q cannot be updated", col))
		}
		columns = append(columns, col)
	}
	slices.Sort(columns)

	sets := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+2)
	for _, col := range columns {
		v, err := columnValue(fields[col])
		if err != nil {
			return nil, fmt.Errorf("sqlite: encoding %s: %w", col, err)
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("profile", id)
	}

	return db.GetByID(ctx, id)
}

// SetEnrichment replaces tech_stack and github_repos.
func (db *DB) SetEnrichment(ctx context.Context, id string, e model.Enrichment) (*model.Profile, error) {
	tech := e.TechStack
	if tech == nil {
		tech = []string{}
	}
	repos := e.GitHubRepos
	if repos == nil {
		repos = []model.RepositorySummary{}
	}
	return db.Update(ctx, id, map[string]any{
		"tech_stack":   tech,
		"github_repos": repos,
	})
}

// Discover lists profiles, newest first, optionally keeping only those whose
// tech stack contains opts.Tech. json_each expands the stored JSON array so
// the match is on whole elements and case-sensitive.
func (db *DB) Discover(ctx context.Context, opts repository.DiscoverOptions) ([]model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	var args []any
	if opts.Tech != "" {
		query += ` WHERE EXISTS (SELECT 1 FROM json_each(profiles.tech_stack) WHERE json_each.value = ?)`
		args = append(args, opts.Tech)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, opts.Limit)

	// rows holds a connection until closed; the defer returns it to the
	// pool even on a scan error. rows.Err reports errors that ended the loop.
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: discovering profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0, opts.Limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profiles: %w", err)
	}

	return profiles, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*model.Profile, error) {
	var (
		p                model.Profile
		displayName, bio sql.NullString
		avatarURL        sql.NullString
		tech, repos      string
		lat, lng         sql.NullFloat64
		created, updated time.Time
	)

	err := s.Scan(
		&p.ID,
		&p.GitHubUsername,
		&displayName,
		&bio,
		&avatarURL,
		&tech,
		&repos,
		&lat,
		&lng,
		&p.XP,
		&p.Rank,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tech), &p.TechStack); err != nil {
		return nil, fmt.Errorf("decoding tech_stack: %w", err)
	}
	if err := json.Unmarshal([]byte(repos), &p.GitHubRepos); err != nil {
		return nil, fmt.Errorf("decoding github_repos: %w", err)
	}

	p.DisplayName = nullString(displayName)
	p.Bio = nullString(bio)
	p.AvatarURL = nullString(avatarURL)
	p.LocationLat = nullFloat(lat)
	p.LocationLng = nullFloat(lng)
	p.CreatedAt = &created
	p.UpdatedAt = &updated

	return p.Normalize(), nil
}

// columnValue converts an update value to something the driver can bind.
// Lists are stored as JSON text.
func columnValue(v any) (any, error) {
	switch v := v.(type) {
	case []string, []model.RepositorySummary:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
