package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/repository"
)

// RecentRepositories is how many repositories are snapshotted on a profile.
const RecentRepositories = 10

// CodeHost is the read-only view of the code-hosting API the enricher needs.
// *github.Client implements it.
type CodeHost interface {
	FetchRepositories(ctx context.Context, username string, limit int) ([]model.RepositorySummary, error)
	InferLanguages(ctx context.Context, username string) ([]string, error)
}

// Enricher copies a user's recent repositories and languages from GitHub onto
// their profile.
//
// DEPENDENCIES (injected via NewEnricher):
//   - host      CodeHost                     → GitHub REST API
//   - profiles  repository.ProfileRepository → enrichment write
//
// NO LOGGER:
// Enrich never logs. Its error is a value for the caller to record or drop;
// on any error nothing has been written.
type Enricher struct {
	host     CodeHost
	profiles repository.ProfileRepository
}

func NewEnricher(host CodeHost, profiles repository.ProfileRepository) *Enricher {
	return &Enricher{host: host, profiles: profiles}
}

// Enrich fetches the repository snapshot and the language list concurrently.
// Both must succeed; the profile is then updated in a single write that
// replaces tech_stack and github_repos wholesale.
//
// PANICS:
// A panic inside an errgroup goroutine cannot be recovered by the caller or
// by chi's Recoverer; it takes the whole process down. Every goroutine here,
// and the write itself, turns a panic into an ordinary error so the login
// that triggered the enrichment still completes.
func (e *Enricher) Enrich(ctx context.Context, userID, username string) (profile *model.Profile, err error) {
	defer recoverInto(&err)

	var (
		repos     []model.RepositorySummary
		languages []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err)
		repos, err = e.host.FetchRepositories(gctx, username, RecentRepositories)
		return err
	})
	g.Go(func() (err error) {
		defer recoverInto(&err)
		languages, err = e.host.InferLanguages(gctx, username)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service/enrich: fetching GitHub data for @%s: %w", username, err)
	}

	profile, err = e.profiles.SetEnrichment(ctx, userID, model.Enrichment{
		TechStack:   languages,
		GitHubRepos: repos,
	})
	if err != nil {
		return nil, fmt.Errorf("service/enrich: saving enrichment for %s: %w", userID, err)
	}
	return profile, nil
}

// ErrPanic marks an enrichment aborted by a panic in an adapter.
var ErrPanic = errors.New("panic during enrichment")

// recoverInto must be deferred directly; it replaces *err with the recovered
// panic value.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("service/enrich: %w: %v", ErrPanic, r)
	}
}
