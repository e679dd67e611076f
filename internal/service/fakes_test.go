package service

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/repository"
)

// fakeProfileRepo is an in-memory repository.ProfileRepository that counts
// writes, so tests can assert that nothing was written.
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	writes   int
	// set to simulate store failures
	updateErr error
	getErr    error
	lastQuery repository.DiscoverOptions
}

func newFakeProfileRepo(profiles ...*model.Profile) *fakeProfileRepo {
	f := &fakeProfileRepo{profiles: make(map[string]*model.Profile)}
	for _, p := range profiles {
		f.profiles[p.ID] = p.Normalize()
	}
	return f
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	c := *p
	return &c, nil
}

func (f *fakeProfileRepo) GetByUsername(_ context.Context, username string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.GitHubUsername == username {
			c := *p
			return &c, nil
		}
	}
	return nil, apperror.NotFound("profile", username)
}

func (f *fakeProfileRepo) Update(_ context.Context, id string, fields map[string]any) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	f.writes++
	for col, v := range fields {
		switch col {
		case "display_name":
			s := v.(string)
			p.DisplayName = &s
		case "bio":
			s := v.(string)
			p.Bio = &s
		case "tech_stack":
			p.TechStack = slices.Clone(v.([]string))
		case "location_lat":
			x := v.(float64)
			p.LocationLat = &x
		case "location_lng":
			x := v.(float64)
			p.LocationLng = &x
		case "github_repos":
			p.GitHubRepos = slices.Clone(v.([]model.RepositorySummary))
		}
	}
	c := *p
	return &c, nil
}

func (f *fakeProfileRepo) SetEnrichment(ctx context.Context, id string, e model.Enrichment) (*model.Profile, error) {
	return f.Update(ctx, id, map[string]any{
		"tech_stack":   e.TechStack,
		"github_repos": e.GitHubRepos,
	})
}

func (f *fakeProfileRepo) Discover(_ context.Context, opts repository.DiscoverOptions) ([]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = opts

	ids := slices.Sorted(maps.Keys(f.profiles))
	out := []model.Profile{}
	for _, id := range ids {
		p := f.profiles[id]
		if opts.Tech != "" && !slices.Contains(p.TechStack, opts.Tech) {
			continue
		}
		out = append(out, *p)
		if len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) Ping(context.Context) error { return nil }

func (f *fakeProfileRepo) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// fakeCodeHost serves canned GitHub data. Usernames in fail make the matching
// call return that error.
type fakeCodeHost struct {
	repos     map[string][]model.RepositorySummary
	languages map[string][]string
	reposErr  map[string]error
	langsErr  map[string]error
}

func newFakeCodeHost() *fakeCodeHost {
	return &fakeCodeHost{
		repos:     make(map[string][]model.RepositorySummary),
		languages: make(map[string][]string),
		reposErr:  make(map[string]error),
		langsErr:  make(map[string]error),
	}
}

func (f *fakeCodeHost) FetchRepositories(_ context.Context, username string, limit int) ([]model.RepositorySummary, error) {
	if err := f.reposErr[username]; err != nil {
		return nil, err
	}
	repos := f.repos[username]
	if len(repos) > limit {
		repos = repos[:limit]
	}
	return slices.Clone(repos), nil
}

func (f *fakeCodeHost) InferLanguages(_ context.Context, username string) ([]string, error) {
	if err := f.langsErr[username]; err != nil {
		return nil, err
	}
	return slices.Clone(f.languages[username]), nil
}

// panickingHost blows up inside the enrichment fan-out.
type panickingHost struct{}

func (panickingHost) FetchRepositories(context.Context, string, int) ([]model.RepositorySummary, error) {
	panic("decoder blew up")
}

func (panickingHost) InferLanguages(context.Context, string) ([]string, error) {
	return []string{"C"}, nil
}

func ptr[T any](v T) *T { return &v }
