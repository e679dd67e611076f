package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/model"
)

func torvaldsHost() *fakeCodeHost {
	host := newFakeCodeHost()
	host.repos["torvalds"] = []model.RepositorySummary{
		{Name: "linux", FullName: "torvalds/linux", Language: ptr("C"), Stars: 180000},
		{Name: "subsurface", FullName: "torvalds/subsurface", Language: ptr("C++"), Stars: 2500},
	}
	host.languages["torvalds"] = []string{"C", "C++"}
	return host
}

func TestEnrich_Success(t *testing.T) {
	repo := newFakeProfileRepo(&model.Profile{ID: "u-1", GitHubUsername: "torvalds", TechStack: []string{"Perl"}})
	e := NewEnricher(torvaldsHost(), repo)

	got, err := e.Enrich(context.Background(), "u-1", "torvalds")
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	// Replaced wholesale, not merged with the previous stack.
	if len(got.TechStack) != 2 || got.TechStack[0] != "C" || got.TechStack[1] != "C++" {
		t.Errorf("TechStack = %v, want [C C++]", got.TechStack)
	}
	if len(got.GitHubRepos) != 2 || got.GitHubRepos[0].Name != "linux" {
		t.Errorf("GitHubRepos = %+v", got.GitHubRepos)
	}
	if repo.writeCount() != 1 {
		t.Errorf("writes = %d, want exactly 1", repo.writeCount())
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	repo := newFakeProfileRepo(&model.Profile{ID: "u-1", GitHubUsername: "torvalds"})
	e := NewEnricher(torvaldsHost(), repo)
	ctx := context.Background()

	first, err := e.Enrich(ctx, "u-1", "torvalds")
	if err != nil {
		t.Fatalf("first Enrich() error = %v", err)
	}
	second, err := e.Enrich(ctx, "u-1", "torvalds")
	if err != nil {
		t.Fatalf("second Enrich() error = %v", err)
	}

	if len(first.TechStack) != len(second.TechStack) || len(first.GitHubRepos) != len(second.GitHubRepos) {
		t.Errorf("second enrichment changed state: %+v vs %+v", first, second)
	}
	for i := range first.TechStack {
		if first.TechStack[i] != second.TechStack[i] {
			t.Errorf("TechStack[%d] = %q, then %q", i, first.TechStack[i], second.TechStack[i])
		}
	}
}

func TestEnrich_AnyFailureWritesNothing(t *testing.T) {
	timeout := apperror.Upstream("fetching GitHub repositories", errors.New("GitHub API timed out"))

	tests := []struct {
		name  string
		setup func(h *fakeCodeHost)
	}{
		{"repositories fail", func(h *fakeCodeHost) { h.reposErr["torvalds"] = timeout }},
		{"languages fail", func(h *fakeCodeHost) { h.langsErr["torvalds"] = timeout }},
		{"both fail", func(h *fakeCodeHost) {
			h.reposErr["torvalds"] = timeout
			h.langsErr["torvalds"] = timeout
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := torvaldsHost()
			tt.setup(host)
			repo := newFakeProfileRepo(&model.Profile{ID: "u-1", GitHubUsername: "torvalds", TechStack: []string{"Perl"}})

			got, err := NewEnricher(host, repo).Enrich(context.Background(), "u-1", "torvalds")

			if !errors.Is(err, apperror.ErrUpstream) {
				t.Errorf("Enrich() error = %v, want ErrUpstream", err)
			}
			if got != nil {
				t.Errorf("Enrich() profile = %+v, want nil", got)
			}
			if repo.writeCount() != 0 {
				t.Errorf("writes = %d, want 0", repo.writeCount())
			}
			stored, _ := repo.GetByID(context.Background(), "u-1")
			if len(stored.TechStack) != 1 || stored.TechStack[0] != "Perl" {
				t.Errorf("stored TechStack = %v, want untouched [Perl]", stored.TechStack)
			}
		})
	}
}

func TestEnrich_MissingProfile(t *testing.T) {
	repo := newFakeProfileRepo()

	_, err := NewEnricher(torvaldsHost(), repo).Enrich(context.Background(), "ghost", "torvalds")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Enrich() error = %v, want ErrNotFound", err)
	}
}

func TestEnrich_PanicBecomesError(t *testing.T) {
	repo := newFakeProfileRepo(&model.Profile{ID: "u-1", GitHubUsername: "torvalds"})

	got, err := NewEnricher(panickingHost{}, repo).Enrich(context.Background(), "u-1", "torvalds")
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("Enrich() error = %v, want ErrPanic", err)
	}
	if !strings.Contains(err.Error(), "decoder blew up") {
		t.Errorf("error %q does not carry the panic value", err.Error())
	}
	if got != nil {
		t.Errorf("Enrich() profile = %+v, want nil", got)
	}
	if repo.writeCount() != 0 {
		t.Errorf("writes = %d, want 0", repo.writeCount())
	}
}
