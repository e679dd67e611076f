package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/logger"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/repository"
)

const adaRow = `{
	"id": "u-1",
	"github_username": "ada",
	"display_name": "Ada",
	"bio": null,
	"avatar_url": null,
	"tech_stack": ["Go", "Rust"],
	"github_repos": null,
	"location_lat": null,
	"location_lng": null,
	"xp": 120,
	"rank": "Junior",
	"created_at": "2024-03-01T09:30:00.123456+00:00",
	"updated_at": "2024-03-02T09:30:00+00:00"
}`

type recorded struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   map[string]any
}

func newTestStore(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Store, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.Query()
		rec.header = r.Header.Clone()
		rec.body = nil
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &rec.body))
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(Options{URL: srv.URL, APIKey: "anon-key"}, logger.Discard()), rec
}

func TestGetByID(t *testing.T) {
	store, rec := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[" + adaRow + "]"))
	})

	p, err := store.GetByID(context.Background(), "u-1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/rest/v1/profiles", rec.path)
	assert.Equal(t, []string{"eq.u-1"}, rec.query["id"])
	assert.Equal(t, []string{"*"}, rec.query["select"])
	assert.Equal(t, "anon-key", rec.header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", rec.header.Get("Authorization"))

	assert.Equal(t, "ada", p.GitHubUsername)
	assert.Equal(t, []string{"Go", "Rust"}, p.TechStack)
	assert.NotNil(t, p.GitHubRepos, "null repos normalize to an empty list")
	assert.Equal(t, 120, p.XP)
	require.NotNil(t, p.CreatedAt)
	assert.Equal(t, 2024, p.CreatedAt.Year())
}

func TestGetByUsername_NotFound(t *testing.T) {
	store, rec := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := store.GetByUsername(context.Background(), "nobody")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Equal(t, []string{"eq.nobody"}, rec.query["github_username"])
}

func TestUpdate(t *testing.T) {
	store, rec := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[" + adaRow + "]"))
	})

	_, err := store.Update(context.Background(), "u-1", map[string]any{"bio": "Hello"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, rec.method)
	assert.Equal(t, []string{"eq.u-1"}, rec.query["id"])
	assert.Equal(t, "return=representation", rec.header.Get("Prefer"))
	assert.Equal(t, map[string]any{"bio": "Hello"}, rec.body)
}

func TestUpdate_NoRowMatched(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := store.Update(context.Background(), "ghost", map[string]any{"bio": "x"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestUpdate_RejectsBeforeRequest(t *testing.T) {
	calls := 0
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	_, err := store.Update(context.Background(), "u-1", map[string]any{})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = store.Update(context.Background(), "u-1", map[string]any{"xp": 9000})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	assert.Zero(t, calls)
}

func TestSetEnrichment(t *testing.T) {
	store, rec := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[" + adaRow + "]"))
	})

	_, err := store.SetEnrichment(context.Background(), "u-1", model.Enrichment{TechStack: []string{"Go"}})
	require.NoError(t, err)

	assert.Equal(t, []any{"Go"}, rec.body["tech_stack"])
	assert.Equal(t, []any{}, rec.body["github_repos"])
}

func TestDiscover(t *testing.T) {
	store, rec := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[" + adaRow + "]"))
	})

	got, err := store.Discover(context.Background(), repository.DiscoverOptions{Tech: "Rust", Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, []string{`cs.{"Rust"}`}, rec.query["tech_stack"])
	assert.Equal(t, []string{"5"}, rec.query["limit"])

	_, err = store.Discover(context.Background(), repository.DiscoverOptions{Limit: 20})
	require.NoError(t, err)
	assert.NotContains(t, rec.query, "tech_stack")
}

func TestArrayLiteral(t *testing.T) {
	assert.Equal(t, `{"C++"}`, arrayLiteral("C++"))
	assert.Equal(t, `{"a,b"}`, arrayLiteral("a,b"))
	assert.Equal(t, `{"say \"hi\""}`, arrayLiteral(`say "hi"`))
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"table exists", http.StatusOK, `[]`, false},
		{"missing relation", http.StatusNotFound, `{"code":"42P01","message":"relation \"public._health_check\" does not exist"}`, false},
		{"bad key", http.StatusUnauthorized, `{"message":"Invalid API key"}`, true},
		{"gateway down", http.StatusBadGateway, `<html>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, rec := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := store.Ping(context.Background())
			assert.Equal(t, "/rest/v1/_health_check", rec.path)
			assert.Equal(t, []string{"1"}, rec.query["limit"])
			if tt.wantErr {
				require.Error(t, err)
				_, ok := asAPIError(err)
				assert.True(t, ok)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPing_TransportErrorIsReported(t *testing.T) {
	store := New(Options{URL: "http://127.0.0.1:1", APIKey: "anon"}, logger.Discard())

	err := store.Ping(context.Background())
	require.Error(t, err)
	_, ok := asAPIError(err)
	assert.False(t, ok)
}

func TestUpdate_RowLevelSecurityDenied(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"42501","message":"new row violates row-level security policy for table \"profiles\""}`))
	})

	_, err := store.Update(context.Background(), "u-1", map[string]any{"bio": "hi"})
	assert.True(t, errors.Is(err, apperror.ErrForbidden), "err = %v", err)
}
