// Package supabase implements repository.ProfileRepository on the PostgREST
// API of a Supabase project.
//
// HOW POSTGREST MAPS TO SQL:
//
//	GET   /rest/v1/profiles?id=eq.X                → SELECT * WHERE id = X
//	GET   /rest/v1/profiles?tech_stack=cs.{"Go"}   → WHERE tech_stack @> '{"Go"}'
//	PATCH /rest/v1/profiles?id=eq.X                → UPDATE ... WHERE id = X
//
// "Prefer: return=representation" makes a PATCH answer with the updated rows,
// so an update that matched nothing comes back as an empty array (NotFound).
//
// ERROR MAPPING:
//
//	no rows                               → apperror.ErrNotFound
//	code 42501 or HTTP 403 on an update   → apperror.ErrForbidden
//	anything else                         → wrapped *APIError (HTTP 500)
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/repository"
)

// compile-time check that *Store implements repository.ProfileRepository
var _ repository.ProfileRepository = (*Store)(nil)

const (
	profilesPath    = "/rest/v1/profiles"
	healthCheckPath = "/rest/v1/_health_check"
	defaultTimeout  = 5 * time.Second
)

// Options configures a Store.
type Options struct {
	URL     string
	APIKey  string
	Timeout time.Duration // per call
}

// Store reads and writes the profiles table through PostgREST.
type Store struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Store for the project at opts.URL.
func New(opts Options, logger *slog.Logger) *Store {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{
		baseURL:    strings.TrimRight(opts.URL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "supabase_store")),
	}
}

// GetByID retrieves a profile by its auth user ID.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return s.getOne(ctx, "id", id)
}

// GetByUsername retrieves a profile by GitHub username (exact match).
func (s *Store) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return s.getOne(ctx, "github_username", username)
}

func (s *Store) getOne(ctx context.Context, column, value string) (*model.Profile, error) {
	q := url.Values{
		"select": {"*"},
		column:   {"eq." + value},
	}

	var rows []model.Profile
	if err := s.do(ctx, http.MethodGet, profilesPath, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("supabase: getting profile by %s: %w", column, err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("profile", value)
	}
	return rows[0].Normalize(), nil
}

// Update PATCHes the given columns and returns the updated row.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any) (*model.Profile, error) {
	if len(fields) == 0 {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}
	for col := range fields {
		if !repository.IsUpdatable(col) {
			return nil, apperror.ValidationFailed(col, fmt.Sprintf("column %q cannot be updated", col))
		}
	}

	q := url.Values{"id": {"eq." + id}}

	var rows []model.Profile
	if err := s.do(ctx, http.MethodPatch, profilesPath, q, fields, &rows); err != nil {
		if apiErr, ok := asAPIError(err); ok && apiErr.denied() {
			return nil, apperror.Forbidden(fmt.Sprintf("not allowed to update profile %s", id))
		}
		return nil, fmt.Errorf("supabase: updating profile %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("profile", id)
	}
	return rows[0].Normalize(), nil
}

// SetEnrichment replaces tech_stack and github_repos in a single PATCH.
func (s *Store) SetEnrichment(ctx context.Context, id string, e model.Enrichment) (*model.Profile, error) {
	tech := e.TechStack
	if tech == nil {
		tech = []string{}
	}
	repos := e.GitHubRepos
	if repos == nil {
		repos = []model.RepositorySummary{}
	}
	return s.Update(ctx, id, map[string]any{
		"tech_stack":   tech,
		"github_repos": repos,
	})
}

// Discover lists profiles. With opts.Tech set, only rows whose tech_stack
// array contains that exact element are returned (PostgREST "cs" operator).
func (s *Store) Discover(ctx context.Context, opts repository.DiscoverOptions) ([]model.Profile, error) {
	q := url.Values{
		"select": {"*"},
		"limit":  {strconv.Itoa(opts.Limit)},
	}
	if opts.Tech != "" {
		q.Set("tech_stack", "cs."+arrayLiteral(opts.Tech))
	}

	var rows []model.Profile
	if err := s.do(ctx, http.MethodGet, profilesPath, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("supabase: discovering profiles: %w", err)
	}

	profiles := make([]model.Profile, 0, len(rows))
	for i := range rows {
		profiles = append(profiles, *rows[i].Normalize())
	}
	return profiles, nil
}

// Ping checks the REST endpoint with a query on a table that usually does
// not exist. A "relation does not exist" answer still proves the database
// is reachable, so only other failures are reported.
func (s *Store) Ping(ctx context.Context) error {
	q := url.Values{"select": {"*"}, "limit": {"1"}}

	err := s.do(ctx, http.MethodGet, healthCheckPath, q, nil, nil)
	if err == nil {
		return nil
	}
	// Only an answer from PostgREST proves reachability; transport errors
	// never count.
	if apiErr, ok := asAPIError(err); ok {
		if strings.Contains(apiErr.Message, "relation") || strings.Contains(apiErr.Message, "does not exist") {
			return nil
		}
	}
	return err
}

// APIError is a non-2xx answer from PostgREST.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

func (s *Store) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Debug("PostgREST request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status_code", resp.StatusCode),
		)
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		return &APIError{Status: status, Message: http.StatusText(status)}
	}
	return &APIError{Status: status, Code: body.Code, Message: body.Message}
}

// arrayLiteral renders a one-element Postgres array literal, quoting the
// element so commas and braces inside it stay part of the value.
func arrayLiteral(elem string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `{"` + r.Replace(elem) + `"}`
}

// pgInsufficientPrivilege is the Postgres error code for a row level
// security or grant violation.
const pgInsufficientPrivilege = "42501"

// denied reports whether the row store refused the request for lack of
// privileges rather than failing.
func (e *APIError) denied() bool {
	return e.Code == pgInsufficientPrivilege || e.Status == http.StatusForbidden
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
