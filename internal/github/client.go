// Package github is a read-only client for the parts of the GitHub REST API
// used to enrich developer profiles.
//
// ENDPOINTS USED:
//
//	GET /users/{username}         → FetchUser
//	GET /users/{username}/repos   → FetchRepositories, InferLanguages
//
// AUTHENTICATION:
// Anonymous calls work but are limited to 60 requests an hour per IP. With a
// token, golang.org/x/oauth2 wraps the transport and adds the Authorization
// header to every request, so no call site handles credentials.
//
// FAILURES:
// Every failure, whether a timeout, a non-2xx answer or a body that does not
// decode, surfaces as apperror.ErrUpstream. Callers treat GitHub as optional
// (see service.Enricher), so one error kind is enough.
package github

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/model"
)

const (
	DefaultAPIURL  = "https://api.github.com"
	defaultTimeout = 5 * time.Second

	apiVersion = "2022-11-28"

	// languageSampleSize is how many recently pushed repositories are
	// inspected when inferring a user's languages.
	languageSampleSize = 20
)

// Options configures a Client.
type Options struct {
	APIURL  string
	Token   string        // optional; raises the anonymous rate limit
	Timeout time.Duration // per call
}

// Client fetches public user and repository data.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// User is the subset of a GitHub user we read.
type User struct {
	Login       string  `json:"login"`
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	Bio         *string `json:"bio"`
	AvatarURL   string  `json:"avatar_url"`
	HTMLURL     string  `json:"html_url"`
	Location    *string `json:"location"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
}

// repository is the API shape of a repository listing entry.
type repository struct {
	Name            string  `json:"name"`
	FullName        string  `json:"full_name"`
	Description     *string `json:"description"`
	Language        *string `json:"language"`
	StargazersCount int     `json:"stargazers_count"`
	HTMLURL         string  `json:"html_url"`
	PushedAt        *string `json:"pushed_at"`
}

func (r repository) summary() model.RepositorySummary {
	s := model.RepositorySummary{
		Name:        r.Name,
		FullName:    r.FullName,
		Description: r.Description,
		Language:    r.Language,
		Stars:       r.StargazersCount,
		URL:         r.HTMLURL,
	}
	if r.PushedAt != nil {
		s.UpdatedAt = *r.PushedAt
	}
	return s
}

// NewClient creates a Client.
//
// WHY oauth2.NewClient FOR A PERSONAL TOKEN?
// A static token never refreshes, but oauth2.NewClient still gives a client
// whose transport sets "Authorization: Bearer <token>" on every request. The
// timeout is set on the returned client afterwards, so both paths share it.
func NewClient(opts Options, logger *slog.Logger) *Client {
	baseURL := opts.APIURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{}
	if opts.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "github_client")),
	}
}

// FetchUser returns the public profile of username.
func (c *Client) FetchUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "GitHub username is required")
	}

	var user User
	if err := c.get(ctx, "/users/"+url.PathEscape(username), nil, &user); err != nil {
		return nil, apperror.Upstream("fetching GitHub user", err)
	}
	return &user, nil
}

// FetchRepositories returns up to limit repositories owned by username, most
// recently pushed first.
//
// ORDERING:
// The API is asked for sort=pushed&direction=desc, and the result is sorted
// again locally so the contract holds even against a server (or test double)
// that ignores the query. A limit of 0 or less returns an empty slice without
// a request.
func (c *Client) FetchRepositories(ctx context.Context, username string, limit int) ([]model.RepositorySummary, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "GitHub username is required")
	}
	if limit <= 0 {
		return []model.RepositorySummary{}, nil
	}

	query := url.Values{
		"type":      {"owner"},
		"sort":      {"pushed"},
		"direction": {"desc"},
		"per_page":  {strconv.Itoa(limit)},
	}

	var repos []repository
	path := "/users/" + url.PathEscape(username) + "/repos"
	if err := c.get(ctx, path, query, &repos); err != nil {
		return nil, apperror.Upstream("fetching GitHub repositories", err)
	}

	summaries := make([]model.RepositorySummary, 0, len(repos))
	for _, r := range repos {
		summaries = append(summaries, r.summary())
	}
	// RFC 3339 timestamps in UTC order lexicographically.
	slices.SortStableFunc(summaries, func(a, b model.RepositorySummary) int {
		return cmp.Compare(b.UpdatedAt, a.UpdatedAt)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// InferLanguages returns the distinct primary languages of username's most
// recently pushed repositories, sorted.
func (c *Client) InferLanguages(ctx context.Context, username string) ([]string, error) {
	repos, err := c.FetchRepositories(ctx, username, languageSampleSize)
	if err != nil {
		return nil, err
	}

	languages := make([]string, 0, len(repos))
	for _, r := range repos {
		if r.Language != nil && *r.Language != "" {
			languages = append(languages, *r.Language)
		}
	}
	slices.Sort(languages)
	return slices.Compact(languages), nil
}

// statusError is a non-2xx answer from the API.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// get performs one GET and decodes a 2xx JSON body into out.
//
// TIMEOUTS:
// The context deadline bounds the whole call, including reading the body.
// A deadline hit is reported with a fixed message so callers never see
// transport internals.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return errors.New("GitHub API timed out")
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("GitHub API request failed",
			slog.String("path", path),
			slog.Int("status_code", resp.StatusCode),
		)
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return &statusError{Status: resp.StatusCode, Message: apiErr.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
