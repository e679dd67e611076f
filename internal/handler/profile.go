package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/auth"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/service"
)

// errNoUser is returned by protected handlers reached without RequireAuth.
var errNoUser = apperror.InvalidToken("no authenticated user")

// ProfileAccess is the part of service.ProfileService the profile routes use.
type ProfileAccess interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
	Update(ctx context.Context, id string, u model.ProfileUpdate) (*model.Profile, error)
	Discover(ctx context.Context, tech string, limit int) ([]model.Profile, error)
	EnrichFromGitHub(ctx context.Context, user *model.AuthUser) (string, error)
}

// ProfileHandler serves /profiles.
//
// DEPENDENCY CHAIN:
//
//	ProfileHandler → ProfileAccess (service.ProfileService) → ProfileRepository
//
// Routes under /profiles/me read the caller's identity from the context that
// auth.RequireAuth filled in; the handler never looks at the token itself.
type ProfileHandler struct {
	profiles ProfileAccess
	logger   *slog.Logger
}

func NewProfileHandler(profiles ProfileAccess, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGetMe returns the caller's own profile.
//
// HTTP: GET /api/v1/profiles/me
// Auth: required
func (h *ProfileHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, errNoUser)
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateMe applies a partial update to the caller's profile. Fields
// that are absent or null are left as they are.
//
// HTTP: PUT /api/v1/profiles/me
// REQUEST BODY: {"display_name"?, "bio"?, "tech_stack"?, "location_lat"?, "location_lng"?}
// Auth: required
func (h *ProfileHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, errNoUser)
		return
	}

	var update model.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.Update(r.Context(), user.ID, update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleGetByUsername returns a profile by GitHub username.
//
// HTTP: GET /api/v1/profiles/{username}
func (h *ProfileHandler) HandleGetByUsername(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleDiscover lists profiles, optionally filtered by one tech stack entry.
//
// HTTP: GET /api/v1/profiles?tech=<name>&limit=<1..100>
func (h *ProfileHandler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := service.DefaultDiscoverLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("limit", "limit must be an integer"))
			return
		}
		if n < 1 || n > service.MaxDiscoverLimit {
			writeError(w, apperror.ValidationFailed("limit",
				fmt.Sprintf("limit must be between 1 and %d", service.MaxDiscoverLimit)))
			return
		}
		limit = n
	}

	profiles, err := h.profiles.Discover(r.Context(), q.Get("tech"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// HandleEnrich refreshes the caller's tech stack and repositories from GitHub.
//
// HTTP: POST /api/v1/profiles/me/enrich
// Auth: required
func (h *ProfileHandler) HandleEnrich(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, errNoUser)
		return
	}

	msg, err := h.profiles.EnrichFromGitHub(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}
