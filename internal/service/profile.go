// Package service contains the business logic of the API.
//
// THE LAYERS:
//
//	Handler (HTTP)    → parses requests, writes responses
//	Service (rules)   → validates, enforces rules, orchestrates
//	Repository (data) → reads/writes profiles
//
// WHY A SERVICE LAYER?
// Handlers know HTTP, repositories know storage, and neither knows the rules
// (limit bounds, which fields an owner may edit, when enrichment runs). Those
// rules live here, once, and are tested without a server or a database.
//
// DEPENDENCY DIRECTION:
// Services take repository and adapter interfaces, never concrete stores, so
// the same code runs against Supabase, the local SQLite store, or test fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/devdate/internal/apperror"
	"github.com/sakif/devdate/internal/metrics"
	"github.com/sakif/devdate/internal/model"
	"github.com/sakif/devdate/internal/repository"
)

const (
	DefaultDiscoverLimit = 20
	MaxDiscoverLimit     = 100
)

// ProfileService is the profile access layer.
//
// DEPENDENCIES (injected via NewProfileService):
//   - profiles  repository.ProfileRepository → Supabase or SQLite profile store
//   - enricher  *Enricher                    → manual GitHub refresh
//   - validate  *validator.Validate          → ProfileUpdate field rules
//   - logger    *slog.Logger                 → structured logging
type ProfileService struct {
	profiles repository.ProfileRepository
	enricher *Enricher
	validate *validator.Validate
	logger   *slog.Logger
}

// NewProfileService creates a ProfileService. The validator is built once
// here; it caches struct metadata and is safe for concurrent use.
func NewProfileService(profiles repository.ProfileRepository, enricher *Enricher, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		enricher: enricher,
		validate: newValidator(),
		logger:   logger,
	}
}

// GetByID returns the profile of the given user.
func (s *ProfileService) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "profile id is required")
	}
	return s.profiles.GetByID(ctx, id)
}

// GetByUsername returns the profile with the given GitHub username.
func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	return s.profiles.GetByUsername(ctx, username)
}

// Update applies the non-nil fields of u to the profile.
//
// NIL MEANS ABSENT:
// Every ProfileUpdate field is a pointer. nil means "not sent", so a body of
// {"bio": "hi"} touches bio only. A JSON null is indistinguishable from an
// omitted field and is dropped as well.
//
// EMPTY UPDATES:
// An update with no fields performs no write and returns the current record
// (NotFound if there is none).
func (s *ProfileService) Update(ctx context.Context, id string, u model.ProfileUpdate) (*model.Profile, error) {
	if err := s.validate.Struct(u); err != nil {
		return nil, validationError(err)
	}

	if u.IsEmpty() {
		return s.profiles.GetByID(ctx, id)
	}
	fields := u.Fields()

	profile, err := s.profiles.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated",
		slog.String("userID", id),
		slog.Int("fields", len(fields)),
	)
	return profile, nil
}

// Discover lists profiles, optionally only those whose tech stack contains
// tech exactly. limit must be within 1..MaxDiscoverLimit.
func (s *ProfileService) Discover(ctx context.Context, tech string, limit int) ([]model.Profile, error) {
	if limit < 1 || limit > MaxDiscoverLimit {
		return nil, apperror.ValidationFailed("limit",
			fmt.Sprintf("limit must be between 1 and %d", MaxDiscoverLimit))
	}

	return s.profiles.Discover(ctx, repository.DiscoverOptions{
		Tech:  tech,
		Limit: limit,
	})
}

// EnrichFromGitHub refreshes the caller's profile from GitHub.
//
// It fails only when the user has no GitHub username. A failed enrichment is
// recorded and otherwise ignored; the caller gets the same confirmation
// either way.
func (s *ProfileService) EnrichFromGitHub(ctx context.Context, user *model.AuthUser) (string, error) {
	username := user.GitHubUsername()
	if username == "" {
		return "", apperror.ValidationFailed("github_username", "GitHub username not found in auth metadata")
	}

	_, err := s.enricher.Enrich(ctx, user.ID, username)
	metrics.ObserveEnrichment(metrics.TriggerManual, err)
	if err != nil {
		s.logger.Debug("manual enrichment failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return fmt.Sprintf("Profile enriched from GitHub (@%s)", username), nil
}

// newValidator builds the validator used for request DTOs.
//
// FIELD NAMES:
// By default validator reports Go field names ("DisplayName"). Clients only
// ever see JSON names, so the tag name func reads the json tag instead.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns the first validator failure into an AppError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "max":
		if fe.Kind() == reflect.Slice {
			msg = fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		} else {
			msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
	case "min":
		msg = fmt.Sprintf("%s must not be empty", field)
	case "gte", "lte":
		msg = fmt.Sprintf("%s is out of range", field)
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return apperror.ValidationFailed(field, msg)
}
