package handler

// RESPONSE HELPERS:
// These functions standardise how handlers send JSON bodies and errors.
// Every handler ends in exactly one of:
//
//	writeJSON(w, http.StatusOK, data)
//	writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//
//	{"error": "not_found", "message": "profile not found with id abc123"}
//
// "error" is a stable machine-readable kind the frontend can switch on;
// "message" is for humans. The 401 written by auth.RequireAuth uses the same
// shape.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/devdate/internal/apperror"
)

// maxBodyBytes caps request bodies read by decodeJSON.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data as JSON with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and the status code must be set BEFORE the body is written. Once
// Encode calls w.Write, the headers are on the wire and later changes are
// silently ignored:
//  1. w.Header().Set(...)     ← set headers
//  2. w.WriteHeader(status)   ← send status + headers
//  3. json.Encode(data)       ← send body
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation   → 400 validation_error
//	apperror.ErrExchange     → 400 exchange_failed
//	apperror.ErrInvalidToken → 401 unauthorized (+ WWW-Authenticate: Bearer)
//	apperror.ErrForbidden    → 403 forbidden
//	apperror.ErrNotFound     → 404 not_found
//	apperror.ErrConflict     → 409 conflict
//	apperror.ErrUpstream     → 502 upstream_error
//	anything else            → 500 internal_error
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer returns apperror kinds and knows nothing about HTTP.
// This function is the only place that translates them, so a status code
// change is a one-line edit.
//
// LEAKING INTERNALS:
// Only *apperror.AppError messages reach the client. A raw error (a driver
// message, a URL with a key in it) becomes a generic 500 message.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrExchange):
		status = http.StatusBadRequest
		errorType = "exchange_failed"
	case errors.Is(err, apperror.ErrInvalidToken):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
		w.Header().Set("WWW-Authenticate", "Bearer")
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	case errors.Is(err, apperror.ErrUpstream):
		status = http.StatusBadGateway
		errorType = "upstream_error"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
//
// BODY LIMIT:
// The body is capped at maxBodyBytes; anything larger fails to decode and is
// reported as a validation error. An empty body leaves dst untouched, so
// POST /auth/callback with no body reaches the provider with an empty code.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
