package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/devdate/internal/handler"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name string
		ping error
		want string
	}{
		{"store up", nil, `{"status":"healthy","supabase":"connected"}`},
		{"store down", errors.New("dial tcp: connection refused"), `{"status":"healthy","supabase":"error: dial tcp: connection refused"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(pingerFunc(func(context.Context) error { return tt.ping }))

			rr := httptest.NewRecorder()
			h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, tt.want, rr.Body.String())
		})
	}
}

func TestRoot(t *testing.T) {
	h := handler.NewHealthHandler(pingerFunc(func(context.Context) error { return nil }))

	rr := httptest.NewRecorder()
	h.HandleRoot(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.JSONEq(t, `{"message":"Dev Dating API is running"}`, rr.Body.String())
}
