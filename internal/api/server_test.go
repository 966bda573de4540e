// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zt-a/refgen-ai-backend/internal/api"
	"github.com/zt-a/refgen-ai-backend/internal/essay"
	"github.com/zt-a/refgen-ai-backend/internal/platform/config"
	"github.com/zt-a/refgen-ai-backend/internal/platform/middleware"
	"github.com/zt-a/refgen-ai-backend/internal/platform/sec"
	"github.com/zt-a/refgen-ai-backend/internal/users/account"
	"github.com/zt-a/refgen-ai-backend/internal/users/auth"
	"github.com/zt-a/refgen-ai-backend/internal/users/profile"
)

type rejectingVerifier struct{}

func (rejectingVerifier) VerifyToken(string) (*sec.AuthClaims, error) {
	return nil, errors.New("invalid token")
}

// memberVerifier accepts any token as a regular member.
type memberVerifier struct{}

func (memberVerifier) VerifyToken(string) (*sec.AuthClaims, error) {
	return &sec.AuthClaims{UserID: "0192f0a4-7c1e-7b2a-9d3e-1a2b3c4d5e6f", Username: "aida", Role: string(sec.RoleMember)}, nil
}

func newTestServer(t *testing.T, deps api.HealthDependencies) http.Handler {
	t.Helper()
	return newTestServerWith(t, deps, rejectingVerifier{})
}

func newTestServerWith(t *testing.T, deps api.HealthDependencies, verifier middleware.TokenVerifier) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	liveness, readiness := api.NewHealthHandlers(deps, logger)

	server := api.NewServer(ctx, &config.Config{ServerPort: "0", Environment: "development"}, logger, verifier, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   promhttp.Handler(),
		Auth:      auth.NewHandler(nil, false),
		Account:   account.NewHandler(nil),
		Profile:   profile.NewHandler(nil),
		Essay:     essay.NewHandler(nil),
	})
	return server.Handler()
}

func serve(handler http.Handler, method, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, path, nil))
	return recorder
}

/*
TestServer_Probes verifies liveness, readiness and the metrics endpoint.
*/
func TestServer_Probes(t *testing.T) {
	healthy := func(context.Context) error { return nil }

	t.Run("liveness", func(t *testing.T) {
		handler := newTestServer(t, api.HealthDependencies{})
		assert.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/health").Code)
	})

	t.Run("ready", func(t *testing.T) {
		handler := newTestServer(t, api.HealthDependencies{CheckDatabase: healthy, CheckQueue: healthy})
		recorder := serve(handler, http.MethodGet, "/ready")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"status":"ready"`)
	})

	t.Run("degraded", func(t *testing.T) {
		handler := newTestServer(t, api.HealthDependencies{
			CheckDatabase: healthy,
			CheckQueue:    func(context.Context) error { return errors.New("connection refused") },
		})
		recorder := serve(handler, http.MethodGet, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "connection refused")
	})

	t.Run("metrics", func(t *testing.T) {
		handler := newTestServer(t, api.HealthDependencies{})
		serve(handler, http.MethodGet, "/health")

		recorder := serve(handler, http.MethodGet, "/metrics")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "refgen_http_requests_total")
	})
}

func TestServer_ProtectedRoutes(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	for _, path := range []string{"/api/v1/essays", "/api/v1/essays/1/status", "/api/v1/profile", "/api/v1/auth/me", "/api/v1/account/sessions"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(handler, http.MethodGet, path).Code)
		})
	}
}

/*
TestServer_AdminRoutes verifies that maintenance endpoints need the admin role.
*/
func TestServer_AdminRoutes(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		handler := newTestServer(t, api.HealthDependencies{})
		assert.Equal(t, http.StatusUnauthorized, serve(handler, http.MethodPost, "/api/v1/auth/sessions/purge").Code)
	})

	t.Run("member", func(t *testing.T) {
		handler := newTestServerWith(t, api.HealthDependencies{}, memberVerifier{})

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sessions/purge", nil)
		request.Header.Set("Authorization", "Bearer member-token")
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}
