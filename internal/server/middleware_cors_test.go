package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

func (e *testEnv) fromOrigin(method, path, token string) *http.Response {
	e.t.Helper()
	req := e.request(method, path, token, nil)
	req.Header.Set("Origin", testOrigin)
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCORS_PledgePreflight(t *testing.T) {
	env := newTestEnv(t)

	req := env.request(http.MethodOptions, "/api/pledges", "", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORS_UnauthorizedPledgeKeepsHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp := env.fromOrigin(http.MethodGet, "/api/pledges", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

	resp = env.fromOrigin(http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_RateLimitedProjectListKeepsHeaders(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 100; i++ {
		resp := env.fromOrigin(http.MethodGet, "/api/projects", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := env.fromOrigin(http.MethodGet, "/api/projects", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

	// Preflight is exempt from the global limiter.
	req := env.request(http.MethodOptions, "/api/pledges", "", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = preflight.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, preflight.StatusCode)
}
