package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"animeverse/internal/cache"
	"animeverse/internal/config"
	"animeverse/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-at-least-32-characters-long"

type testServer struct {
	*Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

// newTestServer wires a Server to an in-memory sqlite database, miniredis and a
// temporary media root.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	cfg := &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            testJWTSecret,
		StorageBackend:       "local",
		MediaRoot:            t.TempDir(),
		MediaURL:             "/media",
		ImageQuality:         85,
		ImageMaxUploadSizeMB: 2,
	}
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &testServer{Server: s, app: s.newApp(), db: db, mr: mr}
}

// do runs req against the app and decodes a JSON body when there is one.
func (ts *testServer) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	return ts.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (ts *testServer) postForm(t *testing.T, path string, values url.Values) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return ts.do(t, req)
}

func jsonRequest(t *testing.T, method, path, token string, payload any) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, strings.NewReader(string(data)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = ts.get(t, "/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])

	ts.mr.Close()
	resp, body = ts.get(t, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.get(t, "/health/live")
	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.get(t, "/health/live")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/no/such/route")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}
