package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crowdfund/internal/config"
	"crowdfund/internal/database"
	"crowdfund/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testSecret   = "test-secret-key-12345678901234567890123456789012"
	testSentinel = "other"
	testPassword = "pass1234"
)

// testEnv is a full application over in-memory SQLite and miniredis.
type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	mr       *miniredis.Miniredis
	srv      *Server
	app      *fiber.App
	sentinel *models.Category
	n        int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith lets a test adjust the config before the server is built.
func newTestEnvWith(t *testing.T, adjust func(*config.Config)) *testEnv {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	sentinel := &models.Category{Name: testSentinel, Description: "Uncategorised"}
	require.NoError(t, db.Create(sentinel).Error)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Env:              "test",
		JWTSecret:        testSecret,
		JWTTTLHours:      1,
		SentinelCategory: testSentinel,
		AllowedOrigins:   "http://localhost:5173",
	}
	if adjust != nil {
		adjust(cfg)
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = rdb.Close()
		_ = sqlDB.Close()
	})

	return &testEnv{t: t, db: db, mr: mr, srv: srv, app: srv.App(), sentinel: sentinel}
}

// user inserts an account directly and returns it with a valid token.
func (e *testEnv) user() (*models.User, string) {
	e.t.Helper()
	e.n++
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(e.t, err)

	u := &models.User{
		Username: fmt.Sprintf("user%d", e.n),
		Email:    fmt.Sprintf("user%d@example.com", e.n),
		Password: string(hash),
	}
	require.NoError(e.t, e.db.Create(u).Error)

	token, _, err := e.srv.tokens.Issue(u.ID, u.Username, time.Now().UTC())
	require.NoError(e.t, err)
	return u, token
}

func (e *testEnv) category(name string) *models.Category {
	e.t.Helper()
	c := &models.Category{Name: name}
	require.NoError(e.t, e.db.Create(c).Error)
	return c
}

// project inserts a project directly. A zero pubAgo makes a draft.
func (e *testEnv) project(owner *models.User, pubAgo time.Duration, duration int) *models.Project {
	e.t.Helper()
	p := &models.Project{
		Title:       "Project " + owner.Username,
		Description: "desc",
		Goal:        1000,
		Image:       "https://example.com/p.png",
		Duration:    duration,
		OwnerID:     owner.ID,
		CategoryID:  e.sentinel.ID,
	}
	if pubAgo > 0 {
		pub := time.Now().UTC().Add(-pubAgo)
		p.PubDate = &pub
	}
	require.NoError(e.t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) count(model interface{}, query string, args ...interface{}) int64 {
	e.t.Helper()
	var n int64
	q := e.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(e.t, q.Count(&n).Error)
	return n
}

// do sends a JSON request. An empty token sends no Authorization header.
func (e *testEnv) do(method, path, token string, body interface{}) *http.Response {
	e.t.Helper()
	resp, err := e.app.Test(e.request(method, path, token, body), -1)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// request builds the request do sends.
func (e *testEnv) request(method, path, token string, body interface{}) *http.Request {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
