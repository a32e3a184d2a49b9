package server

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"crowdfund/internal/models"
	"crowdfund/internal/projection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProjectBody(categoryID uint) map[string]interface{} {
	body := map[string]interface{}{
		"title":       "Solar kiln",
		"description": "Fire pottery with sunlight",
		"goal":        5000,
		"image":       "https://example.com/kiln.png",
		"duration":    30,
	}
	if categoryID != 0 {
		body["category"] = categoryID
	}
	return body
}

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user()
	art := env.category("art")

	t.Run("requires auth", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/projects", "", validProjectBody(0))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("draft in the sentinel category", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/projects", token, validProjectBody(0))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		got := decode[projection.ProjectView](t, resp)
		assert.Equal(t, testSentinel, got.Category)
		assert.Nil(t, got.PubDate)
		assert.False(t, got.IsOpen)
	})

	t.Run("published in a chosen category", func(t *testing.T) {
		body := validProjectBody(art.ID)
		body["pub_date"] = time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
		resp := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		got := decode[projection.ProjectView](t, resp)
		assert.Equal(t, "art", got.Category)
		assert.True(t, got.IsOpen)
		require.NotNil(t, got.ClosesAt)
	})

	t.Run("field errors", func(t *testing.T) {
		body := validProjectBody(9999)
		body["goal"] = 0
		body["image"] = "not a url"
		resp := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		got := decode[models.ErrorResponse](t, resp)
		assert.Contains(t, got.Fields, "goal")
		assert.Contains(t, got.Fields, "image")
	})

	t.Run("future pub_date", func(t *testing.T) {
		body := validProjectBody(0)
		body["pub_date"] = time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
		resp := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		got := decode[models.ErrorResponse](t, resp)
		assert.Contains(t, got.Fields, "pub_date")
	})
}

func TestDraftVisibility(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.user()
	_, otherToken := env.user()
	draft := env.project(owner, 0, 10)
	published := env.project(owner, time.Hour, 10)
	path := fmt.Sprintf("/api/projects/%d", draft.ID)

	resp := env.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(http.MethodGet, path, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(http.MethodGet, path, ownerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/projects", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]projection.ProjectView](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, published.ID, list[0].ID)

	resp = env.do(http.MethodGet, "/api/projects", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list = decode[[]projection.ProjectView](t, resp)
	require.Len(t, list, 1, "drafts are listed under /mine only")
	assert.Equal(t, published.ID, list[0].ID)

	resp = env.do(http.MethodGet, "/api/projects/mine", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]projection.ProjectView](t, resp), 2)

	resp = env.do(http.MethodGet, "/api/projects/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetProjectsQueryValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"owner=abc", "category=-1", "date_created=yesterday", "ordering=title"} {
		t.Run(q, func(t *testing.T) {
			resp := env.do(http.MethodGet, "/api/projects?"+q, "", nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp := env.do(http.MethodGet, "/api/projects/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateProject(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.user()
	_, otherToken := env.user()
	p := env.project(owner, time.Hour, 10)
	path := fmt.Sprintf("/api/projects/%d", p.ID)

	resp := env.do(http.MethodPatch, path, otherToken, map[string]interface{}{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodPatch, path, ownerToken, map[string]interface{}{"title": "Renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[projection.ProjectView](t, resp)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, p.Goal, got.Goal)

	resp = env.do(http.MethodPatch, path, ownerToken, map[string]interface{}{"duration": 99})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[models.ErrorResponse](t, resp).Fields, "duration")

	resp = env.do(http.MethodPut, path, ownerToken, map[string]interface{}{"title": "only title"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[models.ErrorResponse](t, resp).Fields, "description")
}

func TestPublishProject(t *testing.T) {
	env := newTestEnv(t)
	owner, token := env.user()
	draft := env.project(owner, 0, 5)
	path := fmt.Sprintf("/api/projects/%d/publish", draft.ID)

	resp := env.do(http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[projection.ProjectView](t, resp)
	require.NotNil(t, got.PubDate)
	assert.True(t, got.IsOpen)

	resp = env.do(http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.user()
	supporter, otherToken := env.user()
	p := env.project(owner, time.Hour, 10)
	require.NoError(t, env.db.Create(&models.Pledge{
		Amount: 5, DateSent: time.Now().UTC(), ProjectID: p.ID, SupporterID: supporter.ID,
	}).Error)
	path := fmt.Sprintf("/api/projects/%d", p.ID)

	resp := env.do(http.MethodDelete, path, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodDelete, path, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int64(0), env.count(&models.Pledge{}, "project_id = ?", p.ID))

	resp = env.do(http.MethodGet, path, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
