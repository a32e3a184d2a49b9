package repository

import (
	"context"
	"testing"

	"crowdfund/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository_DeleteReassigning(t *testing.T) {
	ctx := context.Background()

	t.Run("moves projects to the sentinel", func(t *testing.T) {
		db := newTestDB(t)
		f := newFixtures(t, db)
		sentinel := f.category("other")
		art := f.category("art")
		owner := f.user()
		p1 := f.project(owner, art, ago(0))
		p2 := f.project(owner, art, nil)

		repo := NewCategoryRepository(db)
		moved, err := repo.DeleteReassigning(ctx, "art", "other")
		require.NoError(t, err)
		assert.Equal(t, int64(2), moved)

		for _, id := range []uint{p1.ID, p2.ID} {
			var got models.Project
			require.NoError(t, db.First(&got, id).Error)
			assert.Equal(t, sentinel.ID, got.CategoryID)
		}
		_, err = repo.GetByName(ctx, "art")
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("missing sentinel leaves everything untouched", func(t *testing.T) {
		db := newTestDB(t)
		f := newFixtures(t, db)
		art := f.category("art")
		p := f.project(f.user(), art, nil)

		_, err := NewCategoryRepository(db).DeleteReassigning(ctx, "art", "other")
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeReferentialIntegrity))

		var got models.Project
		require.NoError(t, db.First(&got, p.ID).Error)
		assert.Equal(t, art.ID, got.CategoryID)
		assert.Equal(t, int64(1), count(t, db, &models.Category{}, "name = ?", "art"))
	})

	t.Run("sentinel cannot delete itself", func(t *testing.T) {
		db := newTestDB(t)
		f := newFixtures(t, db)
		f.category("other")

		_, err := NewCategoryRepository(db).DeleteReassigning(ctx, "other", "other")
		assert.True(t, models.HasCode(err, models.CodeForbidden))
		assert.Equal(t, int64(1), count(t, db, &models.Category{}, ""))
	})

	t.Run("unknown category", func(t *testing.T) {
		db := newTestDB(t)
		newFixtures(t, db).category("other")

		_, err := NewCategoryRepository(db).DeleteReassigning(ctx, "nope", "other")
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestCategoryRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewCategoryRepository(db)

	require.NoError(t, repo.Create(ctx, &models.Category{Name: "tech"}))
	require.NoError(t, repo.Create(ctx, &models.Category{Name: "art"}))

	err := repo.Create(ctx, &models.Category{Name: "art"})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	categories, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "art", categories[0].Name)
	assert.Equal(t, "tech", categories[1].Name)
}

func TestCategoryRepository_LoadProjects(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	f := newFixtures(t, db)
	art := f.category("art")
	tech := f.category("tech")
	owner := f.user()
	f.project(owner, art, ago(0))
	f.project(owner, tech, ago(0))

	repo := NewCategoryRepository(db)
	got, err := repo.GetByName(ctx, "art")
	require.NoError(t, err)
	require.NoError(t, repo.LoadProjects(ctx, got))
	require.Len(t, got.Projects, 1)
	assert.Equal(t, owner.Username, got.Projects[0].Owner.Username)
	assert.Equal(t, "art", got.Projects[0].Category.Name)
}
