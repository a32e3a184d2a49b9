package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"crowdfund/internal/cache"
	"crowdfund/internal/models"
	"crowdfund/internal/observability"
	"crowdfund/internal/policy"
	"crowdfund/internal/projection"
	"crowdfund/internal/repository"

	"github.com/redis/go-redis/v9"
)

const maxCategoryNameLen = 15

type CategoryService struct {
	categoryRepo repository.CategoryRepository
	redis        *redis.Client
	sentinel     string
	now          Clock
}

func NewCategoryService(categoryRepo repository.CategoryRepository, rdb *redis.Client, sentinel string, now Clock) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		redis:        rdb,
		sentinel:     sentinel,
		now:          clockOrDefault(now),
	}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]projection.CategoryView, error) {
	return cache.Aside(ctx, s.redis, cache.CategoryListKey, cache.CategoryTTL, func() ([]projection.CategoryView, error) {
		categories, err := s.categoryRepo.List(ctx)
		if err != nil {
			return nil, err
		}
		return projection.Categories(categories), nil
	})
}

// GetCategory resolves key as a category name, falling back to a numeric
// id when no category has that name, and embeds the projects the caller may
// see. Names win so that numeric names such as "2024" stay reachable.
func (s *CategoryService) GetCategory(ctx context.Context, caller policy.Caller, key string) (*projection.CategoryDetailView, error) {
	category, err := cache.Aside(ctx, s.redis, cache.CategoryKey(key), cache.CategoryTTL, func() (*models.Category, error) {
		return s.categoryRepo.GetByName(ctx, key)
	})
	if models.HasCode(err, models.CodeNotFound) {
		if id, convErr := strconv.ParseUint(key, 10, 64); convErr == nil && id > 0 {
			category, err = s.categoryRepo.GetByID(ctx, uint(id))
		}
	}
	if err != nil {
		return nil, err
	}

	if err := s.categoryRepo.LoadProjects(ctx, category); err != nil {
		return nil, err
	}
	view := projection.CategoryDetail(category, caller, s.now())
	return &view, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, name, description string) (*projection.CategoryView, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, models.NewFieldError(map[string]string{"name": "This field is required."})
	case utf8.RuneCountInString(name) > maxCategoryNameLen:
		return nil, models.NewFieldError(map[string]string{"name": "Ensure this field has no more than 15 characters."})
	}

	category := &models.Category{Name: name, Description: description}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	cache.InvalidateCategory(ctx, s.redis, name)

	view := projection.Category(category)
	return &view, nil
}

// DeleteCategory removes the named category, rebinding its projects to the
// sentinel. It returns how many projects were moved.
func (s *CategoryService) DeleteCategory(ctx context.Context, name string) (int64, error) {
	moved, err := s.categoryRepo.DeleteReassigning(ctx, name, s.sentinel)
	if err != nil {
		return 0, err
	}
	cache.InvalidateCategory(ctx, s.redis, name)
	observability.LogServiceCall(ctx, "category", "delete", map[string]interface{}{
		"name":       name,
		"reassigned": moved,
	})
	return moved, nil
}
