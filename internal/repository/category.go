package repository

import (
	"context"
	"errors"
	"fmt"

	"crowdfund/internal/models"
	"crowdfund/internal/observability"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	LoadProjects(ctx context.Context, category *models.Category) error
	Create(ctx context.Context, category *models.Category) error
	DeleteReassigning(ctx context.Context, name, sentinel string) (int64, error)
}

type categoryRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db, log: observability.NewRepoLogger("categories")}
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err, "Category", id)
	}
	return &category, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, translate(err, "Category", name)
	}
	return &category, nil
}

func (r *categoryRepository) LoadProjects(ctx context.Context, category *models.Category) error {
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Category").
		Where("category_id = ?", category.ID).
		Order("date_created DESC").
		Find(&category.Projects).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return translate(err, "Category", category.Name)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"category_id": category.ID, "name": category.Name})
	return nil
}

// DeleteReassigning deletes the named category after moving its projects to
// the sentinel category, all in one transaction.
func (r *categoryRepository) DeleteReassigning(ctx context.Context, name, sentinel string) (int64, error) {
	defer observability.TrackQuery("delete_reassigning_tx", "categories")()
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.Category
		if err := tx.Where("name = ?", name).First(&target).Error; err != nil {
			return translate(err, "Category", name)
		}

		var fallback models.Category
		if err := tx.Where("name = ?", sentinel).First(&fallback).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewReferentialIntegrityError(fmt.Sprintf("sentinel category %q does not exist", sentinel))
			}
			return models.NewInternalError(err)
		}
		if fallback.ID == target.ID {
			return models.NewForbiddenError("The fallback category cannot be deleted")
		}

		res := tx.Model(&models.Project{}).
			Where("category_id = ?", target.ID).
			Update("category_id", fallback.ID)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		moved = res.RowsAffected

		if err := tx.Delete(&models.Category{}, target.ID).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return 0, err
	}

	observability.CategoryReassignments.Add(float64(moved))
	r.log.LogDelete(ctx, map[string]interface{}{"name": name, "reassigned": moved, "sentinel": sentinel})
	return moved, nil
}
