package repository

import (
	"context"
	"errors"

	"crowdfund/internal/models"
	"crowdfund/internal/observability"

	"gorm.io/gorm"
)

// FavouriteRepository defines persistence operations for favourites.
type FavouriteRepository interface {
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Favourite, error)
	Toggle(ctx context.Context, ownerID, projectID uint) (*models.Favourite, bool, error)
}

type favouriteRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewFavouriteRepository returns a new FavouriteRepository implementation.
func NewFavouriteRepository(db *gorm.DB) FavouriteRepository {
	return &favouriteRepository{db: db, log: observability.NewRepoLogger("favourites")}
}

func (r *favouriteRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Favourite, error) {
	var favourites []models.Favourite
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Preload("Project").
		Preload("Project.Owner").
		Preload("Project.Category").
		Order("created_at DESC").
		Find(&favourites).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return favourites, nil
}

// Toggle removes the favourite if it exists and creates it otherwise. The
// boolean reports whether the project is now favourited.
func (r *favouriteRepository) Toggle(ctx context.Context, ownerID, projectID uint) (*models.Favourite, bool, error) {
	var (
		result     models.Favourite
		favourited bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Favourite
		err := tx.Where("owner_id = ? AND project_id = ?", ownerID, projectID).First(&existing).Error
		switch {
		case err == nil:
			result = existing
			return tx.Delete(&existing).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		result = models.Favourite{OwnerID: ownerID, ProjectID: projectID}
		if err := tx.Omit("Owner", "Project").Create(&result).Error; err != nil {
			return err
		}
		favourited = true
		return tx.Preload("Project").Preload("Project.Owner").Preload("Project.Category").First(&result, result.ID).Error
	})
	if err != nil {
		return nil, false, translate(err, "Favourite", projectID)
	}

	fields := map[string]interface{}{"owner_id": ownerID, "project_id": projectID}
	if favourited {
		r.log.LogCreate(ctx, fields)
	} else {
		r.log.LogDelete(ctx, fields)
	}
	return &result, favourited, nil
}
