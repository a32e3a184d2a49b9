package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crowdfund/internal/middleware"
	"crowdfund/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sentinelDescription = "Projects without a more specific category."

// VerifySentinelCategory fails when the fallback category is missing. Category
// deletes cannot complete without it.
func VerifySentinelCategory(ctx context.Context, db *gorm.DB, name string) (*models.Category, error) {
	var category models.Category
	err := db.WithContext(ctx).Where("name = ?", name).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewReferentialIntegrityError(fmt.Sprintf("sentinel category %q does not exist", name))
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// EnsureSentinelCategory creates the fallback category if it is missing.
func EnsureSentinelCategory(ctx context.Context, db *gorm.DB, name string) (*models.Category, error) {
	category := models.Category{Name: name, Description: sentinelDescription}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&category).Error
	if err != nil {
		return nil, fmt.Errorf("create sentinel category: %w", err)
	}

	existing, err := VerifySentinelCategory(ctx, db, name)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "sentinel category ready",
		slog.String("name", existing.Name),
		slog.Uint64("id", uint64(existing.ID)),
	)
	return existing, nil
}
