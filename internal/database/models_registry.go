package database

import "crowdfund/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Project{},
		&models.Pledge{},
		&models.Favourite{},
	}
}
