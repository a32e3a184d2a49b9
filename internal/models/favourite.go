package models

import "time"

// Favourite is a user's bookmark of a project.
type Favourite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;uniqueIndex:idx_favourites_owner_project" json:"owner_id"`
	Owner     User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_favourites_owner_project;index" json:"project_id"`
	Project   Project   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project"`
	CreatedAt time.Time `json:"created_at"`
}
