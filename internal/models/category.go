// Package models contains data structures for the application's domain models.
package models

// Category groups projects. One category, the sentinel, is the fallback for
// projects whose category is deleted.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:15;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Projects    []Project `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}
