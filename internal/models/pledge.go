package models

import "time"

// Pledge is a supporter's commitment of an amount to a project.
type Pledge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Amount      int       `gorm:"not null" json:"amount"`
	Comment     string    `gorm:"size:200" json:"comment"`
	Anonymous   bool      `gorm:"not null;default:false" json:"anonymous"`
	DateSent    time.Time `gorm:"not null" json:"date_sent"`
	ProjectID   uint      `gorm:"not null;index" json:"project_id"`
	Project     Project   `gorm:"foreignKey:ProjectID" json:"-"`
	SupporterID uint      `gorm:"not null;index" json:"supporter_id"`
	Supporter   User      `gorm:"foreignKey:SupporterID" json:"-"`
}
