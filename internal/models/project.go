package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is a crowdfunding campaign. A nil PubDate marks a draft.
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Goal        int        `gorm:"not null" json:"goal"`
	Image       string     `json:"image"`
	DateCreated time.Time  `gorm:"not null;index" json:"date_created"`
	Duration    int        `gorm:"not null" json:"duration"`
	PubDate     *time.Time `gorm:"index" json:"pub_date"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	Owner       User       `gorm:"foreignKey:OwnerID" json:"owner"`
	CategoryID  uint       `gorm:"not null;index" json:"category_id"`
	Category    Category   `gorm:"foreignKey:CategoryID" json:"category"`
	Pledges     []Pledge   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"pledges,omitempty"`
}

// BeforeCreate stamps DateCreated when the caller has not. Updates never
// write the column.
func (p *Project) BeforeCreate(_ *gorm.DB) error {
	if p.DateCreated.IsZero() {
		p.DateCreated = time.Now().UTC()
	}
	return nil
}

// Published reports whether the project has left the draft state.
func (p *Project) Published() bool {
	return p.PubDate != nil
}
