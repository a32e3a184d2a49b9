package models

import "time"

// User is an account that can own projects and pledge to others.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email            string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"not null" json:"-"`
	Bio              string     `gorm:"type:text" json:"bio"`
	Pic              string     `json:"pic"`
	FirstName        string     `gorm:"size:150" json:"first_name"`
	LastName         string     `gorm:"size:150" json:"last_name"`
	DateJoined       time.Time  `gorm:"autoCreateTime" json:"date_joined"`
	LastLogin        *time.Time `json:"last_login"`
	OwnerProjects    []Project  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	SupporterPledges []Pledge   `gorm:"foreignKey:SupporterID;constraint:OnDelete:CASCADE" json:"-"`
}
