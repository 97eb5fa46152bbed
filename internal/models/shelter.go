package models

import (
	"time"

	"gorm.io/gorm"
)

type Shelter struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	UserID       uint           `gorm:"not null;uniqueIndex" json:"user_id"`
	Name         string         `gorm:"type:varchar(100);not null" json:"name"`
	City         string         `gorm:"type:varchar(100)" json:"city,omitempty"`
	Description  string         `gorm:"type:text" json:"description,omitempty"`
	TotalAdopted int            `gorm:"not null;default:0" json:"total_adopted"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	User User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Cats []Cat `gorm:"foreignKey:ShelterID" json:"cats,omitempty"`
}

func (Shelter) TableName() string {
	return "shelters"
}
