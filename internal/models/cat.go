package models

import (
	"time"

	"gorm.io/gorm"
)

type CatStatus string

const (
	CatAvailable CatStatus = "available"
	CatBooked    CatStatus = "booked"
	CatAdopted   CatStatus = "adopted"
)

type Cat struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	ShelterID    uint           `gorm:"not null;index" json:"shelter_id"`
	Name         string         `gorm:"type:varchar(100);not null" json:"name"`
	Breed        string         `gorm:"type:varchar(100)" json:"breed,omitempty"`
	Gender       string         `gorm:"type:varchar(10)" json:"gender,omitempty"`
	AgeMonths    int            `json:"age_months,omitempty"`
	Description  string         `gorm:"type:text" json:"description,omitempty"`
	AdoptionFee  float64        `gorm:"not null;default:0" json:"adoption_fee"`
	IsNegotiable bool           `gorm:"not null;default:false" json:"is_negotiable"`
	Status       CatStatus      `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Shelter Shelter `gorm:"foreignKey:ShelterID" json:"shelter,omitempty"`
}

func (Cat) TableName() string {
	return "cats"
}

func (c *Cat) IsAvailable() bool {
	return c.Status == CatAvailable
}
