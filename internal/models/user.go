package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdopter UserRole = "adopter"
	RoleShelter UserRole = "shelter"
	RoleAdmin   UserRole = "admin"
)

type User struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	Name       string         `gorm:"type:varchar(100);not null" json:"name"`
	Email      string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone      string         `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Avatar     string         `gorm:"type:text" json:"avatar,omitempty"`
	Role       UserRole       `gorm:"type:varchar(20);not null;default:'adopter'" json:"role"`
	LastSeenAt *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Shelter *Shelter `gorm:"foreignKey:UserID" json:"shelter,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsShelter() bool {
	return u.Role == RoleShelter
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
