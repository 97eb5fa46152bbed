package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationAdoptionRequest   NotificationType = "adoption_request"
	NotificationAdoptionApproved  NotificationType = "adoption_approved"
	NotificationAdoptionRejected  NotificationType = "adoption_rejected"
	NotificationAdoptionCancelled NotificationType = "adoption_cancelled"
	NotificationPaymentReceived   NotificationType = "payment_received"
	NotificationShippingConfirmed NotificationType = "shipping_confirmed"
	NotificationAdoptionCompleted NotificationType = "adoption_completed"
	NotificationPriceUpdated      NotificationType = "price_updated"
)

type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(50);not null"`
	Title     string           `json:"title" gorm:"type:varchar(255);not null"`
	Message   string           `json:"message" gorm:"type:text;not null"`
	Link      string           `json:"link" gorm:"type:varchar(255)"`
	IsRead    bool             `json:"is_read" gorm:"default:false;index"`
	Data      string           `json:"data" gorm:"type:json"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate hook
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	n.CreatedAt = time.Now()
	return nil
}
