package models

import (
	"time"
)

// Message is one chat line inside an adoption conversation. SenderID is nil
// for messages authored by the MangOyen bot; those never pass through
// moderation.
type Message struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	AdoptionID uint       `gorm:"not null;index:idx_messages_adoption_read" json:"adoption_id"`
	SenderID   *uint      `gorm:"index" json:"sender_id"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	IsCensored bool       `gorm:"not null;default:false" json:"is_censored"`
	ReadAt     *time.Time `gorm:"index:idx_messages_adoption_read" json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Adoption Adoption `gorm:"foreignKey:AdoptionID" json:"-"`
	Sender   *User    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) IsBot() bool {
	return m.SenderID == nil
}

// MessageArchive holds aged-out chat lines moved off the hot messages table
// by the batch archiver.
type MessageArchive struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	OriginalID        uint      `gorm:"not null;index" json:"original_id"`
	AdoptionID        uint      `gorm:"not null;index" json:"adoption_id"`
	SenderID          *uint     `json:"sender_id"`
	Content           string    `gorm:"type:text;not null" json:"content"`
	IsCensored        bool      `gorm:"not null;default:false" json:"is_censored"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	OriginalCreatedAt time.Time `gorm:"not null" json:"original_created_at"`
	ArchivedAt        time.Time `gorm:"not null" json:"archived_at"`
}

func (MessageArchive) TableName() string {
	return "messages_archive"
}
