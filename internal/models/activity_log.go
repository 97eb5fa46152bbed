package models

import (
	"encoding/json"
	"time"
)

// ActivityLog is the audit trail for adoption/payment state changes.
// CauserID is nil for system actions (auto-cancel, deadline sweep).
type ActivityLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CauserID    *uint     `gorm:"index" json:"causer_id"`
	SubjectType string    `gorm:"type:varchar(100);not null" json:"subject_type"`
	SubjectID   uint      `gorm:"not null;index" json:"subject_id"`
	Event       string    `gorm:"type:varchar(100);not null;index" json:"event"`
	Description string    `gorm:"type:text" json:"description"`
	Properties  string    `gorm:"type:json" json:"properties,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// NewActivityLog builds a log row; Properties marshalling errors degrade to
// an empty payload rather than blocking the business write.
func NewActivityLog(causerID *uint, subjectType string, subjectID uint, event, description string, properties map[string]interface{}) ActivityLog {
	entry := ActivityLog{
		CauserID:    causerID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Event:       event,
		Description: description,
	}
	if properties != nil {
		if raw, err := json.Marshal(properties); err == nil {
			entry.Properties = string(raw)
		}
	}
	return entry
}
