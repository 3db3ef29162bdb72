package models

import (
	"time"

	"github.com/fatflowers/coiffeur/pkg/types"
)

// Notification is an inbox entry shown to an account.
type Notification struct {
	ID        string         `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;type:varchar(64);not null;index:idx_notification_user_created,priority:1" json:"user_id"`
	Title     string         `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"column:message;type:text;not null" json:"message"`
	Type      types.Severity `gorm:"column:type;type:varchar(16);not null;default:info" json:"type"`
	IsRead    bool           `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time      `gorm:"index:idx_notification_user_created,priority:2" json:"created_at"`
}

func (Notification) TableName() string {
	return "notification"
}
