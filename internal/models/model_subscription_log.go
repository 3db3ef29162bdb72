package models

import (
	"time"

	"github.com/fatflowers/coiffeur/pkg/types"
	"gorm.io/datatypes"
)

// SubscriptionLog records changes to a salon's subscription record.
// Use case: troubleshooting and gift audit.
type SubscriptionLog struct {
	ID      string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	SalonID string `gorm:"column:salon_id;type:varchar(36);index:idx_subscription_log_salon_id,priority:1;not null" json:"salon_id"`
	// Reason is the change reason.
	Reason types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(32);not null" json:"reason"`
	// OperatorID is the administrator that issued the change, empty for owner-driven changes.
	OperatorID string `gorm:"column:operator_id;type:varchar(64)" json:"operator_id"`
	// Before stores the record before the change in JSON format.
	Before datatypes.JSONType[*Salon] `gorm:"column:before" json:"before"`
	// After stores the record after the change in JSON format.
	After datatypes.JSONType[*Salon] `gorm:"column:after" json:"after"`
	// Extra stores additional context such as the gift note.
	Extra     datatypes.JSONMap `gorm:"column:extra" json:"extra"`
	CreatedAt time.Time         `gorm:"index:idx_subscription_log_salon_id,priority:2" json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
