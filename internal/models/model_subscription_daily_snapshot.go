package models

import (
	"time"

	"github.com/fatflowers/coiffeur/pkg/types"
)

// SubscriptionDailySnapshot is a daily copy of a salon's subscription record for analytics.
type SubscriptionDailySnapshot struct {
	ID                 string                   `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	SalonID            string                   `gorm:"column:salon_id;type:varchar(36);not null;uniqueIndex:idx_salon_id_snapshot_date,priority:1" json:"salon_id"`
	OwnerID            string                   `gorm:"column:owner_id;type:varchar(64);not null" json:"owner_id"`
	IsActive           bool                     `gorm:"column:is_active;not null" json:"is_active"`
	SubscriptionEnd    time.Time                `gorm:"column:subscription_end;not null" json:"subscription_end"`
	SubscriptionStatus types.SubscriptionStatus `gorm:"column:subscription_status;type:varchar(16);not null" json:"subscription_status"`
	SubscriptionPlan   *types.Plan              `gorm:"column:subscription_plan;type:varchar(16)" json:"subscription_plan"`
	BonusDays          int                      `gorm:"column:bonus_days;not null" json:"bonus_days"`
	// Classification is computed from SubscriptionEnd at SnapshotCreatedAt.
	Classification    types.Classification `gorm:"column:classification;type:varchar(16);not null;index" json:"classification"`
	SnapshotDate      string               `gorm:"column:snapshot_date;type:varchar(10);uniqueIndex:idx_salon_id_snapshot_date,priority:2" json:"snapshot_date"`
	SnapshotCreatedAt time.Time            `gorm:"column:snapshot_created_at" json:"snapshot_created_at"`
}

func (SubscriptionDailySnapshot) TableName() string {
	return "subscription_daily_snapshot"
}
