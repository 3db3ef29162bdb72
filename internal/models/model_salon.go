package models

import (
	"time"

	"github.com/fatflowers/coiffeur/pkg/types"
)

// Salon is the tenant owned by an owner account. It carries the salon's
// subscription record; SubscriptionEnd is the only authority on validity.
type Salon struct {
	ID      string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	OwnerID string `gorm:"column:owner_id;type:varchar(64);not null;uniqueIndex" json:"owner_id"`
	Name    string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	// IsActive is the administrator ban lever, independent of subscription timing.
	IsActive          bool      `gorm:"column:is_active;not null" json:"is_active"`
	SubscriptionStart time.Time `gorm:"column:subscription_start;not null" json:"subscription_start"`
	SubscriptionEnd   time.Time `gorm:"column:subscription_end;not null;index" json:"subscription_end"`
	// SubscriptionStatus is a cached hint for listings and may lag SubscriptionEnd.
	SubscriptionStatus types.SubscriptionStatus `gorm:"column:subscription_status;type:varchar(16);not null" json:"subscription_status"`
	// SubscriptionPlan is the last approved paid plan, nil until the first approval.
	SubscriptionPlan *types.Plan `gorm:"column:subscription_plan;type:varchar(16)" json:"subscription_plan"`
	// BonusDays accumulates administrator gifts. Audit only.
	BonusDays int `gorm:"column:bonus_days;not null;default:0" json:"bonus_days"`
	// Version guards read-modify-write updates of the subscription columns.
	Version   int64     `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Salon) TableName() string {
	return "salon"
}

// Clone returns a shallow copy with its own plan pointer.
func (s *Salon) Clone() *Salon {
	if s == nil {
		return nil
	}
	cp := *s
	if s.SubscriptionPlan != nil {
		p := *s.SubscriptionPlan
		cp.SubscriptionPlan = &p
	}
	return &cp
}
