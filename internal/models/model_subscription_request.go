package models

import (
	"time"

	"github.com/fatflowers/coiffeur/pkg/types"
)

// SubscriptionRequest is an owner's request to buy or renew a plan. At most
// one pending row may exist per user.
type SubscriptionRequest struct {
	ID         string              `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID     string              `gorm:"column:user_id;type:varchar(64);not null;index:idx_subscription_request_user_status,priority:1" json:"user_id"`
	PlanType   types.Plan          `gorm:"column:plan_type;type:varchar(16);not null" json:"plan_type"`
	Status     types.RequestStatus `gorm:"column:status;type:varchar(16);not null;index:idx_subscription_request_user_status,priority:2" json:"status"`
	OperatorID *string             `gorm:"column:operator_id;type:varchar(64)" json:"operator_id,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (SubscriptionRequest) TableName() string {
	return "subscription_request"
}

func (r *SubscriptionRequest) IsPending() bool {
	return r != nil && r.Status == types.RequestStatusPending
}
