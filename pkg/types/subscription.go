package types

import "strings"

// SubscriptionStatus is the cached status column of a salon. It is a hint for
// listings only; access decisions are recomputed from subscription_end.
type SubscriptionStatus string

const (
	SubscriptionStatusTrial   SubscriptionStatus = "trial"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusExpired:
		return true
	}
	return false
}

// Plan is a paid subscription plan an owner can request.
type Plan string

const (
	PlanMonth   Plan = "month"
	Plan3Months Plan = "3months"
	Plan6Months Plan = "6months"
	PlanYear    Plan = "year"
)

const planYearLegacy = "yearly"

var planDays = map[Plan]int{
	PlanMonth:   30,
	Plan3Months: 90,
	Plan6Months: 180,
	PlanYear:    365,
}

// AllPlans lists plans in catalogue order.
var AllPlans = []Plan{PlanMonth, Plan3Months, Plan6Months, PlanYear}

// ParsePlan maps a raw plan string to a Plan. The legacy spelling "yearly"
// still found in stored requests resolves to PlanYear.
func ParsePlan(raw string) (Plan, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrInvalidInput
	}
	if s == planYearLegacy {
		return PlanYear, nil
	}
	p := Plan(s)
	if _, ok := planDays[p]; !ok {
		return "", ErrUnknownPlan
	}
	return p, nil
}

// Days returns the number of days a plan grants, or 0 for an unknown plan.
func (p Plan) Days() int {
	return planDays[p]
}

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Classification buckets a subscription window for dashboards and stats.
type Classification string

const (
	ClassificationActive   Classification = "active"
	ClassificationExpiring Classification = "expiring"
	ClassificationExpired  Classification = "expired"
)

// Decision is the outcome of the access gate for an owner request.
type Decision string

const (
	DecisionAllow   Decision = "allow"
	DecisionBanned  Decision = "banned"
	DecisionExpired Decision = "expired"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonTrial   SubscriptionChangeReason = "trial"
	SubscriptionChangeReasonGift    SubscriptionChangeReason = "gift"
	SubscriptionChangeReasonCancel  SubscriptionChangeReason = "cancel"
	SubscriptionChangeReasonExtend  SubscriptionChangeReason = "extend"
	SubscriptionChangeReasonApprove SubscriptionChangeReason = "approve"
	SubscriptionChangeReasonBan     SubscriptionChangeReason = "ban"
	SubscriptionChangeReasonUnban   SubscriptionChangeReason = "unban"
)

// SubscriptionStats counts salons per classification.
type SubscriptionStats struct {
	Active   int64 `json:"active"`
	Expiring int64 `json:"expiring"`
	Expired  int64 `json:"expired"`
}

// Add increments the bucket for c.
func (s *SubscriptionStats) Add(c Classification) {
	switch c {
	case ClassificationActive:
		s.Active++
	case ClassificationExpiring:
		s.Expiring++
	case ClassificationExpired:
		s.Expired++
	}
}
