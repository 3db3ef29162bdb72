// Package lifecycle holds the subscription state machine of a salon. Every
// function is pure: it takes the current record and an explicit instant and
// returns a new record, leaving persistence to the caller.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/types"
)

const (
	Day = 24 * time.Hour
	// ExpiringWindowDays is the number of remaining days at or below which a
	// subscription is classified as expiring.
	ExpiringWindowDays = 7
	// MaxGrantDays caps a single gift or extension.
	MaxGrantDays = 36500
)

// Result is the outcome of CheckAccess. Salon is set only for DecisionAllow
// and may be nil when the owner has not created a salon yet.
type Result struct {
	Decision types.Decision
	Salon    *models.Salon
}

func (r Result) Allowed() bool { return r.Decision == types.DecisionAllow }

// DaysLeft returns ceil((end-now)/day). Sub saturates for ends centuries
// away, so the rounding must not add to d.
func DaysLeft(end, now time.Time) int {
	d := end.Sub(now)
	// integer division truncates toward zero, which is ceil for negatives
	n := d / Day
	if d > 0 && d%Day != 0 {
		n++
	}
	return int(n)
}

// Classify buckets a subscription end for dashboards and stats.
func Classify(end, now time.Time) types.Classification {
	left := DaysLeft(end, now)
	switch {
	case left <= 0:
		return types.ClassificationExpired
	case left <= ExpiringWindowDays:
		return types.ClassificationExpiring
	default:
		return types.ClassificationActive
	}
}

// IsUsable reports whether the salon may use the owner dashboard at now. The
// cached status column is deliberately ignored.
func IsUsable(s *models.Salon, now time.Time) bool {
	return s != nil && s.IsActive && now.Before(s.SubscriptionEnd)
}

// CheckAccess decides whether an owner request may proceed. A ban always wins
// over subscription timing.
func CheckAccess(s *models.Salon, now time.Time) Result {
	switch {
	case s == nil:
		return Result{Decision: types.DecisionAllow}
	case !s.IsActive:
		return Result{Decision: types.DecisionBanned}
	case !now.Before(s.SubscriptionEnd):
		return Result{Decision: types.DecisionExpired}
	default:
		return Result{Decision: types.DecisionAllow, Salon: s}
	}
}

// NewTrial builds the record created together with a salon.
func NewTrial(id, ownerID, name string, now time.Time, trial time.Duration) *models.Salon {
	return &models.Salon{
		ID:                 id,
		OwnerID:            ownerID,
		Name:               name,
		IsActive:           true,
		SubscriptionStart:  now,
		SubscriptionEnd:    now.Add(trial),
		SubscriptionStatus: types.SubscriptionStatusTrial,
	}
}

// GiftDays adds days to the stored end, not to now, so extensions granted
// during a trial are banked. The status is forced to active only when the new
// end lies in the future.
func GiftDays(s *models.Salon, days int, now time.Time) (*models.Salon, error) {
	if s == nil {
		return nil, fmt.Errorf("gift days: %w", types.ErrNotFound)
	}
	if err := checkGrant(days); err != nil {
		return nil, fmt.Errorf("gift days: %w", err)
	}
	out := s.Clone()
	out.SubscriptionEnd = s.SubscriptionEnd.Add(time.Duration(days) * Day)
	out.BonusDays = s.BonusDays + days
	if out.SubscriptionEnd.After(now) {
		out.SubscriptionStatus = types.SubscriptionStatusActive
	}
	return out, nil
}

// Extend adds days to the stored end without counting them as a gift.
func Extend(s *models.Salon, days int, now time.Time) (*models.Salon, error) {
	if s == nil {
		return nil, fmt.Errorf("extend: %w", types.ErrNotFound)
	}
	if err := checkGrant(days); err != nil {
		return nil, fmt.Errorf("extend: %w", err)
	}
	out := s.Clone()
	out.SubscriptionEnd = s.SubscriptionEnd.Add(time.Duration(days) * Day)
	if out.SubscriptionEnd.After(now) {
		out.SubscriptionStatus = types.SubscriptionStatusActive
	}
	return out, nil
}

// ResolveExtension turns the extend command input into a day count. A plan
// shorthand takes precedence over an explicit day count.
func ResolveExtension(days int, plan string) (int, error) {
	if plan != "" {
		p, err := types.ParsePlan(plan)
		if err != nil {
			return 0, err
		}
		return p.Days(), nil
	}
	if err := checkGrant(days); err != nil {
		return 0, err
	}
	return days, nil
}

func checkGrant(days int) error {
	if days < 1 || days > MaxGrantDays {
		return fmt.Errorf("%w: days must be between 1 and %d, got %d", types.ErrInvalidInput, MaxGrantDays, days)
	}
	return nil
}

// Cancel pushes the end one full day before now so every reader sees the
// subscription as expired. The ban flag is left alone.
func Cancel(s *models.Salon, now time.Time) (*models.Salon, error) {
	if s == nil {
		return nil, fmt.Errorf("cancel: %w", types.ErrNotFound)
	}
	out := s.Clone()
	out.SubscriptionEnd = now.Add(-Day)
	out.SubscriptionStatus = types.SubscriptionStatusExpired
	return out, nil
}

// PlanDays returns the term of a plan.
func PlanDays(plan types.Plan) (int, error) {
	days := plan.Days()
	if days == 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrUnknownPlan, plan)
	}
	return days, nil
}

// Approve applies a paid term. A lapsed window restarts from now; a running
// one is stacked on, so the end never moves backwards.
func Approve(s *models.Salon, plan types.Plan, now time.Time) (*models.Salon, error) {
	if s == nil {
		return nil, fmt.Errorf("approve: %w: salon", types.ErrNotFound)
	}
	days, err := PlanDays(plan)
	if err != nil {
		return nil, fmt.Errorf("approve: %w", err)
	}
	base := now
	if s.SubscriptionEnd.After(now) {
		base = s.SubscriptionEnd
	}
	out := s.Clone()
	out.SubscriptionEnd = base.Add(time.Duration(days) * Day)
	out.SubscriptionStatus = types.SubscriptionStatusActive
	p := plan
	out.SubscriptionPlan = &p
	return out, nil
}

// SetBanned returns the record with the ban lever set. Subscription timing is
// untouched.
func SetBanned(s *models.Salon, banned bool) (*models.Salon, error) {
	if s == nil {
		return nil, fmt.Errorf("ban: %w", types.ErrNotFound)
	}
	out := s.Clone()
	out.IsActive = !banned
	return out, nil
}

// ResolveRequest moves a pending request to approved or rejected.
func ResolveRequest(r *models.SubscriptionRequest, status types.RequestStatus, operatorID string, now time.Time) (*models.SubscriptionRequest, error) {
	if r == nil {
		return nil, fmt.Errorf("resolve request: %w", types.ErrNotFound)
	}
	if status != types.RequestStatusApproved && status != types.RequestStatusRejected {
		return nil, fmt.Errorf("resolve request: %w: target status %q", types.ErrInvalidInput, status)
	}
	if !r.IsPending() {
		return nil, fmt.Errorf("resolve request %s: %w (status %s)", r.ID, types.ErrRequestNotPending, r.Status)
	}
	out := *r
	out.Status = status
	out.UpdatedAt = now
	if operatorID != "" {
		op := operatorID
		out.OperatorID = &op
	}
	return &out, nil
}
