package testutil

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/tool"
	"github.com/fatflowers/coiffeur/pkg/types"
)

// TestSalon inserts a salon for ownerID whose subscription ends a week after
// now. Options adjust the row before it is written.
func TestSalon(t *testing.T, db *gorm.DB, ownerID string, now time.Time, opts ...func(*models.Salon)) *models.Salon {
	t.Helper()

	s := &models.Salon{
		ID:                 tool.GenerateUUIDV7(),
		OwnerID:            ownerID,
		Name:               "Salon " + ownerID,
		IsActive:           true,
		SubscriptionStart:  now,
		SubscriptionEnd:    now.Add(7 * 24 * time.Hour),
		SubscriptionStatus: types.SubscriptionStatusTrial,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("failed to create test salon: %v", err)
	}
	return s
}

// WithEnd sets the subscription end.
func WithEnd(end time.Time) func(*models.Salon) {
	return func(s *models.Salon) {
		s.SubscriptionEnd = end
	}
}

// WithStatus sets the cached subscription status.
func WithStatus(status types.SubscriptionStatus) func(*models.Salon) {
	return func(s *models.Salon) {
		s.SubscriptionStatus = status
	}
}

// Banned marks the salon as deactivated by an administrator.
func Banned() func(*models.Salon) {
	return func(s *models.Salon) {
		s.IsActive = false
	}
}

// WithBonusDays sets the accumulated gift days.
func WithBonusDays(days int) func(*models.Salon) {
	return func(s *models.Salon) {
		s.BonusDays = days
	}
}

// TestRequest inserts a subscription request for userID.
func TestRequest(t *testing.T, db *gorm.DB, userID string, plan types.Plan, status types.RequestStatus, now time.Time) *models.SubscriptionRequest {
	t.Helper()

	r := &models.SubscriptionRequest{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		PlanType:  plan,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("failed to create test request: %v", err)
	}
	return r
}

// ReloadSalon reads the salon row back from db.
func ReloadSalon(t *testing.T, db *gorm.DB, id string) *models.Salon {
	t.Helper()

	var s models.Salon
	if err := db.Where("id = ?", id).Take(&s).Error; err != nil {
		t.Fatalf("failed to reload salon %s: %v", id, err)
	}
	return &s
}
