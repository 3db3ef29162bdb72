package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/fatflowers/coiffeur/internal/app/service/lifecycle"
	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/types"
)

// ListFilterFields are the salon columns an admin listing may filter on.
var ListFilterFields = []string{"owner_id", "name", "is_active", "subscription_status", "subscription_plan", "subscription_end"}

// SalonView is a salon with its classification at listing time.
type SalonView struct {
	*models.Salon
	DaysLeft       int                  `json:"days_left"`
	Classification types.Classification `json:"classification"`
}

// NewSalonView classifies salon at now.
func NewSalonView(salon *models.Salon, now time.Time) *SalonView {
	return &SalonView{
		Salon:          salon,
		DaysLeft:       lifecycle.DaysLeft(salon.SubscriptionEnd, now),
		Classification: lifecycle.Classify(salon.SubscriptionEnd, now),
	}
}

type Overview struct {
	Salons []*SalonView            `json:"salons"`
	Stats  types.SubscriptionStats `json:"stats"`
}

// ListWithStats returns the salons matching filters, soonest expiry first,
// with counts per classification.
func (s *Service) ListWithStats(ctx context.Context, filters types.FiltersAnd) (*Overview, error) {
	for _, f := range filters {
		if err := f.Validate(ListFilterFields); err != nil {
			return nil, fmt.Errorf("list salons: %w", err)
		}
	}
	var salons []*models.Salon
	if err := s.db.WithContext(ctx).Where(filters).Order("subscription_end ASC").Find(&salons).Error; err != nil {
		return nil, types.StorageError("list salons", err)
	}

	now := s.clock.Now()
	out := &Overview{
		Salons: lo.Map(salons, func(salon *models.Salon, _ int) *SalonView {
			return NewSalonView(salon, now)
		}),
	}
	for _, v := range out.Salons {
		out.Stats.Add(v.Classification)
	}
	return out, nil
}
