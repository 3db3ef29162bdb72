package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/coiffeur/internal/app/service/lifecycle"
	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/config"
	"github.com/fatflowers/coiffeur/pkg/logctx"
	"github.com/fatflowers/coiffeur/pkg/metrics"
	"github.com/fatflowers/coiffeur/pkg/tool"
	"github.com/fatflowers/coiffeur/pkg/types"
)

// Notifier delivers an inbox message to an account. Delivery is best effort
// and must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string, severity types.Severity)
}

type Service struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *zap.SugaredLogger
	clock    clock.Clock
	notifier Notifier
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, clk clock.Clock, notifier Notifier) *Service {
	return &Service{cfg: cfg, db: db, log: log, clock: clk, notifier: notifier}
}

// Now is the instant every decision of this service is taken at.
func (s *Service) Now() time.Time { return s.clock.Now() }

// CreateSalon creates the owner's salon together with its trial window.
func (s *Service) CreateSalon(ctx context.Context, ownerID, name string) (*models.Salon, error) {
	if ownerID == "" || name == "" {
		return nil, fmt.Errorf("create salon: %w: owner and name are required", types.ErrInvalidInput)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Salon{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return nil, types.StorageError("create salon", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("create salon for %s: %w", ownerID, types.ErrDuplicateSalon)
	}

	now := s.clock.Now()
	salon := lifecycle.NewTrial(tool.GenerateUUIDV7(), ownerID, name, now, s.cfg.TrialDuration())
	salon.CreatedAt = now
	salon.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(salon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create salon for %s: %w", ownerID, types.ErrDuplicateSalon)
		}
		return nil, types.StorageError("create salon", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("salon created", "salon_id", salon.ID, "owner_id", ownerID, "subscription_end", salon.SubscriptionEnd)
	s.SaveLog(ctx, nil, salon, types.SubscriptionChangeReasonTrial, "", nil)
	s.notify(ctx, ownerID, welcomeNotice())
	return salon, nil
}

func (s *Service) GetBySalonID(ctx context.Context, salonID string) (*models.Salon, error) {
	return s.getBy(ctx, "id", salonID)
}

func (s *Service) GetByOwnerID(ctx context.Context, ownerID string) (*models.Salon, error) {
	return s.getBy(ctx, "owner_id", ownerID)
}

func (s *Service) getBy(ctx context.Context, column, value string) (*models.Salon, error) {
	if value == "" {
		return nil, fmt.Errorf("get salon: %w: empty %s", types.ErrInvalidInput, column)
	}
	var salon models.Salon
	err := s.db.WithContext(ctx).Where(column+" = ?", value).Take(&salon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("salon %s=%s: %w", column, value, types.ErrNotFound)
	}
	if err != nil {
		return nil, types.StorageError("get salon", err)
	}
	return &salon, nil
}

// CheckAccess resolves the owner's salon and runs the access decision at the
// service clock. An owner without a salon is allowed through with a nil salon.
func (s *Service) CheckAccess(ctx context.Context, ownerID string) (lifecycle.Result, error) {
	salon, err := s.GetByOwnerID(ctx, ownerID)
	if errors.Is(err, types.ErrNotFound) {
		return lifecycle.Result{Decision: types.DecisionAllow}, nil
	}
	if err != nil {
		return lifecycle.Result{}, err
	}
	return lifecycle.CheckAccess(salon, s.clock.Now()), nil
}

// GiftDays adds days to the salon's stored end and notifies the owner.
func (s *Service) GiftDays(ctx context.Context, salonID string, days int, note, operatorID string) (*models.Salon, error) {
	extra := datatypes.JSONMap{"days": days}
	if note != "" {
		extra["note"] = note
	}
	after, err := s.mutate(ctx, salonID, operatorID, types.SubscriptionChangeReasonGift, extra,
		func(salon *models.Salon, now time.Time) (*models.Salon, error) {
			return lifecycle.GiftDays(salon, days, now)
		})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, after.OwnerID, giftNotice(days, note))
	return after, nil
}

// Cancel expires the subscription immediately and notifies the owner.
func (s *Service) Cancel(ctx context.Context, salonID, operatorID string) (*models.Salon, error) {
	after, err := s.mutate(ctx, salonID, operatorID, types.SubscriptionChangeReasonCancel, nil, lifecycle.Cancel)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, after.OwnerID, cancelNotice())
	return after, nil
}

// Extend adds days, or the length of a plan shorthand, to the stored end.
// Extensions are not counted as bonus days and send no notification.
func (s *Service) Extend(ctx context.Context, salonID string, days int, plan, operatorID string) (*models.Salon, error) {
	n, err := lifecycle.ResolveExtension(days, plan)
	if err != nil {
		metrics.SubscriptionCommand("extend", err)
		return nil, fmt.Errorf("extend salon %s: %w", salonID, err)
	}
	extra := datatypes.JSONMap{"days": n}
	if plan != "" {
		extra["plan"] = plan
	}
	return s.mutate(ctx, salonID, operatorID, types.SubscriptionChangeReasonExtend, extra,
		func(salon *models.Salon, now time.Time) (*models.Salon, error) {
			return lifecycle.Extend(salon, n, now)
		})
}

// SetBanned sets the administrator ban lever. Banning notifies the owner.
func (s *Service) SetBanned(ctx context.Context, salonID string, banned bool, operatorID string) (*models.Salon, error) {
	reason := types.SubscriptionChangeReasonUnban
	if banned {
		reason = types.SubscriptionChangeReasonBan
	}
	after, err := s.mutate(ctx, salonID, operatorID, reason, nil,
		func(salon *models.Salon, _ time.Time) (*models.Salon, error) {
			return lifecycle.SetBanned(salon, banned)
		})
	if err != nil {
		return nil, err
	}
	if banned {
		s.notify(ctx, after.OwnerID, banNotice())
	}
	return after, nil
}

// ToggleBan flips the ban lever of the salon.
func (s *Service) ToggleBan(ctx context.Context, salonID, operatorID string) (*models.Salon, error) {
	salon, err := s.GetBySalonID(ctx, salonID)
	if err != nil {
		return nil, err
	}
	return s.SetBanned(ctx, salonID, salon.IsActive, operatorID)
}

type mutation func(salon *models.Salon, now time.Time) (*models.Salon, error)

// mutate runs load, engine and compare-and-swap for one administrator command.
func (s *Service) mutate(ctx context.Context, salonID, operatorID string, reason types.SubscriptionChangeReason, extra datatypes.JSONMap, fn mutation) (*models.Salon, error) {
	after, before, err := s.apply(ctx, salonID, fn)
	metrics.SubscriptionCommand(string(reason), err)
	if err != nil {
		return nil, fmt.Errorf("%s salon %s: %w", reason, salonID, err)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription changed",
		"salon_id", salonID,
		"reason", reason,
		"operator_id", operatorID,
		"before_end", before.SubscriptionEnd,
		"after_end", after.SubscriptionEnd,
		"status", after.SubscriptionStatus,
	)
	s.SaveLog(ctx, before, after, reason, operatorID, extra)
	return after, nil
}

func (s *Service) apply(ctx context.Context, salonID string, fn mutation) (after, before *models.Salon, err error) {
	before, err = s.GetBySalonID(ctx, salonID)
	if err != nil {
		return nil, nil, err
	}
	now := s.clock.Now()
	after, err = fn(before, now)
	if err != nil {
		return nil, nil, err
	}
	if err := UpdateSalon(ctx, s.db, before, after, now); err != nil {
		return nil, nil, err
	}
	return after, before, nil
}

// UpdateSalon writes the subscription columns of after only if the row still
// carries before's version. tx may be a transaction. On success after.Version
// holds the new version.
func UpdateSalon(ctx context.Context, tx *gorm.DB, before, after *models.Salon, now time.Time) error {
	res := tx.WithContext(ctx).Model(&models.Salon{}).
		Where("id = ? AND version = ?", before.ID, before.Version).
		Updates(map[string]interface{}{
			"is_active":           after.IsActive,
			"subscription_end":    after.SubscriptionEnd,
			"subscription_status": after.SubscriptionStatus,
			"subscription_plan":   after.SubscriptionPlan,
			"bonus_days":          after.BonusDays,
			"version":             before.Version + 1,
			"updated_at":          now,
		})
	if res.Error != nil {
		return types.StorageError("update salon", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrConcurrentUpdate
	}
	after.Version = before.Version + 1
	after.UpdatedAt = now
	return nil
}

// SaveLog writes an audit row asynchronously; errors are logged but not returned.
func (s *Service) SaveLog(ctx context.Context, before, after *models.Salon, reason types.SubscriptionChangeReason, operatorID string, extra datatypes.JSONMap) {
	if extra == nil {
		extra = datatypes.JSONMap{}
	}
	entry := &models.SubscriptionLog{
		ID:         tool.GenerateUUIDV7(),
		SalonID:    after.ID,
		Reason:     reason,
		OperatorID: operatorID,
		Before:     datatypes.NewJSONType(before.Clone()),
		After:      datatypes.NewJSONType(after.Clone()),
		Extra:      extra,
		CreatedAt:  s.clock.Now(),
	}
	lg := logctx.FromCtx(ctx, s.log)
	go func() {
		if err := s.db.Create(entry).Error; err != nil {
			lg.Errorf("failed to save subscription log: %v", err)
		}
	}()
}

func (s *Service) notify(ctx context.Context, userID string, n notice) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, n.title, n.message, n.severity)
}
