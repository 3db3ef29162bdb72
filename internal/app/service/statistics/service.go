package statistics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/coiffeur/internal/app/service/lifecycle"
	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/logctx"
	"github.com/fatflowers/coiffeur/pkg/tool"
	"github.com/fatflowers/coiffeur/pkg/types"
)

type StatisticType string

const (
	// Snapshot based, one value per snapshot date.
	StatisticTypeDailySalonCount          StatisticType = "daily_salon_count"
	StatisticTypeDailyClassificationCount StatisticType = "daily_classification_count"
	StatisticTypeDailyPlanCount           StatisticType = "daily_plan_count"
	StatisticTypeDailyBannedCount         StatisticType = "daily_banned_count"
	StatisticTypeDailyBonusDays           StatisticType = "daily_bonus_days"

	// Live, computed from the salon table.
	StatisticTypeTotalSalonCount   StatisticType = "total_salon_count"
	StatisticTypePendingRequests   StatisticType = "pending_request_count"
	StatisticTypeApprovedByPlan    StatisticType = "approved_request_count_by_plan"
	StatisticTypeGiftedDaysByAdmin StatisticType = "gifted_days_total"
)

// SnapshotFilterFields are the snapshot columns a statistic request may filter on.
var SnapshotFilterFields = []string{"snapshot_date", "classification", "subscription_plan", "subscription_status", "is_active"}

// snapshotOnly lists the statistic types the request filters apply to.
var snapshotOnly = []StatisticType{
	StatisticTypeDailySalonCount,
	StatisticTypeDailyClassificationCount,
	StatisticTypeDailyPlanCount,
	StatisticTypeDailyBannedCount,
	StatisticTypeDailyBonusDays,
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   types.FiltersAnd     `json:"filters"`
	DataItems []*StatisticDataItem `json:"data_items"`
}

func (r *StatisticRequest) Validate() error {
	if r == nil || len(r.DataItems) == 0 {
		return fmt.Errorf("%w: data_items required", types.ErrInvalidInput)
	}
	for _, f := range r.Filters {
		if err := f.Validate(SnapshotFilterFields); err != nil {
			return err
		}
	}
	return nil
}

type StatisticResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

// DailyCount is the classification breakdown of one snapshot date.
type DailyCount struct {
	Date string `json:"date"`
	types.SubscriptionStats
}

// SnapshotResult summarises one SnapshotAll run.
type SnapshotResult struct {
	Date          string `json:"date"`
	Salons        int64  `json:"salons"`
	StatusExpired int64  `json:"status_expired"`
}

// Service provides statistics operations
type Service struct {
	db    *gorm.DB
	log   *zap.SugaredLogger
	clock clock.Clock
}

func New(db *gorm.DB, log *zap.SugaredLogger, clk clock.Clock) *Service {
	return &Service{db: db, log: log, clock: clk}
}

const snapshotBatchSize = 200

// SnapshotAll stores one snapshot row per salon for date, replacing rows of
// an earlier run on the same date, then refreshes the cached status hint of
// salons whose window has ended.
func (s *Service) SnapshotAll(ctx context.Context, date time.Time) (*SnapshotResult, error) {
	now := s.clock.Now()
	day := date.UTC().Format(time.DateOnly)
	result := &SnapshotResult{Date: day}

	var salons []*models.Salon
	err := s.db.WithContext(ctx).FindInBatches(&salons, snapshotBatchSize, func(tx *gorm.DB, _ int) error {
		snaps := lo.Map(salons, func(salon *models.Salon, _ int) *models.SubscriptionDailySnapshot {
			return &models.SubscriptionDailySnapshot{
				ID:                 tool.GenerateUUIDV7(),
				SalonID:            salon.ID,
				OwnerID:            salon.OwnerID,
				IsActive:           salon.IsActive,
				SubscriptionEnd:    salon.SubscriptionEnd,
				SubscriptionStatus: salon.SubscriptionStatus,
				SubscriptionPlan:   salon.SubscriptionPlan,
				BonusDays:          salon.BonusDays,
				Classification:     lifecycle.Classify(salon.SubscriptionEnd, now),
				SnapshotDate:       day,
				SnapshotCreatedAt:  now,
			}
		})
		if err := s.SaveSnapshots(ctx, snaps); err != nil {
			return err
		}
		result.Salons += int64(len(snaps))
		return nil
	}).Error
	if err != nil {
		return nil, types.StorageError("snapshot salons", err)
	}

	res := s.db.WithContext(ctx).Model(&models.Salon{}).
		Where("subscription_end <= ? AND subscription_status <> ?", now, types.SubscriptionStatusExpired).
		Updates(map[string]interface{}{
			"subscription_status": types.SubscriptionStatusExpired,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          now,
		})
	if res.Error != nil {
		return nil, types.StorageError("refresh status hint", res.Error)
	}
	result.StatusExpired = res.RowsAffected

	logctx.FromCtx(ctx, s.log).Infow("subscription snapshot completed", "date", day, "salons", result.Salons, "status_expired", result.StatusExpired)
	return result, nil
}

// SaveSnapshots upserts snapshot rows on (salon_id, snapshot_date).
func (s *Service) SaveSnapshots(ctx context.Context, snaps []*models.SubscriptionDailySnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "salon_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "is_active", "subscription_end", "subscription_status",
			"subscription_plan", "bonus_days", "classification", "snapshot_created_at",
		}),
	}).Create(&snaps).Error
}

// DailyCounts returns the per-date classification breakdown for dates in
// [from, to], oldest first. Dates without snapshots are omitted.
func (s *Service) DailyCounts(ctx context.Context, from, to time.Time) ([]*DailyCount, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before start", types.ErrInvalidInput)
	}
	var rows []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Model(&models.SubscriptionDailySnapshot{}).
		Select("snapshot_date as date, classification as label, count(*) as value").
		Where("snapshot_date >= ? AND snapshot_date <= ?", from.UTC().Format(time.DateOnly), to.UTC().Format(time.DateOnly)).
		Group("snapshot_date").
		Group("classification").
		Find(&rows).Error
	if err != nil {
		return nil, types.StorageError("daily counts", err)
	}

	byDate := make(map[string]*DailyCount)
	for _, row := range rows {
		dc, ok := byDate[row.Date]
		if !ok {
			dc = &DailyCount{Date: row.Date}
			byDate[row.Date] = dc
		}
		switch types.Classification(row.Label) {
		case types.ClassificationActive:
			dc.Active += row.Value
		case types.ClassificationExpiring:
			dc.Expiring += row.Value
		case types.ClassificationExpired:
			dc.Expired += row.Value
		}
	}
	out := lo.Values(byDate)
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Service) snapshotQuery(ctx context.Context, request *StatisticRequest) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.SubscriptionDailySnapshot{}).
		Where(clause.Where{Exprs: []clause.Expression{request.Filters}})
}

func (s *Service) getDailySalonCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.snapshotQuery(ctx, request).
		Select("snapshot_date as date, count(*) as value").
		Group("snapshot_date").
		Order("snapshot_date").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyClassificationCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.snapshotQuery(ctx, request).
		Select("snapshot_date as date, classification as label, count(*) as value").
		Group("snapshot_date").
		Group("classification").
		Order("snapshot_date").
		Order("classification").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyPlanCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.snapshotQuery(ctx, request).
		Select("snapshot_date as date, subscription_plan as label, count(*) as value").
		Where("subscription_plan IS NOT NULL").
		Group("snapshot_date").
		Group("subscription_plan").
		Order("snapshot_date").
		Order("subscription_plan").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyBannedCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.snapshotQuery(ctx, request).
		Select("snapshot_date as date, count(*) as value").
		Where("is_active = ?", false).
		Group("snapshot_date").
		Order("snapshot_date").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyBonusDays(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.snapshotQuery(ctx, request).
		Select("snapshot_date as date, sum(bonus_days) as value").
		Group("snapshot_date").
		Order("snapshot_date").
		Find(&results).Error
	return results, err
}

func (s *Service) getTotalSalonCount(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Salon{}).Count(&count).Error; err != nil {
		return nil, err
	}
	return []StatisticResponseDataItem{{Value: count}}, nil
}

func (s *Service) getPendingRequests(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SubscriptionRequest{}).
		Where("status = ?", types.RequestStatusPending).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	return []StatisticResponseDataItem{{Value: count}}, nil
}

func (s *Service) getApprovedByPlan(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Model(&models.SubscriptionRequest{}).
		Select("plan_type as label, count(*) as value").
		Where("status = ?", types.RequestStatusApproved).
		Group("plan_type").
		Order("plan_type").
		Find(&results).Error
	return results, err
}

func (s *Service) getGiftedDays(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Model(&models.Salon{}).
		Select("coalesce(sum(bonus_days), 0) as value").
		Find(&results).Error
	return results, err
}

func (s *Service) getStatistic(ctx context.Context, request *StatisticRequest, dataItem *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailySalonCount:
		return s.getDailySalonCount(ctx, request)
	case StatisticTypeDailyClassificationCount:
		return s.getDailyClassificationCount(ctx, request)
	case StatisticTypeDailyPlanCount:
		return s.getDailyPlanCount(ctx, request)
	case StatisticTypeDailyBannedCount:
		return s.getDailyBannedCount(ctx, request)
	case StatisticTypeDailyBonusDays:
		return s.getDailyBonusDays(ctx, request)
	case StatisticTypeTotalSalonCount:
		return s.getTotalSalonCount(ctx, request)
	case StatisticTypePendingRequests:
		return s.getPendingRequests(ctx, request)
	case StatisticTypeApprovedByPlan:
		return s.getApprovedByPlan(ctx, request)
	case StatisticTypeGiftedDaysByAdmin:
		return s.getGiftedDays(ctx, request)
	default:
		return nil, fmt.Errorf("%w: invalid data item id: %s", types.ErrInvalidInput, dataItem.ID)
	}
}

// GetStatistic computes every requested data item concurrently.
func (s *Service) GetStatistic(ctx context.Context, request *StatisticRequest) (*StatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []StatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *StatisticDataItem) {
			defer wg.Done()
			// filters only make sense for snapshot statistics
			if len(request.Filters) > 0 && !lo.Contains(snapshotOnly, di.ID) {
				resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: nil}
				return
			}
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	wg.Wait()
	close(errChan)
	close(resChan)

	if err, ok := <-errChan; ok {
		return nil, wrapQueryError(err)
	}
	results := make(map[StatisticType][]StatisticResponseDataItem, len(request.DataItems))
	for entry := range resChan {
		results[entry.Key] = entry.Value
	}
	return &StatisticResponse{DataItems: results}, nil
}

func wrapQueryError(err error) error {
	if errors.Is(err, types.ErrInvalidInput) {
		return err
	}
	return types.StorageError("statistic query", err)
}
