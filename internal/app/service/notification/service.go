package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/logctx"
	"github.com/fatflowers/coiffeur/pkg/tool"
	"github.com/fatflowers/coiffeur/pkg/types"
)

const (
	channelPrefix = "notifications:"
	defaultLimit  = 50
	maxLimit      = 200

	publishRetries = 3
)

// Channel is the redis channel carrying live notifications for userID.
func Channel(userID string) string { return channelPrefix + userID }

// Message is the payload published on a user's channel.
type Message struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.SugaredLogger
	rdb   *goredis.Client
	clock clock.Clock
}

// NewService builds the sink. rdb may be nil, in which case notifications
// are only persisted.
func NewService(db *gorm.DB, log *zap.SugaredLogger, rdb *goredis.Client, clk clock.Clock) *Service {
	return &Service{db: db, log: log, rdb: rdb, clock: clk}
}

// Notify asynchronously persists and publishes a notification. Nil or empty
// input is ignored and failures are only logged.
func (s *Service) Notify(ctx context.Context, userID, title, message string, severity types.Severity) {
	if userID == "" {
		return
	}
	n := &models.Notification{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      severity,
		CreatedAt: s.clock.Now(),
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.Deliver(ctx, n); err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("failed to deliver notification", "user_id", userID, "title", title, "err", err)
		}
	}()
}

// Deliver persists n and publishes it on the user's channel.
func (s *Service) Deliver(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = tool.GenerateUUIDV7()
	}
	if n.Type == "" {
		n.Type = types.SeverityInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock.Now()
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return types.StorageError("save notification", err)
	}
	if s.rdb == nil {
		return nil
	}
	data, err := json.Marshal(&Message{Type: "notification", Notification: n})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second
	publish := func() error {
		return s.rdb.Publish(ctx, Channel(n.UserID), data).Err()
	}
	if err := backoff.Retry(publish, backoff.WithContext(backoff.WithMaxRetries(bo, publishRetries), ctx)); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// ListByUser returns the newest notifications of userID.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	var items []*models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, types.StorageError("list notifications", err)
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, types.StorageError("count notifications", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("notification %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.StorageError("get notification", err)
	}
	if n.IsRead {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&n).Update("is_read", true).Error; err != nil {
		return types.StorageError("mark notification read", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read and returns
// how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, types.StorageError("mark notifications read", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return types.StorageError("delete notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification %s: %w", id, types.ErrNotFound)
	}
	return nil
}
