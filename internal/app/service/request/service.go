package request

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/coiffeur/internal/app/service/lifecycle"
	"github.com/fatflowers/coiffeur/internal/app/service/subscription"
	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/logctx"
	"github.com/fatflowers/coiffeur/pkg/metrics"
	"github.com/fatflowers/coiffeur/pkg/tool"
	"github.com/fatflowers/coiffeur/pkg/types"
)

// Service is the queue of owner plan requests awaiting an administrator.
type Service struct {
	db       *gorm.DB
	log      *zap.SugaredLogger
	clock    clock.Clock
	subs     *subscription.Service
	notifier subscription.Notifier
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, clk clock.Clock, subs *subscription.Service, notifier subscription.Notifier) *Service {
	return &Service{db: db, log: log, clock: clk, subs: subs, notifier: notifier}
}

// Submit records a pending request for userID. A user may hold only one
// pending request at a time.
func (s *Service) Submit(ctx context.Context, userID, rawPlan string) (*models.SubscriptionRequest, error) {
	if userID == "" {
		return nil, fmt.Errorf("submit request: %w: empty user", types.ErrInvalidInput)
	}
	plan, err := types.ParsePlan(rawPlan)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	pending, err := s.GetPendingForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fmt.Errorf("submit request for %s: %w", userID, types.ErrDuplicatePending)
	}

	now := s.clock.Now()
	req := &models.SubscriptionRequest{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		PlanType:  plan,
		Status:    types.RequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		// lost the race against the partial unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("submit request for %s: %w", userID, types.ErrDuplicatePending)
		}
		return nil, types.StorageError("create subscription request", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription request submitted", "request_id", req.ID, "user_id", userID, "plan", plan)
	return req, nil
}

// GetPendingForUser returns the user's pending request, or nil when there is none.
func (s *Service) GetPendingForUser(ctx context.Context, userID string) (*models.SubscriptionRequest, error) {
	var req models.SubscriptionRequest
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.RequestStatusPending).
		Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.StorageError("get pending request", err)
	}
	return &req, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (*models.SubscriptionRequest, error) {
	var req models.SubscriptionRequest
	err := s.db.WithContext(ctx).Where("id = ?", requestID).Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription request %s: %w", requestID, types.ErrNotFound)
	}
	if err != nil {
		return nil, types.StorageError("get subscription request", err)
	}
	return &req, nil
}

// ListPending returns pending requests, newest first.
func (s *Service) ListPending(ctx context.Context) ([]*models.SubscriptionRequest, error) {
	return s.List(ctx, types.RequestStatusPending)
}

// List returns requests with the given status, or all requests for an empty
// status, newest first.
func (s *Service) List(ctx context.Context, status types.RequestStatus) ([]*models.SubscriptionRequest, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var items []*models.SubscriptionRequest
	if err := q.Find(&items).Error; err != nil {
		return nil, types.StorageError("list subscription requests", err)
	}
	return items, nil
}

type ApproveResult struct {
	Request *models.SubscriptionRequest `json:"request"`
	Salon   *models.Salon               `json:"salon"`
}

// Approve applies the requested plan to the requester's salon. The salon
// update and the request transition commit together.
func (s *Service) Approve(ctx context.Context, requestID, operatorID string) (*ApproveResult, error) {
	res, err := s.approve(ctx, requestID, operatorID)
	metrics.SubscriptionCommand(string(types.SubscriptionChangeReasonApprove), err)
	return res, err
}

func (s *Service) approve(ctx context.Context, requestID, operatorID string) (*ApproveResult, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, fmt.Errorf("approve request %s: %w", requestID, types.ErrRequestNotPending)
	}
	plan, err := types.ParsePlan(string(req.PlanType))
	if err != nil {
		return nil, fmt.Errorf("approve request %s: %w", requestID, err)
	}
	before, err := s.subs.GetByOwnerID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("approve request %s: %w", requestID, err)
	}

	now := s.clock.Now()
	after, err := lifecycle.Approve(before, plan, now)
	if err != nil {
		return nil, fmt.Errorf("approve request %s: %w", requestID, err)
	}
	resolved, err := lifecycle.ResolveRequest(req, types.RequestStatusApproved, operatorID, now)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := subscription.UpdateSalon(ctx, tx, before, after, now); err != nil {
			return err
		}
		return resolveInTx(ctx, tx, resolved)
	})
	if err != nil {
		return nil, fmt.Errorf("approve request %s: %w", requestID, err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription request approved",
		"request_id", requestID,
		"salon_id", after.ID,
		"plan", plan,
		"operator_id", operatorID,
		"subscription_end", after.SubscriptionEnd,
	)
	s.subs.SaveLog(ctx, before, after, types.SubscriptionChangeReasonApprove, operatorID,
		datatypes.JSONMap{"request_id": requestID, "plan": string(plan)})
	s.notify(ctx, req.UserID, "Subscription activated",
		fmt.Sprintf("Your %s subscription request was approved. Your subscription now runs until %s.",
			plan, after.SubscriptionEnd.Format("2006-01-02")),
		types.SeveritySuccess)
	return &ApproveResult{Request: resolved, Salon: after}, nil
}

// Reject closes a pending request without touching the salon.
func (s *Service) Reject(ctx context.Context, requestID, operatorID string) (*models.SubscriptionRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	resolved, err := lifecycle.ResolveRequest(req, types.RequestStatusRejected, operatorID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := resolveInTx(ctx, s.db, resolved); err != nil {
		return nil, fmt.Errorf("reject request %s: %w", requestID, err)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription request rejected", "request_id", requestID, "operator_id", operatorID)
	s.notify(ctx, req.UserID, "Subscription request rejected",
		"Your subscription request was rejected. Please contact support if you believe this is a mistake.",
		types.SeverityError)
	return resolved, nil
}

// resolveInTx moves a request out of pending only if it is still pending.
func resolveInTx(ctx context.Context, tx *gorm.DB, resolved *models.SubscriptionRequest) error {
	res := tx.WithContext(ctx).Model(&models.SubscriptionRequest{}).
		Where("id = ? AND status = ?", resolved.ID, types.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":      resolved.Status,
			"operator_id": resolved.OperatorID,
			"updated_at":  resolved.UpdatedAt,
		})
	if res.Error != nil {
		return types.StorageError("update subscription request", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrRequestNotPending
	}
	return nil
}

func (s *Service) notify(ctx context.Context, userID, title, message string, severity types.Severity) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, title, message, severity)
}
