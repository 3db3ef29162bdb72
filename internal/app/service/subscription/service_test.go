package subscription

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/coiffeur/internal/app/service/lifecycle"
	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/internal/testutil"
	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/config"
	"github.com/fatflowers/coiffeur/pkg/types"
)

var t0 = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

const day = 24 * time.Hour

type sentNotice struct {
	userID   string
	title    string
	message  string
	severity types.Severity
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (r *recordingNotifier) Notify(_ context.Context, userID, title, message string, severity types.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotice{userID: userID, title: title, message: message, severity: severity})
}

func (r *recordingNotifier) all() []sentNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentNotice(nil), r.sent...)
}

func setupService(t *testing.T) (*Service, *gorm.DB, *clock.Fixed, *recordingNotifier) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clk := clock.NewFixed(t0)
	cfg := &config.Config{Subscription: config.SubscriptionConfig{TrialDays: 7}}
	n := &recordingNotifier{}
	return NewService(cfg, db, zap.NewNop().Sugar(), clk, n), db, clk, n
}

func assertSameInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestCreateSalon(t *testing.T) {
	svc, db, _, n := setupService(t)
	ctx := context.Background()

	salon, err := svc.CreateSalon(ctx, "owner-1", "Luxor Beauty")
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusTrial, salon.SubscriptionStatus)
	assertSameInstant(t, t0.Add(7*day), salon.SubscriptionEnd)

	stored := testutil.ReloadSalon(t, db, salon.ID)
	assert.Equal(t, "owner-1", stored.OwnerID)
	assert.True(t, stored.IsActive)
	assertSameInstant(t, t0, stored.SubscriptionStart)
	assertSameInstant(t, t0.Add(7*day), stored.SubscriptionEnd)

	sent := n.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner-1", sent[0].userID)
	assert.Equal(t, types.SeveritySuccess, sent[0].severity)

	_, err = svc.CreateSalon(ctx, "owner-1", "Second")
	require.ErrorIs(t, err, types.ErrDuplicateSalon)

	_, err = svc.CreateSalon(ctx, "", "x")
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestCheckAccess(t *testing.T) {
	svc, db, clk, _ := setupService(t)
	ctx := context.Background()

	res, err := svc.CheckAccess(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, types.DecisionAllow, res.Decision)
	assert.Nil(t, res.Salon)

	testutil.TestSalon(t, db, "owner-ok", t0)
	testutil.TestSalon(t, db, "owner-banned", t0, testutil.Banned(), testutil.WithEnd(t0.Add(3650*day)))
	testutil.TestSalon(t, db, "owner-expired", t0, testutil.WithEnd(t0.Add(-time.Second)), testutil.WithStatus(types.SubscriptionStatusActive))

	res, err = svc.CheckAccess(ctx, "owner-ok")
	require.NoError(t, err)
	require.Equal(t, types.DecisionAllow, res.Decision)
	require.NotNil(t, res.Salon)
	assert.Equal(t, "owner-ok", res.Salon.OwnerID)

	res, err = svc.CheckAccess(ctx, "owner-banned")
	require.NoError(t, err)
	assert.Equal(t, types.DecisionBanned, res.Decision)

	res, err = svc.CheckAccess(ctx, "owner-expired")
	require.NoError(t, err)
	assert.Equal(t, types.DecisionExpired, res.Decision)

	// the trial ends exactly at t0+7d
	clk.Set(t0.Add(7 * day))
	res, err = svc.CheckAccess(ctx, "owner-ok")
	require.NoError(t, err)
	assert.Equal(t, types.DecisionExpired, res.Decision)
}

func TestCheckAccess_StorageFailure(t *testing.T) {
	svc, db, _, _ := setupService(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.CheckAccess(context.Background(), "owner-1")
	require.ErrorIs(t, err, types.ErrStorageFailure)
	assert.NotErrorIs(t, err, types.ErrNotFound)
}

func TestGiftDays(t *testing.T) {
	svc, db, _, n := setupService(t)
	ctx := context.Background()
	salon := testutil.TestSalon(t, db, "owner-1", t0, testutil.WithEnd(t0.Add(3*day)), testutil.WithBonusDays(2))

	after, err := svc.GiftDays(ctx, salon.ID, 5, "eid", "admin-1")
	require.NoError(t, err)
	assertSameInstant(t, t0.Add(8*day), after.SubscriptionEnd)
	assert.Equal(t, 7, after.BonusDays)
	assert.Equal(t, types.SubscriptionStatusActive, after.SubscriptionStatus)

	stored := testutil.ReloadSalon(t, db, salon.ID)
	assertSameInstant(t, t0.Add(8*day), stored.SubscriptionEnd)
	assert.Equal(t, 7, stored.BonusDays)
	assert.Equal(t, int64(1), stored.Version)

	sent := n.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner-1", sent[0].userID)
	assert.True(t, strings.Contains(sent[0].message, "5 days"))
	assert.True(t, strings.Contains(sent[0].message, "eid"))

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&models.SubscriptionLog{}).Where("salon_id = ? AND reason = ?", salon.ID, types.SubscriptionChangeReasonGift).Count(&count)
		return count == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestGiftDays_ExpiredStaysExpiredWhenStillInPast(t *testing.T) {
	svc, db, _, _ := setupService(t)
	salon := testutil.TestSalon(t, db, "owner-1", t0,
		testutil.WithEnd(t0.Add(-10*day)),
		testutil.WithStatus(types.SubscriptionStatusExpired))

	after, err := svc.GiftDays(context.Background(), salon.ID, 2, "", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusExpired, after.SubscriptionStatus)
	assertSameInstant(t, t0.Add(-8*day), after.SubscriptionEnd)
}

func TestGiftDays_InvalidInputLeavesRowUntouched(t *testing.T) {
	svc, db, _, n := setupService(t)
	ctx := context.Background()
	salon := testutil.TestSalon(t, db, "owner-1", t0)

	for _, days := range []int{0, -3} {
		_, err := svc.GiftDays(ctx, salon.ID, days, "", "admin-1")
		require.ErrorIs(t, err, types.ErrInvalidInput)
	}
	stored := testutil.ReloadSalon(t, db, salon.ID)
	assertSameInstant(t, salon.SubscriptionEnd, stored.SubscriptionEnd)
	assert.Zero(t, stored.Version)
	assert.Empty(t, n.all())

	_, err := svc.GiftDays(ctx, "missing", 3, "", "admin-1")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestCancel(t *testing.T) {
	svc, db, _, n := setupService(t)
	ctx := context.Background()
	salon := testutil.TestSalon(t, db, "owner-1", t0, testutil.WithEnd(t0.Add(90*day)), testutil.WithStatus(types.SubscriptionStatusActive))

	after, err := svc.Cancel(ctx, salon.ID, "admin-1")
	require.NoError(t, err)
	assertSameInstant(t, t0.Add(-day), after.SubscriptionEnd)
	assert.Equal(t, types.SubscriptionStatusExpired, after.SubscriptionStatus)

	res, err := svc.CheckAccess(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, types.DecisionExpired, res.Decision)

	sent := n.all()
	require.Len(t, sent, 1)
	assert.Equal(t, types.SeverityError, sent[0].severity)

	_, err = svc.Cancel(ctx, "missing", "admin-1")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestExtend(t *testing.T) {
	svc, db, _, n := setupService(t)
	ctx := context.Background()
	salon := testutil.TestSalon(t, db, "owner-1", t0, testutil.WithEnd(t0.Add(-2*day)), testutil.WithStatus(types.SubscriptionStatusExpired))

	after, err := svc.Extend(ctx, salon.ID, 0, "3months", "admin-1")
	require.NoError(t, err)
	assertSameInstant(t, t0.Add(88*day), after.SubscriptionEnd)
	assert.Equal(t, types.SubscriptionStatusActive, after.SubscriptionStatus)
	assert.Zero(t, after.BonusDays)

	after, err = svc.Extend(ctx, salon.ID, 10, "", "admin-1")
	require.NoError(t, err)
	assertSameInstant(t, t0.Add(98*day), after.SubscriptionEnd)

	_, err = svc.Extend(ctx, salon.ID, 0, "weekly", "admin-1")
	require.ErrorIs(t, err, types.ErrUnknownPlan)
	_, err = svc.Extend(ctx, salon.ID, 0, "", "admin-1")
	require.ErrorIs(t, err, types.ErrInvalidInput)

	assert.Empty(t, n.all())
}

func TestToggleBan(t *testing.T) {
	svc, db, _, n := setupService(t)
	ctx := context.Background()
	salon := testutil.TestSalon(t, db, "owner-1", t0)

	after, err := svc.ToggleBan(ctx, salon.ID, "admin-1")
	require.NoError(t, err)
	assert.False(t, after.IsActive)
	assertSameInstant(t, salon.SubscriptionEnd, after.SubscriptionEnd)

	res, err := svc.CheckAccess(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, types.DecisionBanned, res.Decision)
	require.Len(t, n.all(), 1)

	after, err = svc.ToggleBan(ctx, salon.ID, "admin-1")
	require.NoError(t, err)
	assert.True(t, after.IsActive)
	assert.Len(t, n.all(), 1, "unban sends no notification")
}

func TestUpdateSalon_RejectsStaleVersion(t *testing.T) {
	svc, db, _, _ := setupService(t)
	ctx := context.Background()
	salon := testutil.TestSalon(t, db, "owner-1", t0)

	stale := testutil.ReloadSalon(t, db, salon.ID)
	_, err := svc.GiftDays(ctx, salon.ID, 3, "", "admin-1")
	require.NoError(t, err)

	cancelled, err := lifecycle.Cancel(stale, t0)
	require.NoError(t, err)
	err = UpdateSalon(ctx, db, stale, cancelled, t0)
	require.ErrorIs(t, err, types.ErrConcurrentUpdate)

	stored := testutil.ReloadSalon(t, db, salon.ID)
	assertSameInstant(t, t0.Add(10*day), stored.SubscriptionEnd)
	assert.Equal(t, 3, stored.BonusDays)
}

func TestListWithStats(t *testing.T) {
	svc, db, _, _ := setupService(t)
	ctx := context.Background()
	testutil.TestSalon(t, db, "owner-active", t0, testutil.WithEnd(t0.Add(40*day)))
	testutil.TestSalon(t, db, "owner-expiring", t0, testutil.WithEnd(t0.Add(2*day)))
	testutil.TestSalon(t, db, "owner-expired", t0, testutil.WithEnd(t0.Add(-5*day)))
	testutil.TestSalon(t, db, "owner-edge", t0, testutil.WithEnd(t0), testutil.Banned())

	overview, err := svc.ListWithStats(ctx, nil)
	require.NoError(t, err)
	require.Len(t, overview.Salons, 4)
	assert.Equal(t, types.SubscriptionStats{Active: 1, Expiring: 1, Expired: 2}, overview.Stats)

	owners := make([]string, 0, len(overview.Salons))
	for _, v := range overview.Salons {
		owners = append(owners, v.OwnerID)
	}
	assert.Equal(t, []string{"owner-expired", "owner-edge", "owner-expiring", "owner-active"}, owners)
	assert.Equal(t, 2, overview.Salons[2].DaysLeft)

	overview, err = svc.ListWithStats(ctx, types.FiltersAnd{
		{Field: "is_active", Operator: types.CommonFilterOperatorEq, Values: []any{false}},
	})
	require.NoError(t, err)
	require.Len(t, overview.Salons, 1)
	assert.Equal(t, "owner-edge", overview.Salons[0].OwnerID)

	_, err = svc.ListWithStats(ctx, types.FiltersAnd{
		{Field: "password", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}},
	})
	require.ErrorIs(t, err, types.ErrInvalidInput)
}
