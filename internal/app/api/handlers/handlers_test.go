package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/coiffeur/internal/app/api/middleware"
	"github.com/fatflowers/coiffeur/internal/app/api/views"
	"github.com/fatflowers/coiffeur/internal/app/service/notification"
	"github.com/fatflowers/coiffeur/internal/app/service/request"
	"github.com/fatflowers/coiffeur/internal/app/service/statistics"
	"github.com/fatflowers/coiffeur/internal/app/service/subscription"
	"github.com/fatflowers/coiffeur/internal/testutil"
	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/config"
	"github.com/fatflowers/coiffeur/pkg/response"
	"github.com/fatflowers/coiffeur/pkg/types"
)

const (
	secret = "handler-secret"
	day    = 24 * time.Hour
)

var t0 = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

type envelope struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    json.RawMessage          `json:"data"`
}

type harness struct {
	r     *gin.Engine
	db    *gorm.DB
	clk   *clock.Fixed
	inbox *notification.Service
	admin string
	owner string
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clk := clock.NewFixed(t0)
	log := zap.NewNop().Sugar()
	cfg := &config.Config{
		Subscription: config.SubscriptionConfig{TrialDays: 7},
		Plans: []*config.PlanItem{
			{ID: types.PlanMonth, Price: 150, Currency: "EGP"},
			{ID: types.PlanYear, Price: 1400, Currency: "EGP"},
		},
	}
	inbox := notification.NewService(db, log, nil, clk)
	subs := subscription.NewService(cfg, db, log, clk, inbox)
	queue := request.NewService(db, log, clk, subs, inbox)
	stats := statistics.New(db, log, clk)

	r := gin.New()
	r.SetHTMLTemplate(views.Templates())
	RegisterHealthRoutes(r, db)
	api := r.Group("/api/v1", middleware.AuthMiddleware(secret))
	RegisterAdminRoutes(api.Group("/admin", middleware.RequireRole(types.RoleAdmin)), subs, queue, stats, clk)
	RegisterOwnerRoutes(api.Group("/owner", middleware.RequireRole(types.RoleOwner, types.RoleAdmin)), cfg, subs, queue)
	RegisterNotificationRoutes(api.Group("/notifications"), inbox)

	sign := func(a types.Account) string {
		tok, err := middleware.SignToken(secret, a, time.Hour, time.Now())
		require.NoError(t, err)
		return tok
	}
	return &harness{
		r:     r,
		db:    db,
		clk:   clk,
		inbox: inbox,
		admin: sign(types.Account{ID: "admin-1", Role: types.RoleAdmin}),
		owner: sign(types.Account{ID: "owner-1", Role: types.RoleOwner}),
	}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)

	var env envelope
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRegisterRoutes_RegistersEndpoints(t *testing.T) {
	h := newHarness(t)
	routes := h.r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	for _, target := range []string{
		"GET /healthz",
		"GET /readyz",
		"GET /api/v1/admin/subscriptions",
		"POST /api/v1/admin/subscriptions/search",
		"POST /api/v1/admin/subscriptions/gift",
		"POST /api/v1/admin/subscriptions/cancel",
		"POST /api/v1/admin/subscriptions/extend",
		"POST /api/v1/admin/salons/:id/toggle_status",
		"GET /api/v1/admin/subscription/requests",
		"POST /api/v1/admin/subscription/approve/:requestId",
		"POST /api/v1/admin/subscription/reject/:requestId",
		"POST /api/v1/admin/statistics/daily",
		"POST /api/v1/admin/statistics/query",
		"POST /api/v1/admin/statistics/snapshot",
		"POST /api/v1/owner/salon",
		"GET /api/v1/owner/dashboard",
		"GET /api/v1/owner/subscription",
		"POST /api/v1/owner/subscription/request",
		"GET /api/v1/notifications",
		"POST /api/v1/notifications/:id/read",
		"POST /api/v1/notifications/read_all",
		"DELETE /api/v1/notifications/:id",
	} {
		require.True(t, contains(target), target)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, env := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, response.APIResponseCodeOK, env.Code)

	code, _ = h.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestOwnerLifecycle(t *testing.T) {
	h := newHarness(t)

	// no salon yet: dashboard passes the gate but has nothing to show
	code, env := h.do(t, http.MethodGet, "/api/v1/owner/dashboard", h.owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, response.APIResponseCodeNotFound, env.Code)

	code, env = h.do(t, http.MethodPost, "/api/v1/owner/salon", h.owner, CreateSalonRequest{Name: "Lotus"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, response.APIResponseCodeOK, env.Code)

	_, env = h.do(t, http.MethodPost, "/api/v1/owner/salon", h.owner, CreateSalonRequest{Name: "Lotus"})
	assert.Equal(t, response.APIResponseCodeConflict, env.Code)

	_, env = h.do(t, http.MethodGet, "/api/v1/owner/dashboard", h.owner, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	view := decode[subscription.SalonView](t, env.Data)
	assert.Equal(t, 7, view.DaysLeft)
	assert.Equal(t, types.ClassificationExpiring, view.Classification)

	_, env = h.do(t, http.MethodPost, "/api/v1/owner/subscription/request", h.owner, SubmitRequestRequest{Plan: "month"})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	submitted := decode[struct {
		ID string `json:"id"`
	}](t, env.Data)

	_, env = h.do(t, http.MethodPost, "/api/v1/owner/subscription/request", h.owner, SubmitRequestRequest{Plan: "year"})
	assert.Equal(t, response.APIResponseCodeConflict, env.Code)
	_, env = h.do(t, http.MethodPost, "/api/v1/owner/subscription/request", h.owner, SubmitRequestRequest{Plan: "weekly"})
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	_, env = h.do(t, http.MethodGet, "/api/v1/owner/subscription", h.owner, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	page := decode[SubscriptionPage](t, env.Data)
	require.NotNil(t, page.Salon)
	assert.True(t, page.Usable)
	require.NotNil(t, page.Pending)
	assert.Equal(t, submitted.ID, page.Pending.ID)
	require.Len(t, page.Plans, 2)
	assert.Equal(t, 365, page.Plans[1].Days)

	_, env = h.do(t, http.MethodGet, "/api/v1/admin/subscription/requests", h.admin, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 1)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscription/approve/"+submitted.ID, h.admin, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscription/approve/"+submitted.ID, h.admin, nil)
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	_, env = h.do(t, http.MethodGet, "/api/v1/owner/dashboard", h.owner, nil)
	assert.Equal(t, 37, decode[subscription.SalonView](t, env.Data).DaysLeft)

	// once the window ends the dashboard is blocked but renewal stays open
	h.clk.Advance(40 * day)
	code, _ = h.do(t, http.MethodGet, "/api/v1/owner/dashboard", h.owner, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = h.do(t, http.MethodGet, "/api/v1/owner/subscription", h.owner, nil)
	require.Equal(t, http.StatusOK, code)
	page = decode[SubscriptionPage](t, env.Data)
	assert.False(t, page.Usable)
	assert.Nil(t, page.Pending)
	assert.Equal(t, types.ClassificationExpired, page.Salon.Classification)

	_, env = h.do(t, http.MethodGet, "/api/v1/admin/subscription/requests?status=bogus", h.admin, nil)
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)
	_, env = h.do(t, http.MethodGet, "/api/v1/admin/subscription/requests?status=all", h.admin, nil)
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 1)
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)
	salon := testutil.TestSalon(t, h.db, "owner-1", t0, testutil.WithEnd(t0.Add(2*day)))

	_, env := h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/gift", h.admin, GiftDaysRequest{SalonID: salon.ID, Days: 5, Note: "loyalty"})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	stored := testutil.ReloadSalon(t, h.db, salon.ID)
	assert.True(t, t0.Add(7*day).Equal(stored.SubscriptionEnd))
	assert.Equal(t, 5, stored.BonusDays)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/gift", h.admin, GiftDaysRequest{SalonID: salon.ID, Days: 0})
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)
	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/gift", h.admin, GiftDaysRequest{SalonID: salon.ID, Days: 200000})
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)
	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/extend", h.admin, ExtendSubscriptionRequest{SalonID: salon.ID, Days: 200000})
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)
	assert.True(t, t0.Add(7*day).Equal(testutil.ReloadSalon(t, h.db, salon.ID).SubscriptionEnd))
	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/gift", h.admin, GiftDaysRequest{Days: 3})
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)
	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/gift", h.admin, GiftDaysRequest{SalonID: "missing", Days: 3})
	assert.Equal(t, response.APIResponseCodeNotFound, env.Code)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/extend", h.admin, ExtendSubscriptionRequest{SalonID: salon.ID, Plan: "month"})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	assert.True(t, t0.Add(37*day).Equal(testutil.ReloadSalon(t, h.db, salon.ID).SubscriptionEnd))

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/salons/"+salon.ID+"/toggle_status", h.admin, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	assert.False(t, testutil.ReloadSalon(t, h.db, salon.ID).IsActive)

	code, _ := h.do(t, http.MethodGet, "/api/v1/owner/dashboard", h.owner, nil)
	assert.Equal(t, http.StatusForbidden, code)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/cancel", h.admin, CancelSubscriptionRequest{SalonID: salon.ID})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	assert.Equal(t, types.SubscriptionStatusExpired, testutil.ReloadSalon(t, h.db, salon.ID).SubscriptionStatus)

	_, env = h.do(t, http.MethodGet, "/api/v1/admin/subscriptions", h.admin, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	overview := decode[subscription.Overview](t, env.Data)
	require.Len(t, overview.Salons, 1)
	assert.Equal(t, types.SubscriptionStats{Expired: 1}, overview.Stats)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/subscriptions/search", h.admin, SearchSubscriptionsRequest{
		Filters: types.FiltersAnd{{Field: "is_active", Operator: types.CommonFilterOperatorEq, Values: []any{true}}},
	})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	assert.Empty(t, decode[subscription.Overview](t, env.Data).Salons)

	// gift, ban and cancel each notify the owner
	assert.Eventually(t, func() bool {
		n, err := h.inbox.UnreadCount(context.Background(), "owner-1")
		return err == nil && n == 3
	}, 2*time.Second, 20*time.Millisecond)

	_, env = h.do(t, http.MethodGet, "/api/v1/notifications", h.owner, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	inbox := decode[Inbox](t, env.Data)
	require.Len(t, inbox.Items, 3)
	assert.Equal(t, int64(3), inbox.Unread)

	_, env = h.do(t, http.MethodPost, "/api/v1/notifications/"+inbox.Items[0].ID+"/read", h.owner, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	_, env = h.do(t, http.MethodPost, "/api/v1/notifications/"+inbox.Items[0].ID+"/read", h.admin, nil)
	assert.Equal(t, response.APIResponseCodeNotFound, env.Code)
	_, env = h.do(t, http.MethodDelete, "/api/v1/notifications/"+inbox.Items[1].ID, h.owner, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	_, env = h.do(t, http.MethodPost, "/api/v1/notifications/read_all", h.owner, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := newHarness(t)
	code, _ := h.do(t, http.MethodGet, "/api/v1/admin/subscriptions", h.owner, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.do(t, http.MethodGet, "/api/v1/admin/subscriptions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	customer, err := middleware.SignToken(secret, types.Account{ID: "customer-1", Role: types.RoleCustomer}, time.Hour, time.Now())
	require.NoError(t, err)
	code, _ = h.do(t, http.MethodGet, "/api/v1/owner/subscription", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.do(t, http.MethodGet, "/api/v1/owner/subscription", h.admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestDashboard_AdminBypassesGate(t *testing.T) {
	h := newHarness(t)

	_, env := h.do(t, http.MethodGet, "/api/v1/owner/dashboard", h.admin, nil)
	assert.Equal(t, response.APIResponseCodeNotFound, env.Code)

	salon := testutil.TestSalon(t, h.db, "admin-1", t0, testutil.WithEnd(t0.Add(-day)), testutil.Banned())
	code, env := h.do(t, http.MethodGet, "/api/v1/owner/dashboard", h.admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	view := decode[subscription.SalonView](t, env.Data)
	assert.Equal(t, salon.ID, view.ID)
	assert.Equal(t, types.ClassificationExpired, view.Classification)
}

func TestStatisticsEndpoints(t *testing.T) {
	h := newHarness(t)
	testutil.TestSalon(t, h.db, "owner-1", t0, testutil.WithEnd(t0.Add(30*day)))
	testutil.TestSalon(t, h.db, "owner-2", t0, testutil.WithEnd(t0.Add(day)))

	_, env := h.do(t, http.MethodPost, "/api/v1/admin/statistics/snapshot", h.admin, nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	snap := decode[statistics.SnapshotResult](t, env.Data)
	assert.Equal(t, "2026-03-01", snap.Date)
	assert.Equal(t, int64(2), snap.Salons)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/statistics/snapshot", h.admin, SnapshotRequest{Date: "2026-02-28"})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	_, env = h.do(t, http.MethodPost, "/api/v1/admin/statistics/snapshot", h.admin, SnapshotRequest{Date: "yesterday"})
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/statistics/daily", h.admin, DailyStatisticRequest{From: "2026-02-28", To: "2026-03-01"})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	counts := decode[[]statistics.DailyCount](t, env.Data)
	require.Len(t, counts, 2)
	assert.Equal(t, types.SubscriptionStats{Active: 1, Expiring: 1}, counts[1].SubscriptionStats)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/statistics/daily", h.admin, DailyStatisticRequest{From: "03/01", To: "2026-03-01"})
	assert.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	_, env = h.do(t, http.MethodPost, "/api/v1/admin/statistics/query", h.admin, statistics.StatisticRequest{
		DataItems: []*statistics.StatisticDataItem{{ID: statistics.StatisticTypeTotalSalonCount}},
	})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	res := decode[statistics.StatisticResponse](t, env.Data)
	assert.Equal(t, []statistics.StatisticResponseDataItem{{Value: 2}}, res.DataItems[statistics.StatisticTypeTotalSalonCount])
}
