package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fatflowers/coiffeur/internal/app/service/request"
	"github.com/fatflowers/coiffeur/internal/app/service/statistics"
	"github.com/fatflowers/coiffeur/internal/app/service/subscription"
	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/types"
)

type SearchSubscriptionsRequest struct {
	Filters types.FiltersAnd `json:"filters"`
}

type GiftDaysRequest struct {
	SalonID string `json:"salon_id" binding:"required"`
	Days    int    `json:"days" binding:"min=1,max=36500"`
	Note    string `json:"note"`
}

type CancelSubscriptionRequest struct {
	SalonID string `json:"salon_id" binding:"required"`
}

// ExtendSubscriptionRequest extends by Plan when set, otherwise by Days.
type ExtendSubscriptionRequest struct {
	SalonID string `json:"salon_id" binding:"required"`
	Days    int    `json:"days" binding:"omitempty,min=1,max=36500"`
	Plan    string `json:"plan"`
}

type DailyStatisticRequest struct {
	From string `json:"from" binding:"required" example:"2026-03-01"`
	To   string `json:"to" binding:"required" example:"2026-03-31"`
}

type SnapshotRequest struct {
	// Date defaults to today (UTC).
	Date string `json:"date" example:"2026-03-01"`
}

// @Summary      List Subscriptions (Admin)
// @Description  Lists every salon ordered by soonest expiry, with counts per classification.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespOverview
// @Router       /api/v1/admin/subscriptions [get]
func ApiListSubscriptions(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := subs.ListWithStats(c.Request.Context(), nil)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// @Summary      Search Subscriptions (Admin)
// @Description  Same as the listing but narrowed by filters on salon columns.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body SearchSubscriptionsRequest true "Filters"
// @Success      200  {object}  handlers.RespOverview
// @Router       /api/v1/admin/subscriptions/search [post]
func ApiSearchSubscriptions(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SearchSubscriptionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := subs.ListWithStats(c.Request.Context(), req.Filters)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// @Summary      Gift Days (Admin)
// @Description  Adds free days to a salon subscription and notifies the owner.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body GiftDaysRequest true "Gift request"
// @Success      200  {object}  handlers.RespSalon
// @Router       /api/v1/admin/subscriptions/gift [post]
func ApiGiftDays(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GiftDaysRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		salon, err := subs.GiftDays(c.Request.Context(), req.SalonID, req.Days, req.Note, account(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, salon)
	}
}

// @Summary      Cancel Subscription (Admin)
// @Description  Ends a salon subscription immediately.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body CancelSubscriptionRequest true "Cancel request"
// @Success      200  {object}  handlers.RespSalon
// @Router       /api/v1/admin/subscriptions/cancel [post]
func ApiCancelSubscription(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CancelSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		salon, err := subs.Cancel(c.Request.Context(), req.SalonID, account(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, salon)
	}
}

// @Summary      Extend Subscription (Admin)
// @Description  Adds days or a plan length to a salon subscription without counting them as a gift.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ExtendSubscriptionRequest true "Extend request"
// @Success      200  {object}  handlers.RespSalon
// @Router       /api/v1/admin/subscriptions/extend [post]
func ApiExtendSubscription(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExtendSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		salon, err := subs.Extend(c.Request.Context(), req.SalonID, req.Days, req.Plan, account(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, salon)
	}
}

// @Summary      Toggle Salon Ban (Admin)
// @Description  Flips the banned flag of a salon.
// @Tags         Admin
// @Produce      json
// @Param        id   path  string  true  "Salon ID"
// @Success      200  {object}  handlers.RespSalon
// @Router       /api/v1/admin/salons/{id}/toggle_status [post]
func ApiToggleSalonStatus(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		salon, err := subs.ToggleBan(c.Request.Context(), c.Param("id"), account(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, salon)
	}
}

// @Summary      List Subscription Requests (Admin)
// @Description  Lists plan requests, newest first. Defaults to pending ones.
// @Tags         Admin
// @Produce      json
// @Param        status  query  string  false  "pending, approved, rejected or all"
// @Success      200  {object}  handlers.RespRequests
// @Router       /api/v1/admin/subscription/requests [get]
func ApiListRequests(queue *request.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var status types.RequestStatus
		switch raw := c.DefaultQuery("status", string(types.RequestStatusPending)); raw {
		case "all":
		case string(types.RequestStatusPending), string(types.RequestStatusApproved), string(types.RequestStatusRejected):
			status = types.RequestStatus(raw)
		default:
			badRequest(c, "unknown status "+raw)
			return
		}
		items, err := queue.List(c.Request.Context(), status)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, items)
	}
}

// @Summary      Approve Subscription Request (Admin)
// @Description  Applies the requested plan to the owner's salon and resolves the request.
// @Tags         Admin
// @Produce      json
// @Param        requestId  path  string  true  "Request ID"
// @Success      200  {object}  handlers.RespApprove
// @Router       /api/v1/admin/subscription/approve/{requestId} [post]
func ApiApproveRequest(queue *request.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := queue.Approve(c.Request.Context(), c.Param("requestId"), account(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// @Summary      Reject Subscription Request (Admin)
// @Tags         Admin
// @Produce      json
// @Param        requestId  path  string  true  "Request ID"
// @Success      200  {object}  handlers.RespRequest
// @Router       /api/v1/admin/subscription/reject/{requestId} [post]
func ApiRejectRequest(queue *request.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := queue.Reject(c.Request.Context(), c.Param("requestId"), account(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// @Summary      Daily Classification Counts (Admin)
// @Description  Returns snapshot counts per classification for each date in the range.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body DailyStatisticRequest true "Date range, inclusive"
// @Success      200  {object}  handlers.RespDailyCounts
// @Router       /api/v1/admin/statistics/daily [post]
func ApiDailyStatistic(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DailyStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		from, err := parseDate(req.From)
		if err != nil {
			badRequest(c, "invalid from date")
			return
		}
		to, err := parseDate(req.To)
		if err != nil {
			badRequest(c, "invalid to date")
			return
		}
		res, err := stats.DailyCounts(c.Request.Context(), from, to)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// @Summary      Query Statistics (Admin)
// @Description  Computes the requested statistic items concurrently.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.StatisticRequest true "Statistic items and filters"
// @Success      200  {object}  handlers.RespStatistic
// @Router       /api/v1/admin/statistics/query [post]
func ApiQueryStatistic(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := stats.GetStatistic(c.Request.Context(), &req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// @Summary      Take Snapshot (Admin)
// @Description  Records the daily subscription snapshot on demand.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body SnapshotRequest false "Snapshot date"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/admin/statistics/snapshot [post]
func ApiTakeSnapshot(stats *statistics.Service, clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SnapshotRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}
		date := clk.Now()
		if req.Date != "" {
			d, err := parseDate(req.Date)
			if err != nil {
				badRequest(c, "invalid date")
				return
			}
			date = d
		}
		res, err := stats.SnapshotAll(c.Request.Context(), date)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

func RegisterAdminRoutes(r gin.IRouter, subs *subscription.Service, queue *request.Service, stats *statistics.Service, clk clock.Clock) {
	r.GET("/subscriptions", ApiListSubscriptions(subs))
	r.POST("/subscriptions/search", ApiSearchSubscriptions(subs))
	r.POST("/subscriptions/gift", ApiGiftDays(subs))
	r.POST("/subscriptions/cancel", ApiCancelSubscription(subs))
	r.POST("/subscriptions/extend", ApiExtendSubscription(subs))
	r.POST("/salons/:id/toggle_status", ApiToggleSalonStatus(subs))

	r.GET("/subscription/requests", ApiListRequests(queue))
	r.POST("/subscription/approve/:requestId", ApiApproveRequest(queue))
	r.POST("/subscription/reject/:requestId", ApiRejectRequest(queue))

	r.POST("/statistics/daily", ApiDailyStatistic(stats))
	r.POST("/statistics/query", ApiQueryStatistic(stats))
	r.POST("/statistics/snapshot", ApiTakeSnapshot(stats, clk))
}
