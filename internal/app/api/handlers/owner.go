package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/fatflowers/coiffeur/internal/app/api/middleware"
	"github.com/fatflowers/coiffeur/internal/app/service/lifecycle"
	"github.com/fatflowers/coiffeur/internal/app/service/notification"
	"github.com/fatflowers/coiffeur/internal/app/service/request"
	"github.com/fatflowers/coiffeur/internal/app/service/subscription"
	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/config"
	"github.com/fatflowers/coiffeur/pkg/response"
	"github.com/fatflowers/coiffeur/pkg/types"
)

type CreateSalonRequest struct {
	Name string `json:"name" binding:"required"`
}

type SubmitRequestRequest struct {
	Plan string `json:"plan" example:"3months"`
}

type PlanView struct {
	ID       types.Plan `json:"id"`
	Days     int        `json:"days"`
	Price    int64      `json:"price"`
	Currency string     `json:"currency"`
}

// SubscriptionPage is what an owner sees on the renewal page. Salon is nil
// until the owner creates one.
type SubscriptionPage struct {
	Salon   *subscription.SalonView     `json:"salon"`
	Usable  bool                        `json:"usable"`
	Pending *models.SubscriptionRequest `json:"pending"`
	Plans   []*PlanView                 `json:"plans"`
}

type Inbox struct {
	Items  []*models.Notification `json:"items"`
	Unread int64                  `json:"unread"`
}

// @Summary      Create Salon (Owner)
// @Description  Creates the caller's salon with a trial subscription.
// @Tags         Owner
// @Accept       json
// @Produce      json
// @Param        request body CreateSalonRequest true "Salon"
// @Success      200  {object}  handlers.RespSalon
// @Router       /api/v1/owner/salon [post]
func ApiCreateSalon(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSalonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		salon, err := subs.CreateSalon(c.Request.Context(), account(c).ID, req.Name)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, salon)
	}
}

// @Summary      Owner Dashboard
// @Description  Returns the caller's salon with its remaining days. Blocked with 403 when banned or expired.
// @Tags         Owner
// @Produce      json
// @Success      200  {object}  handlers.RespSalonView
// @Failure      403  {object}  middleware.GateError
// @Router       /api/v1/owner/dashboard [get]
func ApiDashboard(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		salon, found := middleware.SalonFrom(c)
		if !found {
			// the gate only loads salons for owners
			var err error
			salon, err = subs.GetByOwnerID(c.Request.Context(), account(c).ID)
			if errors.Is(err, types.ErrNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "create a salon first"))
				return
			}
			if err != nil {
				fail(c, err)
				return
			}
		}
		ok(c, subscription.NewSalonView(salon, subs.Now()))
	}
}

// @Summary      Subscription Page (Owner)
// @Description  Returns the subscription state, any pending request and the plan catalogue.
// @Tags         Owner
// @Produce      json
// @Success      200  {object}  handlers.RespSubscriptionPage
// @Router       /api/v1/owner/subscription [get]
func ApiSubscriptionPage(cfg *config.Config, subs *subscription.Service, queue *request.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ownerID := account(c).ID

		page := &SubscriptionPage{
			Plans: lo.Map(cfg.Plans, func(p *config.PlanItem, _ int) *PlanView {
				return &PlanView{ID: p.ID, Days: p.Days(), Price: p.Price, Currency: p.Currency}
			}),
		}
		salon, err := subs.GetByOwnerID(ctx, ownerID)
		switch {
		case errors.Is(err, types.ErrNotFound):
		case err != nil:
			fail(c, err)
			return
		default:
			now := subs.Now()
			page.Salon = subscription.NewSalonView(salon, now)
			page.Usable = lifecycle.IsUsable(salon, now)
		}
		if page.Pending, err = queue.GetPendingForUser(ctx, ownerID); err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

// @Summary      Request Plan (Owner)
// @Description  Submits a plan request for admin approval. Only one request may be pending.
// @Tags         Owner
// @Accept       json
// @Produce      json
// @Param        request body SubmitRequestRequest true "Plan"
// @Success      200  {object}  handlers.RespRequest
// @Router       /api/v1/owner/subscription/request [post]
func ApiSubmitRequest(queue *request.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := queue.Submit(c.Request.Context(), account(c).ID, req.Plan)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// @Summary      Notifications
// @Description  Lists the caller's notifications, newest first, with the unread count.
// @Tags         Notifications
// @Produce      json
// @Param        limit  query  int  false  "Max items (default 50)"
// @Success      200  {object}  handlers.RespInbox
// @Router       /api/v1/notifications [get]
func ApiListNotifications(inbox *notification.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		userID := account(c).ID
		items, err := inbox.ListByUser(c.Request.Context(), userID, limit)
		if err != nil {
			fail(c, err)
			return
		}
		unread, err := inbox.UnreadCount(c.Request.Context(), userID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, &Inbox{Items: items, Unread: unread})
	}
}

// @Summary      Mark Notification Read
// @Tags         Notifications
// @Produce      json
// @Param        id   path  string  true  "Notification ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/notifications/{id}/read [post]
func ApiMarkNotificationRead(inbox *notification.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := inbox.MarkRead(c.Request.Context(), account(c).ID, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		ok(c, nil)
	}
}

// @Summary      Mark All Notifications Read
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/notifications/read_all [post]
func ApiMarkAllNotificationsRead(inbox *notification.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		changed, err := inbox.MarkAllRead(c.Request.Context(), account(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"updated": changed})
	}
}

// @Summary      Delete Notification
// @Tags         Notifications
// @Produce      json
// @Param        id   path  string  true  "Notification ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/notifications/{id} [delete]
func ApiDeleteNotification(inbox *notification.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := inbox.Delete(c.Request.Context(), account(c).ID, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		ok(c, nil)
	}
}

// RegisterOwnerRoutes mounts the owner API. Only the dashboard sits behind
// the subscription gate so lapsed owners can still renew.
func RegisterOwnerRoutes(r gin.IRouter, cfg *config.Config, subs *subscription.Service, queue *request.Service) {
	r.POST("/salon", ApiCreateSalon(subs))
	r.GET("/subscription", ApiSubscriptionPage(cfg, subs, queue))
	r.POST("/subscription/request", ApiSubmitRequest(queue))
	r.GET("/dashboard", middleware.SubscriptionGate(subs), ApiDashboard(subs))
}

func RegisterNotificationRoutes(r gin.IRouter, inbox *notification.Service) {
	r.GET("", ApiListNotifications(inbox))
	r.POST("/read_all", ApiMarkAllNotificationsRead(inbox))
	r.POST("/:id/read", ApiMarkNotificationRead(inbox))
	r.DELETE("/:id", ApiDeleteNotification(inbox))
}
